//go:build !linux

package sampler

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dreamsxin/sysguard/types"
)

// collect 非Linux平台没有/proc数据源，采样直接失败
func (s *Sampler) collect(ctx context.Context) (*types.MetricSnapshot, error) {
	return nil, &SamplingError{Failures: map[string]error{
		"cpu":    fmt.Errorf("unsupported platform %s", runtime.GOOS),
		"memory": fmt.Errorf("unsupported platform %s", runtime.GOOS),
		"disk":   fmt.Errorf("unsupported platform %s", runtime.GOOS),
	}}
}
