//go:build !linux

package remedy

import (
	"fmt"
	"runtime"
	"time"
)

// stubOps 非Linux平台不支持自动修复
type stubOps struct{}

func newProcessOps() ProcessOps {
	return stubOps{}
}

func (stubOps) Alive(pid int) bool { return false }

func (stubOps) StartedAt(pid int) (time.Time, bool) { return time.Time{}, false }

func (stubOps) SignalTerm(pid int) error {
	return fmt.Errorf("remediation not supported on %s", runtime.GOOS)
}

func (stubOps) SignalKill(pid int) error {
	return fmt.Errorf("remediation not supported on %s", runtime.GOOS)
}
