// Package sampler 负责采集系统资源快照。
//
// 数据来源为/proc文件系统和statfs系统调用。CPU使用率、单进程CPU使用率
// 和网络速率都是区间量，通过间隔一个稳定窗口（默认1秒）的两次读数计算，
// 这段等待是采样器契约的一部分，计入采样周期的总耗时。
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dreamsxin/sysguard/types"
)

// SamplingError 所有数据源（CPU、内存、磁盘）都不可读时返回
//
// 单个数据源失败不构成错误，对应指标降级为零后采样继续。
type SamplingError struct {
	Failures map[string]error
}

func (e *SamplingError) Error() string {
	sources := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	var sb strings.Builder
	sb.WriteString("no usable data source")
	for _, name := range sources {
		sb.WriteString(fmt.Sprintf("; %s: %v", name, e.Failures[name]))
	}
	return sb.String()
}

// Sampler 系统资源采样器
//
// 不持有上一轮读数，不做跨周期缓存：每次Sample内部完成两次读数，
// 返回的快照是自包含的，不依赖采样器状态。
type Sampler struct {
	logger   *slog.Logger
	settle   time.Duration
	topCount int
	selfPID  int

	// uid -> 用户名缓存，/proc扫描时避免重复查询
	userCache map[string]string
}

// New 创建采样器
func New(logger *slog.Logger, settle time.Duration, topCount int) *Sampler {
	if settle <= 0 {
		settle = time.Second
	}
	if topCount < 1 {
		topCount = 10
	}
	return &Sampler{
		logger:    logger,
		settle:    settle,
		topCount:  topCount,
		selfPID:   os.Getpid(),
		userCache: make(map[string]string),
	}
}

// Sample 采集一次系统快照
//
// 返回SamplingError仅当CPU、内存、磁盘全部不可读；
// 网络接口缺失属于显式降级场景，速率记为零。
func (s *Sampler) Sample(ctx context.Context) (*types.MetricSnapshot, error) {
	return s.collect(ctx)
}

// sleepContext 可取消的等待
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
