package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dreamsxin/sysguard/types"
)

// Tick 一个采样周期的完整产出，交给Reporter后即丢弃
type Tick struct {
	Snapshot *types.MetricSnapshot
	Alerts   []types.Alert
	Outcomes []types.RemediationOutcome
}

// Reporter 周期产出的消费端，终端面板和守护模式的落盘是它的两个实现
type Reporter interface {
	Report(tick Tick) error
}

// Sampler 快照采集能力
type Sampler interface {
	Sample(ctx context.Context) (*types.MetricSnapshot, error)
}

// Remediator 自动修复能力
type Remediator interface {
	// ShouldAct 判断告警是否进入终止协议
	ShouldAct(alert types.Alert) bool
	// Remediate 执行一次修复尝试
	Remediate(alert types.Alert, snap *types.MetricSnapshot) types.RemediationOutcome
}

// Loop 监控循环：固定间隔驱动 采样 → 评估 → 修复 → 上报
//
// 单个定时循环，不存在并发的采样周期。间隔从周期结束时刻起算，
// 超时的周期顺延下一次调度而不是并发执行。取消只在周期边界和
// 间隔等待处生效。
type Loop struct {
	cfg        *types.Config
	sampler    Sampler
	remediator Remediator
	reporter   Reporter
	logger     *slog.Logger
}

// NewLoop 创建监控循环，remediator可以为nil（纯观测模式）
func NewLoop(cfg *types.Config, s Sampler, r Remediator, rep Reporter, logger *slog.Logger) *Loop {
	return &Loop{
		cfg:        cfg,
		sampler:    s,
		remediator: r,
		reporter:   rep,
		logger:     logger,
	}
}

// Run 运行监控循环直到ctx取消
//
// 周期内的任何失败都在周期范围内处理掉，循环本身不会因此退出。
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.tick(ctx)

		if ctx.Err() != nil {
			return nil
		}
		// 间隔定时器在周期完成后才启动
		t := time.NewTimer(l.cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// tick 执行一个采样周期
func (l *Loop) tick(ctx context.Context) {
	snap, err := l.sampler.Sample(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.logger.Error("sampling failed, skipping tick", "error", err)
		return
	}

	alerts := Evaluate(snap, l.cfg)
	for _, alert := range alerts {
		l.logger.Warn("threshold exceeded",
			"kind", alert.Kind, "observed", alert.Observed, "threshold", alert.Threshold)
	}

	// 同一周期的多个告警各自独立修复，可能指向不同进程
	var outcomes []types.RemediationOutcome
	if l.remediator != nil {
		for _, alert := range alerts {
			if !l.remediator.ShouldAct(alert) {
				continue
			}
			outcomes = append(outcomes, l.remediator.Remediate(alert, snap))
		}
	}

	if l.reporter != nil {
		if err := l.reporter.Report(Tick{Snapshot: snap, Alerts: alerts, Outcomes: outcomes}); err != nil {
			l.logger.Error("reporter failed", "error", err)
		}
	}
}
