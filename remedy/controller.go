package remedy

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/dreamsxin/sysguard/types"
	"github.com/dreamsxin/sysguard/util"
)

// ErrProcessGone 信号投递时目标进程已不存在
var ErrProcessGone = errors.New("process gone")

// ProcessOps 进程操作接口
//
// 把存在性探测、启动时间读取和信号投递收拢到一个小接口后面，
// 终止协议可以在不杀任何进程的情况下测试。
type ProcessOps interface {
	// Alive 探测进程是否存在
	Alive(pid int) bool
	// StartedAt 读取进程启动时间，读不到时ok为false
	StartedAt(pid int) (t time.Time, ok bool)
	// SignalTerm 发送优雅终止信号
	SignalTerm(pid int) error
	// SignalKill 发送强制终止信号
	SignalKill(pid int) error
}

// 采样用到的辅助命令不作为终止候选
var excludedCommands = map[string]bool{
	"ps":   true,
	"top":  true,
	"df":   true,
	"awk":  true,
	"sort": true,
	"head": true,
}

// Controller 修复控制器，执行先优雅后强制的终止协议
type Controller struct {
	cfg      *types.Config
	registry *Registry
	tracker  *Tracker
	ops      ProcessOps
	logger   *slog.Logger
	selfPID  int

	// 测试注入点
	now   func() time.Time
	sleep func(time.Duration)
}

// NewController 创建修复控制器
func NewController(cfg *types.Config, registry *Registry, tracker *Tracker, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: registry,
		tracker:  tracker,
		ops:      newProcessOps(),
		logger:   logger,
		selfPID:  os.Getpid(),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// ShouldAct 判断是否进入终止协议
//
// 只有开启自动修复、且观测值达到该指标的终止阈值时才进入；
// 磁盘没有终止阈值，磁盘告警永远不触发修复。
func (c *Controller) ShouldAct(alert types.Alert) bool {
	if !c.cfg.AutoKillEnabled {
		return false
	}
	kill, ok := c.cfg.KillThreshold(alert.Kind)
	if !ok {
		return false
	}
	return alert.Observed >= kill
}

// Remediate 执行一次修复尝试
//
// 协议状态机：选择候选 → 确认存在 → 用量门槛 → 保护名单 →
// 冷却检查 → 终止 → 记录冷却。每个告警至多尝试一次修复。
// 协议中途不响应取消，宽限期等待是有界的同步延迟。
func (c *Controller) Remediate(alert types.Alert, snap *types.MetricSnapshot) types.RemediationOutcome {
	candidate := selectCandidate(alert.Kind, snap, c.selfPID)
	if candidate == nil {
		return c.skipped(alert, nil, types.ReasonNoCandidate)
	}

	// 采样和修复之间存在竞争，动手前必须重新确认进程存在；
	// 启动时间变化说明PID已被复用，同样视为进程已退出
	if !c.ops.Alive(candidate.PID) {
		return c.skipped(alert, candidate, types.ReasonProcessExited)
	}
	if startedAt, ok := c.ops.StartedAt(candidate.PID); ok && !candidate.StartTime.IsZero() {
		if diff := startedAt.Sub(candidate.StartTime); diff > time.Second || diff < -time.Second {
			return c.skipped(alert, candidate, types.ReasonProcessExited)
		}
	}

	// 相对最高不代表绝对值高，低于门槛不终止
	usage := candidate.CPUPercent
	if alert.Kind == types.MetricMemory {
		usage = candidate.MemoryPercent
	}
	if usage <= c.cfg.UsageFloor(alert.Kind) {
		return c.skipped(alert, candidate, types.ReasonBelowFloor)
	}

	if c.registry.IsProtected(candidate.Name) {
		return c.skipped(alert, candidate, types.ReasonProtected)
	}

	if c.tracker.IsCoolingDown(candidate.PID, c.now()) {
		return c.skipped(alert, candidate, types.ReasonCooldownActive)
	}

	return c.terminate(alert, candidate)
}

// terminate 先优雅后强制的两阶段终止
func (c *Controller) terminate(alert types.Alert, candidate *types.ProcessSample) types.RemediationOutcome {
	if err := c.ops.SignalTerm(candidate.PID); err != nil {
		if errors.Is(err, ErrProcessGone) {
			// 确认存在之后、信号投递之前退出了，等同于优雅终止
			return c.terminated(alert, candidate, types.TerminateGraceful)
		}
		return c.failed(alert, candidate, err.Error())
	}

	c.sleep(c.cfg.GracePeriod)

	if !c.ops.Alive(candidate.PID) {
		return c.terminated(alert, candidate, types.TerminateGraceful)
	}

	if err := c.ops.SignalKill(candidate.PID); err != nil {
		if errors.Is(err, ErrProcessGone) {
			// 宽限期结束后、强制信号之前死于SIGTERM
			return c.terminated(alert, candidate, types.TerminateGraceful)
		}
		return c.failed(alert, candidate, err.Error())
	}
	return c.terminated(alert, candidate, types.TerminateForced)
}

// selectCandidate 选择终止候选
//
// CPU告警选CPU占用最高的进程，内存告警选内存占用最高的进程；
// 监控进程自身和采样辅助命令被排除。
func selectCandidate(kind types.MetricKind, snap *types.MetricSnapshot, selfPID int) *types.ProcessSample {
	var best *types.ProcessSample
	for i := range snap.TopProcesses {
		p := &snap.TopProcesses[i]
		if p.PID == selfPID || excludedCommands[p.Name] {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		if kind == types.MetricMemory {
			if p.MemoryPercent > best.MemoryPercent {
				best = p
			}
		} else if p.CPUPercent > best.CPUPercent {
			best = p
		}
	}
	return best
}

func (c *Controller) skipped(alert types.Alert, candidate *types.ProcessSample, reason string) types.RemediationOutcome {
	o := types.RemediationOutcome{
		ID:        util.GenerateUUID(),
		AlertID:   alert.ID,
		Kind:      alert.Kind,
		Status:    types.OutcomeSkipped,
		Reason:    reason,
		Timestamp: c.now(),
	}
	if candidate != nil {
		o.PID = candidate.PID
		o.Process = candidate.Name
	}
	c.logger.Warn("remediation skipped",
		"kind", alert.Kind, "reason", reason, "pid", o.PID, "process", o.Process)
	return o
}

func (c *Controller) terminated(alert types.Alert, candidate *types.ProcessSample, method types.TerminateMethod) types.RemediationOutcome {
	now := c.now()
	// 无论优雅还是强制，一次修复只占用一个冷却额度
	c.tracker.Record(candidate.PID, now)
	c.logger.Info("process terminated",
		"kind", alert.Kind, "pid", candidate.PID, "process", candidate.Name, "method", method)
	return types.RemediationOutcome{
		ID:        util.GenerateUUID(),
		AlertID:   alert.ID,
		Kind:      alert.Kind,
		Status:    types.OutcomeTerminated,
		PID:       candidate.PID,
		Process:   candidate.Name,
		Method:    method,
		Timestamp: now,
	}
}

func (c *Controller) failed(alert types.Alert, candidate *types.ProcessSample, reason string) types.RemediationOutcome {
	c.logger.Error("remediation failed",
		"kind", alert.Kind, "pid", candidate.PID, "process", candidate.Name, "error", reason)
	return types.RemediationOutcome{
		ID:        util.GenerateUUID(),
		AlertID:   alert.ID,
		Kind:      alert.Kind,
		Status:    types.OutcomeFailed,
		PID:       candidate.PID,
		Process:   candidate.Name,
		Reason:    reason,
		Timestamp: c.now(),
	}
}
