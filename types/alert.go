package types

import (
	"fmt"
	"time"
)

// Alert 阈值告警
//
// 由阈值评估器产生，当前采样周期内消费完即丢弃，不做持久化。
type Alert struct {
	ID        string     `json:"id"`
	Kind      MetricKind `json:"kind"`
	Observed  float64    `json:"observed"`
	Threshold float64    `json:"threshold"`
	Timestamp time.Time  `json:"timestamp"`
}

// String 格式化告警内容
func (a Alert) String() string {
	return fmt.Sprintf("%s usage %.1f%% exceeds threshold %.0f%%", a.Kind, a.Observed, a.Threshold)
}

// KillRecord 终止记录，冷却跟踪器按PID保存
type KillRecord struct {
	PID      int       `json:"pid"`
	KilledAt time.Time `json:"killed_at"`
}

// TerminateMethod 终止方式
type TerminateMethod string

const (
	// TerminateGraceful 优雅终止，SIGTERM后进程自行退出
	TerminateGraceful TerminateMethod = "graceful"
	// TerminateForced 强制终止，宽限期后仍存活，补发SIGKILL
	TerminateForced TerminateMethod = "forced"
)

// OutcomeStatus 修复结果状态
type OutcomeStatus string

const (
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeTerminated OutcomeStatus = "terminated"
	OutcomeFailed     OutcomeStatus = "failed"
)

// 跳过修复的原因
const (
	ReasonNoCandidate    = "no candidate"
	ReasonProcessExited  = "process exited"
	ReasonBelowFloor     = "usage below floor"
	ReasonProtected      = "protected"
	ReasonCooldownActive = "cooldown active"
)

// RemediationOutcome 一次修复尝试的结果
//
// 三种状态：Skipped带原因、Terminated带PID和终止方式、Failed带原因。
type RemediationOutcome struct {
	ID        string          `json:"id"`
	AlertID   string          `json:"alert_id"`
	Kind      MetricKind      `json:"kind"`
	Status    OutcomeStatus   `json:"status"`
	PID       int             `json:"pid,omitempty"`
	Process   string          `json:"process,omitempty"`
	Method    TerminateMethod `json:"method,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// String 格式化修复结果
func (o RemediationOutcome) String() string {
	switch o.Status {
	case OutcomeTerminated:
		return fmt.Sprintf("terminated %s (PID %d) via %s", o.Process, o.PID, o.Method)
	case OutcomeSkipped:
		return fmt.Sprintf("skipped: %s", o.Reason)
	default:
		return fmt.Sprintf("failed: %s", o.Reason)
	}
}
