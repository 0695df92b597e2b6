package types

import (
	"time"
)

// Config 引擎配置
//
// 进程启动时由配置加载器生成一次，引擎生命周期内只读，
// 修改配置需要重启（不支持热加载）。
type Config struct {
	Interval time.Duration `json:"interval"`

	// 告警阈值（百分比）
	CPUThreshold  float64 `json:"cpu_threshold"`
	MemThreshold  float64 `json:"mem_threshold"`
	DiskThreshold float64 `json:"disk_threshold"`

	// 终止阈值（百分比），必须不低于对应的告警阈值；
	// 磁盘没有终止阈值，磁盘告警永远不会触发修复
	CPUKillThreshold float64 `json:"cpu_kill_threshold"`
	MemKillThreshold float64 `json:"mem_kill_threshold"`

	// 候选进程的最低用量门槛，低于门槛不会被终止
	CPUUsageFloor float64 `json:"cpu_usage_floor"`
	MemUsageFloor float64 `json:"mem_usage_floor"`

	AutoKillEnabled    bool          `json:"auto_kill_enabled"`
	ProtectedProcesses []string      `json:"protected_processes"`
	KillCooldown       time.Duration `json:"kill_cooldown"`

	// 宽限期：SIGTERM之后等待多久再检查是否需要SIGKILL
	GracePeriod time.Duration `json:"grace_period"`
	// 网络速率测量的两次读数间隔
	NetworkSettle time.Duration `json:"network_settle"`
	// 快照中保留的进程数量
	TopProcessCount int `json:"top_process_count"`

	LogFile     string `json:"log_file"`
	HistoryFile string `json:"history_file"`
}

// AlertThreshold 返回指标对应的告警阈值
func (c *Config) AlertThreshold(kind MetricKind) float64 {
	switch kind {
	case MetricCPU:
		return c.CPUThreshold
	case MetricMemory:
		return c.MemThreshold
	default:
		return c.DiskThreshold
	}
}

// KillThreshold 返回指标对应的终止阈值，磁盘等不可终止的指标返回false
func (c *Config) KillThreshold(kind MetricKind) (float64, bool) {
	switch kind {
	case MetricCPU:
		return c.CPUKillThreshold, true
	case MetricMemory:
		return c.MemKillThreshold, true
	default:
		return 0, false
	}
}

// UsageFloor 返回指标对应的最低用量门槛
func (c *Config) UsageFloor(kind MetricKind) float64 {
	switch kind {
	case MetricCPU:
		return c.CPUUsageFloor
	case MetricMemory:
		return c.MemUsageFloor
	default:
		return 0
	}
}
