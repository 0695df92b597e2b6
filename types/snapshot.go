package types

import (
	"time"
)

// MetricKind 指标类型
type MetricKind string

const (
	MetricCPU    MetricKind = "CPU"
	MetricMemory MetricKind = "MEMORY"
	MetricDisk   MetricKind = "DISK"
)

// ProcessSample 采样时刻的单个进程信息
//
// PID只代表采样时刻的进程身份，操作系统会复用PID，
// 跨采样周期不能当作稳定标识使用。
type ProcessSample struct {
	PID           int       `json:"pid"`
	User          string    `json:"user"`
	Name          string    `json:"name"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	StartTime     time.Time `json:"start_time"`
}

// MetricSnapshot 一次采样产生的系统资源快照
//
// 每个采样周期创建一次，创建后不再修改，按引用传递给后续阶段。
type MetricSnapshot struct {
	Timestamp     time.Time       `json:"timestamp"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	DiskPercent   float64         `json:"disk_percent"`
	NetworkRxKBps uint64          `json:"network_rx_kbps"`
	NetworkTxKBps uint64          `json:"network_tx_kbps"`
	TopProcesses  []ProcessSample `json:"top_processes"`
}

// TopProcess 返回CPU占用最高的进程，没有数据时返回nil
func (s *MetricSnapshot) TopProcess() *ProcessSample {
	if len(s.TopProcesses) == 0 {
		return nil
	}
	return &s.TopProcesses[0]
}
