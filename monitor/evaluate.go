// Package monitor 实现阈值评估和定时监控循环。
package monitor

import (
	"github.com/dreamsxin/sysguard/types"
	"github.com/dreamsxin/sysguard/util"
)

// Evaluate 阈值评估
//
// 纯函数：观测值严格大于告警阈值才产生告警（恰好等于阈值不告警），
// 输出顺序固定为CPU、MEMORY、DISK。
func Evaluate(snap *types.MetricSnapshot, cfg *types.Config) []types.Alert {
	checks := []struct {
		kind     types.MetricKind
		observed float64
	}{
		{types.MetricCPU, snap.CPUPercent},
		{types.MetricMemory, snap.MemoryPercent},
		{types.MetricDisk, snap.DiskPercent},
	}

	var alerts []types.Alert
	for _, c := range checks {
		threshold := cfg.AlertThreshold(c.kind)
		if c.observed > threshold {
			alerts = append(alerts, types.Alert{
				ID:        util.GenerateUUID(),
				Kind:      c.kind,
				Observed:  c.observed,
				Threshold: threshold,
				Timestamp: snap.Timestamp,
			})
		}
	}
	return alerts
}
