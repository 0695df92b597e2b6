package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dreamsxin/sysguard/monitor"
	"github.com/dreamsxin/sysguard/types"
)

// ANSI控制序列
const (
	ansiClear  = "\033[2J\033[H"
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiDim    = "\033[2m"
)

const barWidth = 30

// 面板底部保留的最近事件条数
const recentEvents = 8

// Dashboard 交互式终端面板，每个周期整屏重绘
type Dashboard struct {
	w      io.Writer
	cfg    *types.Config
	start  time.Time
	recent []string
}

// NewDashboard 创建终端面板
func NewDashboard(w io.Writer, cfg *types.Config) *Dashboard {
	return &Dashboard{w: w, cfg: cfg, start: time.Now()}
}

// Report 渲染一个周期的快照、告警和修复结果
func (d *Dashboard) Report(tick monitor.Tick) error {
	snap := tick.Snapshot

	for _, alert := range tick.Alerts {
		d.remember(fmt.Sprintf("%s  %s%s%s", alert.Timestamp.Format("15:04:05"), ansiYellow, alert, ansiReset))
	}
	for _, o := range tick.Outcomes {
		color := ansiYellow
		if o.Status == types.OutcomeTerminated {
			color = ansiRed
		}
		d.remember(fmt.Sprintf("%s  %s%s%s", o.Timestamp.Format("15:04:05"), color, o, ansiReset))
	}

	var sb strings.Builder
	sb.WriteString(ansiClear)
	fmt.Fprintf(&sb, "%ssysguard%s  %s  uptime %s\n\n",
		ansiBold, ansiReset,
		snap.Timestamp.Format("2006-01-02 15:04:05"),
		time.Since(d.start).Round(time.Second))

	d.writeBar(&sb, "CPU ", snap.CPUPercent, types.MetricCPU)
	d.writeBar(&sb, "MEM ", snap.MemoryPercent, types.MetricMemory)
	d.writeBar(&sb, "DISK", snap.DiskPercent, types.MetricDisk)

	fmt.Fprintf(&sb, "\nNET  rx %d KB/s  tx %d KB/s\n", snap.NetworkRxKBps, snap.NetworkTxKBps)

	sb.WriteString("\n" + ansiBold + "  PID      USER        CPU%   MEM%  COMMAND" + ansiReset + "\n")
	for _, p := range snap.TopProcesses {
		fmt.Fprintf(&sb, "  %-8d %-10s %6.1f %6.1f  %s\n",
			p.PID, truncate(p.User, 10), p.CPUPercent, p.MemoryPercent, truncate(p.Name, 24))
	}

	if len(d.recent) > 0 {
		sb.WriteString("\n" + ansiBold + "Recent events" + ansiReset + "\n")
		for _, line := range d.recent {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}

	if !d.cfg.AutoKillEnabled {
		sb.WriteString("\n" + ansiDim + "auto remediation disabled" + ansiReset + "\n")
	}

	_, err := io.WriteString(d.w, sb.String())
	return err
}

// writeBar 渲染单条用量条
//
// 颜色档位：低于告警阈值绿色，告警和终止阈值之间黄色，超过终止阈值红色。
func (d *Dashboard) writeBar(sb *strings.Builder, label string, pct float64, kind types.MetricKind) {
	alert := d.cfg.AlertThreshold(kind)
	kill, ok := d.cfg.KillThreshold(kind)
	if !ok {
		kill = 100
	}

	color := ansiGreen
	switch {
	case pct > kill:
		color = ansiRed
	case pct > alert:
		color = ansiYellow
	}

	filled := int(pct / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Fprintf(sb, "%s [%s%s%s] %s%5.1f%%%s\n", label, color, bar, ansiReset, color, pct, ansiReset)
}

func (d *Dashboard) remember(line string) {
	d.recent = append(d.recent, line)
	if len(d.recent) > recentEvents {
		d.recent = d.recent[len(d.recent)-recentEvents:]
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
