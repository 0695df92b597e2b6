// Package reporter 实现监控循环产出的各种消费端：
// 守护模式的事件日志和历史记录落盘，以及交互式终端面板。
package reporter

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dreamsxin/sysguard/monitor"
	"github.com/dreamsxin/sysguard/types"
	"github.com/dreamsxin/sysguard/util"
)

// Level 事件日志级别
type Level string

const (
	LevelInfo   Level = "INFO"
	LevelWarn   Level = "WARN"
	LevelAlert  Level = "ALERT"
	LevelAction Level = "ACTION"
	LevelError  Level = "ERROR"
)

// EventLog 守护模式的事件日志，每个事件追加一行：
//
//	2006-01-02 15:04:05 [LEVEL] message
type EventLog struct {
	mu   sync.Mutex
	file *os.File
}

// NewEventLog 打开（必要时创建）事件日志文件
func NewEventLog(path string) (*EventLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &EventLog{file: file}, nil
}

// Write 追加一条事件
func (l *EventLog) Write(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.file, "%s [%s] %s\n", ts, level, fmt.Sprintf(format, args...))
}

// Report 把一个周期的告警和修复结果写入日志
func (l *EventLog) Report(tick monitor.Tick) error {
	for _, alert := range tick.Alerts {
		l.Write(LevelAlert, "[%s] %s", util.ShortID(alert.ID), alert)
	}
	for _, o := range tick.Outcomes {
		switch o.Status {
		case types.OutcomeTerminated:
			l.Write(LevelAction, "[%s] %s alert: %s", util.ShortID(o.ID), o.Kind, o)
		case types.OutcomeFailed:
			l.Write(LevelError, "[%s] %s alert: %s", util.ShortID(o.ID), o.Kind, o)
		default:
			l.Write(LevelWarn, "[%s] %s alert: %s", util.ShortID(o.ID), o.Kind, o)
		}
	}
	return nil
}

// Close 关闭日志文件
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
