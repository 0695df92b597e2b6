package remedy

import (
	"time"

	"github.com/dreamsxin/sysguard/types"
)

// Tracker 终止冷却跟踪器
//
// 记录最近被终止的进程，冷却窗口内同一PID不会被再次终止。
// 不变式：任意时刻所有记录都满足 now - killed_at < window，
// 每个PID至多一条记录，新的终止覆盖旧时间戳。
//
// 本设计中每个采样周期串行访问，不需要加锁；引入并发采样时
// 必须串行化访问（这是引擎里唯一的共享可变状态）。
type Tracker struct {
	window  time.Duration
	records map[int]types.KillRecord
}

// NewTracker 创建冷却跟踪器
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{
		window:  window,
		records: make(map[int]types.KillRecord),
	}
}

// Record 记录一次终止，覆盖该PID已有的记录
func (t *Tracker) Record(pid int, now time.Time) {
	t.records[pid] = types.KillRecord{PID: pid, KilledAt: now}
}

// Prune 清除冷却窗口之外的过期记录
//
// 不清除的话记录会随进程生命周期无限增长，过期记录也可能
// 产生错误的"冷却中"判定。
func (t *Tracker) Prune(now time.Time) {
	for pid, rec := range t.records {
		if now.Sub(rec.KilledAt) >= t.window {
			delete(t.records, pid)
		}
	}
}

// IsCoolingDown 判断PID是否处于冷却窗口内，查询前先清理过期记录
func (t *Tracker) IsCoolingDown(pid int, now time.Time) bool {
	t.Prune(now)
	_, ok := t.records[pid]
	return ok
}

// Size 返回当前存活的记录数量
func (t *Tracker) Size() int {
	return len(t.records)
}
