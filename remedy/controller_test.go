package remedy

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/sysguard/types"
)

// fakeOps 测试用的进程操作实现，不发送任何真实信号
type fakeOps struct {
	alive      map[int]bool
	started    map[int]time.Time
	termErr    error
	killErr    error
	termSent   []int
	killSent   []int
	exitOnTerm bool // SIGTERM后在宽限期内自行退出
}

func (f *fakeOps) Alive(pid int) bool { return f.alive[pid] }

func (f *fakeOps) StartedAt(pid int) (time.Time, bool) {
	t, ok := f.started[pid]
	return t, ok
}

func (f *fakeOps) SignalTerm(pid int) error {
	f.termSent = append(f.termSent, pid)
	if f.termErr != nil {
		return f.termErr
	}
	if f.exitOnTerm {
		f.alive[pid] = false
	}
	return nil
}

func (f *fakeOps) SignalKill(pid int) error {
	f.killSent = append(f.killSent, pid)
	if f.killErr != nil {
		return f.killErr
	}
	f.alive[pid] = false
	return nil
}

const testSelfPID = 99999

func testConfig() *types.Config {
	return &types.Config{
		Interval:         5 * time.Second,
		CPUThreshold:     80,
		MemThreshold:     85,
		DiskThreshold:    90,
		CPUKillThreshold: 95,
		MemKillThreshold: 95,
		CPUUsageFloor:    50,
		MemUsageFloor:    20,
		AutoKillEnabled:  true,
		KillCooldown:     60 * time.Second,
		GracePeriod:      2 * time.Second,
	}
}

func newTestController(cfg *types.Config, protected []string, ops ProcessOps) (*Controller, *Tracker) {
	tracker := NewTracker(cfg.KillCooldown)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewController(cfg, NewRegistry(protected), tracker, logger)
	c.ops = ops
	c.selfPID = testSelfPID
	c.sleep = func(time.Duration) {}
	return c, tracker
}

func cpuAlert(observed float64) types.Alert {
	return types.Alert{ID: "a1", Kind: types.MetricCPU, Observed: observed, Threshold: 80, Timestamp: time.Now()}
}

func memAlert(observed float64) types.Alert {
	return types.Alert{ID: "a2", Kind: types.MetricMemory, Observed: observed, Threshold: 85, Timestamp: time.Now()}
}

func snapshot(procs ...types.ProcessSample) *types.MetricSnapshot {
	return &types.MetricSnapshot{Timestamp: time.Now(), TopProcesses: procs}
}

func TestShouldActBelowKillThreshold(t *testing.T) {
	c, _ := newTestController(testConfig(), nil, &fakeOps{})

	// 超过告警阈值但低于终止阈值：只告警不修复
	assert.False(t, c.ShouldAct(cpuAlert(85)))
	assert.True(t, c.ShouldAct(cpuAlert(96)))
	// 恰好等于终止阈值即可进入
	assert.True(t, c.ShouldAct(cpuAlert(95)))
}

func TestShouldActDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AutoKillEnabled = false
	c, _ := newTestController(cfg, nil, &fakeOps{})
	assert.False(t, c.ShouldAct(cpuAlert(100)))
}

func TestShouldActDiskNeverRemediated(t *testing.T) {
	c, _ := newTestController(testConfig(), nil, &fakeOps{})
	alert := types.Alert{Kind: types.MetricDisk, Observed: 100, Threshold: 90}
	assert.False(t, c.ShouldAct(alert))
}

func TestRemediateGraceful(t *testing.T) {
	ops := &fakeOps{alive: map[int]bool{200: true}, exitOnTerm: true}
	c, tracker := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeTerminated, outcome.Status)
	assert.Equal(t, types.TerminateGraceful, outcome.Method)
	assert.Equal(t, 200, outcome.PID)
	assert.Equal(t, []int{200}, ops.termSent)
	assert.Empty(t, ops.killSent)
	// 终止后立即进入冷却
	assert.True(t, tracker.IsCoolingDown(200, time.Now()))
}

func TestRemediateForced(t *testing.T) {
	// SIGTERM后进程仍存活，宽限期结束补发SIGKILL
	ops := &fakeOps{alive: map[int]bool{200: true}}
	c, tracker := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeTerminated, outcome.Status)
	assert.Equal(t, types.TerminateForced, outcome.Method)
	assert.Equal(t, []int{200}, ops.termSent)
	assert.Equal(t, []int{200}, ops.killSent)
	assert.True(t, tracker.IsCoolingDown(200, time.Now()))
}

func TestRemediateBelowUsageFloor(t *testing.T) {
	// 相对最高但绝对值低于门槛，不终止
	ops := &fakeOps{alive: map[int]bool{200: true}}
	c, _ := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "idle-ish", CPUPercent: 40})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeSkipped, outcome.Status)
	assert.Equal(t, types.ReasonBelowFloor, outcome.Reason)
	assert.Empty(t, ops.termSent)
}

func TestRemediateProtected(t *testing.T) {
	ops := &fakeOps{alive: map[int]bool{200: true}}
	c, _ := newTestController(testConfig(), []string{"postgres"}, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "postgres-14", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeSkipped, outcome.Status)
	assert.Equal(t, types.ReasonProtected, outcome.Reason)
	assert.Empty(t, ops.termSent)
	assert.Empty(t, ops.killSent)
}

func TestRemediateMemoryAboveFloor(t *testing.T) {
	// 内存告警：候选内存25%超过20%门槛，可终止
	ops := &fakeOps{alive: map[int]bool{300: true}, exitOnTerm: true}
	c, _ := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 300, Name: "leaky", CPUPercent: 5, MemoryPercent: 25})
	outcome := c.Remediate(memAlert(96), snap)

	assert.Equal(t, types.OutcomeTerminated, outcome.Status)
	assert.Equal(t, 300, outcome.PID)
}

func TestRemediateMemoryPicksHighestMemory(t *testing.T) {
	ops := &fakeOps{alive: map[int]bool{1: true, 2: true}, exitOnTerm: true}
	c, _ := newTestController(testConfig(), nil, ops)

	// 列表按CPU降序，内存告警必须选内存最高者
	snap := snapshot(
		types.ProcessSample{PID: 1, Name: "cpu-heavy", CPUPercent: 90, MemoryPercent: 10},
		types.ProcessSample{PID: 2, Name: "mem-heavy", CPUPercent: 30, MemoryPercent: 45},
	)
	outcome := c.Remediate(memAlert(96), snap)

	assert.Equal(t, types.OutcomeTerminated, outcome.Status)
	assert.Equal(t, 2, outcome.PID)
}

func TestRemediateCooldownActive(t *testing.T) {
	ops := &fakeOps{alive: map[int]bool{200: true}}
	c, tracker := newTestController(testConfig(), nil, ops)
	tracker.Record(200, time.Now())

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeSkipped, outcome.Status)
	assert.Equal(t, types.ReasonCooldownActive, outcome.Reason)
	assert.Empty(t, ops.termSent)
}

func TestRemediateCooldownExpired(t *testing.T) {
	ops := &fakeOps{alive: map[int]bool{200: true}, exitOnTerm: true}
	c, tracker := newTestController(testConfig(), nil, ops)
	tracker.Record(200, time.Now().Add(-61*time.Second))

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeTerminated, outcome.Status)
}

func TestRemediateNoCandidate(t *testing.T) {
	c, _ := newTestController(testConfig(), nil, &fakeOps{})

	outcome := c.Remediate(cpuAlert(96), snapshot())
	assert.Equal(t, types.OutcomeSkipped, outcome.Status)
	assert.Equal(t, types.ReasonNoCandidate, outcome.Reason)
}

func TestRemediateExcludesSelfAndHelpers(t *testing.T) {
	ops := &fakeOps{alive: map[int]bool{7: true}}
	c, _ := newTestController(testConfig(), nil, ops)

	snap := snapshot(
		types.ProcessSample{PID: testSelfPID, Name: "sysguard", CPUPercent: 95},
		types.ProcessSample{PID: 7, Name: "ps", CPUPercent: 90},
	)
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeSkipped, outcome.Status)
	assert.Equal(t, types.ReasonNoCandidate, outcome.Reason)
}

func TestRemediateProcessExited(t *testing.T) {
	// 采样和修复之间候选进程退出
	ops := &fakeOps{alive: map[int]bool{}}
	c, _ := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeSkipped, outcome.Status)
	assert.Equal(t, types.ReasonProcessExited, outcome.Reason)
	assert.Empty(t, ops.termSent)
}

func TestRemediatePIDReused(t *testing.T) {
	// PID存在但启动时间对不上：已被其他进程复用
	sampledStart := time.Now().Add(-time.Hour)
	ops := &fakeOps{
		alive:   map[int]bool{200: true},
		started: map[int]time.Time{200: time.Now()},
	}
	c, _ := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92, StartTime: sampledStart})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeSkipped, outcome.Status)
	assert.Equal(t, types.ReasonProcessExited, outcome.Reason)
	assert.Empty(t, ops.termSent)
}

func TestRemediateStartTimeMatches(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	ops := &fakeOps{
		alive:      map[int]bool{200: true},
		started:    map[int]time.Time{200: start},
		exitOnTerm: true,
	}
	c, _ := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92, StartTime: start})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeTerminated, outcome.Status)
}

func TestRemediateSignalFailure(t *testing.T) {
	ops := &fakeOps{
		alive:   map[int]bool{200: true},
		termErr: errors.New("operation not permitted"),
	}
	c, tracker := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	assert.Equal(t, types.OutcomeFailed, outcome.Status)
	assert.Contains(t, outcome.Reason, "not permitted")
	// 失败不占用冷却额度
	assert.False(t, tracker.IsCoolingDown(200, time.Now()))
}

func TestRemediateTermRaceGone(t *testing.T) {
	// 确认存在之后、SIGTERM投递之前进程退出，等同优雅终止
	ops := &fakeOps{alive: map[int]bool{200: true}, termErr: ErrProcessGone}
	c, tracker := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	require.Equal(t, types.OutcomeTerminated, outcome.Status)
	assert.Equal(t, types.TerminateGraceful, outcome.Method)
	assert.True(t, tracker.IsCoolingDown(200, time.Now()))
}

func TestRemediateKillRaceGone(t *testing.T) {
	// 宽限期后仍存活，但SIGKILL投递时已死于SIGTERM
	ops := &fakeOps{alive: map[int]bool{200: true}, killErr: ErrProcessGone}
	c, _ := newTestController(testConfig(), nil, ops)

	snap := snapshot(types.ProcessSample{PID: 200, Name: "stress", CPUPercent: 92})
	outcome := c.Remediate(cpuAlert(96), snap)

	require.Equal(t, types.OutcomeTerminated, outcome.Status)
	assert.Equal(t, types.TerminateGraceful, outcome.Method)
}
