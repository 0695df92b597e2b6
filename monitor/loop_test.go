package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/sysguard/types"
)

func loopConfig() *types.Config {
	return &types.Config{
		Interval:         time.Millisecond,
		CPUThreshold:     80,
		MemThreshold:     85,
		DiskThreshold:    90,
		CPUKillThreshold: 95,
		MemKillThreshold: 95,
	}
}

type sampleResult struct {
	snap *types.MetricSnapshot
	err  error
}

// scriptedSampler 按脚本逐次返回结果，耗尽脚本后取消上下文
type scriptedSampler struct {
	script []sampleResult
	calls  int
	cancel context.CancelFunc
}

func (s *scriptedSampler) Sample(ctx context.Context) (*types.MetricSnapshot, error) {
	if s.calls >= len(s.script) {
		s.cancel()
		return nil, ctx.Err()
	}
	r := s.script[s.calls]
	s.calls++
	if s.calls == len(s.script) {
		s.cancel()
	}
	return r.snap, r.err
}

type recordingReporter struct {
	ticks []Tick
}

func (r *recordingReporter) Report(tick Tick) error {
	r.ticks = append(r.ticks, tick)
	return nil
}

type fakeRemediator struct {
	acted []types.Alert
}

func (f *fakeRemediator) ShouldAct(alert types.Alert) bool {
	return alert.Kind != types.MetricDisk && alert.Observed >= 95
}

func (f *fakeRemediator) Remediate(alert types.Alert, snap *types.MetricSnapshot) types.RemediationOutcome {
	f.acted = append(f.acted, alert)
	return types.RemediationOutcome{
		AlertID: alert.ID,
		Kind:    alert.Kind,
		Status:  types.OutcomeTerminated,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runLoop(t *testing.T, script []sampleResult, remediator Remediator) *recordingReporter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampler := &scriptedSampler{script: script, cancel: cancel}
	reporter := &recordingReporter{}
	loop := NewLoop(loopConfig(), sampler, remediator, reporter, testLogger())

	require.NoError(t, loop.Run(ctx))
	return reporter
}

func TestLoopReportsEveryTick(t *testing.T) {
	reporter := runLoop(t, []sampleResult{
		{snap: &types.MetricSnapshot{CPUPercent: 10}},
		{snap: &types.MetricSnapshot{CPUPercent: 20}},
	}, nil)

	require.Len(t, reporter.ticks, 2)
	assert.Equal(t, 10.0, reporter.ticks[0].Snapshot.CPUPercent)
	assert.Equal(t, 20.0, reporter.ticks[1].Snapshot.CPUPercent)
	assert.Empty(t, reporter.ticks[0].Alerts)
}

func TestLoopSurvivesSamplingError(t *testing.T) {
	// 采样失败只跳过本周期，循环继续
	reporter := runLoop(t, []sampleResult{
		{err: errors.New("proc unreadable")},
		{snap: &types.MetricSnapshot{CPUPercent: 30}},
	}, nil)

	require.Len(t, reporter.ticks, 1)
	assert.Equal(t, 30.0, reporter.ticks[0].Snapshot.CPUPercent)
}

func TestLoopRemediatesQualifyingAlerts(t *testing.T) {
	remediator := &fakeRemediator{}
	reporter := runLoop(t, []sampleResult{
		// CPU超过终止阈值，内存只超过告警阈值，磁盘超阈值但不可修复
		{snap: &types.MetricSnapshot{CPUPercent: 96, MemoryPercent: 90, DiskPercent: 95}},
	}, remediator)

	require.Len(t, reporter.ticks, 1)
	tick := reporter.ticks[0]
	assert.Len(t, tick.Alerts, 3)

	require.Len(t, remediator.acted, 1)
	assert.Equal(t, types.MetricCPU, remediator.acted[0].Kind)

	require.Len(t, tick.Outcomes, 1)
	assert.Equal(t, tick.Alerts[0].ID, tick.Outcomes[0].AlertID)
}

func TestLoopObservationOnly(t *testing.T) {
	// remediator为nil时告警照常产生，不做修复
	reporter := runLoop(t, []sampleResult{
		{snap: &types.MetricSnapshot{CPUPercent: 99}},
	}, nil)

	require.Len(t, reporter.ticks, 1)
	assert.Len(t, reporter.ticks[0].Alerts, 1)
	assert.Empty(t, reporter.ticks[0].Outcomes)
}

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sampler := &scriptedSampler{cancel: func() {}}
	loop := NewLoop(loopConfig(), sampler, nil, &recordingReporter{}, testLogger())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
}
