package workers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type countingExpirer struct {
	calls atomic.Int64
}

func (c *countingExpirer) ExpireTimedOut(now time.Time) int {
	c.calls.Inc()
	return 1
}

type countingRecomputer struct {
	calls atomic.Int64
	err   error
}

func (c *countingRecomputer) Recompute() error {
	c.calls.Inc()
	return c.err
}

func TestMonitorTicks(t *testing.T) {
	exp := &countingExpirer{}
	m := NewMonitor(exp, 5*time.Millisecond)

	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		return exp.calls.Load() >= 2
	}, time.Second, time.Millisecond)
}

func TestMonitorStopHaltsLoop(t *testing.T) {
	exp := &countingExpirer{}
	m := NewMonitor(exp, 5*time.Millisecond)

	m.Start()
	require.Eventually(t, func() bool {
		return exp.calls.Load() >= 1
	}, time.Second, time.Millisecond)
	m.Stop()

	settled := exp.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, settled, exp.calls.Load())
}

func TestMonitorRestart(t *testing.T) {
	exp := &countingExpirer{}
	m := NewMonitor(exp, 5*time.Millisecond)

	m.Start()
	m.Stop()
	after := exp.calls.Load()

	m.Start()
	defer m.Stop()
	require.Eventually(t, func() bool {
		return exp.calls.Load() > after
	}, time.Second, time.Millisecond)
}

func TestMonitorStartIsIdempotent(t *testing.T) {
	exp := &countingExpirer{}
	m := NewMonitor(exp, time.Hour)

	m.Start()
	m.Start() // second call must not spawn a second loop
	m.Stop()
	m.Stop() // double stop must not panic on a closed channel
}

func TestStatsWorkerTicks(t *testing.T) {
	rec := &countingRecomputer{}
	w := NewStatsWorker(rec, 5*time.Millisecond)

	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		return rec.calls.Load() >= 2
	}, time.Second, time.Millisecond)
}

func TestStatsWorkerKeepsTickingOnError(t *testing.T) {
	rec := &countingRecomputer{err: errors.New("store unavailable")}
	w := NewStatsWorker(rec, 5*time.Millisecond)

	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		return rec.calls.Load() >= 3
	}, time.Second, time.Millisecond)
}
