package periodic

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/shutdown"
)

func testLogger(t *testing.T) logger.Logger {
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	return log
}

func TestPeriodicTask_RunImmediately(t *testing.T) {
	signal := shutdown.NewSignalManager()
	var ticks atomic.Int32

	task := NewPeriodicTask("test-immediate", testLogger(t), signal)
	handle := task.Start(func(ctx context.Context, _ uint64) error {
		ticks.Add(1)
		return nil
	}, 0, time.Hour, true, true)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), ticks.Load(), "run_immediately must fire before the first interval")
	handle.Cancel()
}

func TestPeriodicTask_FirstTickDiscarded(t *testing.T) {
	signal := shutdown.NewSignalManager()
	var ticks atomic.Int32

	task := NewPeriodicTask("test-deferred", testLogger(t), signal)
	handle := task.Start(func(ctx context.Context, _ uint64) error {
		ticks.Add(1)
		return nil
	}, 0, time.Hour, true, false)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), ticks.Load(), "without run_immediately nothing fires before the interval")
	handle.Cancel()
}

func TestPeriodicTask_IntervalTicks(t *testing.T) {
	signal := shutdown.NewSignalManager()
	var ticks atomic.Int32

	task := NewPeriodicTask("test-interval", testLogger(t), signal)
	handle := task.Start(func(ctx context.Context, _ uint64) error {
		ticks.Add(1)
		return nil
	}, 0, 20*time.Millisecond, true, false)

	time.Sleep(110 * time.Millisecond)
	handle.Cancel()

	count := ticks.Load()
	assert.GreaterOrEqual(t, count, int32(3))
	assert.LessOrEqual(t, count, int32(6), "skip-on-miss must prevent tick bursts")
}

func TestPeriodicTask_CancelStopsLoop(t *testing.T) {
	signal := shutdown.NewSignalManager()
	var ticks atomic.Int32

	task := NewPeriodicTask("test-cancel", testLogger(t), signal)
	handle := task.Start(func(ctx context.Context, _ uint64) error {
		ticks.Add(1)
		return nil
	}, 0, 10*time.Millisecond, true, false)

	time.Sleep(35 * time.Millisecond)
	handle.Cancel()
	after := ticks.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no ticks may fire after cancel")
}

func TestPeriodicTask_ShutdownStopsLoop(t *testing.T) {
	signal := shutdown.NewSignalManager()
	var ticks atomic.Int32

	task := NewPeriodicTask("test-shutdown", testLogger(t), signal)
	handle := task.Start(func(ctx context.Context, _ uint64) error {
		ticks.Add(1)
		return nil
	}, 0, 10*time.Millisecond, false, false)

	time.Sleep(35 * time.Millisecond)
	signal.Shutdown()
	handle.Wait()
	after := ticks.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestPeriodicTask_ErrorsDoNotAbortLoop(t *testing.T) {
	signal := shutdown.NewSignalManager()
	var ticks atomic.Int32

	task := NewPeriodicTask("test-errors", testLogger(t), signal)
	handle := task.Start(func(ctx context.Context, _ uint64) error {
		ticks.Add(1)
		return assert.AnError
	}, 0, 10*time.Millisecond, true, false)

	time.Sleep(55 * time.Millisecond)
	handle.Cancel()

	assert.GreaterOrEqual(t, ticks.Load(), int32(2), "failing ticks must not stop the loop")
}

func TestPeriodicTask_ParamPassedThrough(t *testing.T) {
	signal := shutdown.NewSignalManager()
	var seen atomic.Uint64

	task := NewPeriodicTask("test-param", testLogger(t), signal)
	handle := task.Start(func(ctx context.Context, param uint64) error {
		seen.Store(param)
		return nil
	}, 42, time.Hour, true, true)

	time.Sleep(50 * time.Millisecond)
	handle.Cancel()
	assert.Equal(t, uint64(42), seen.Load())
}

func TestSignalManager_BroadcastReachesAllSubscribers(t *testing.T) {
	signal := shutdown.NewSignalManager()
	first := signal.Subscribe()
	second := signal.Subscribe()

	signal.Shutdown()
	signal.Shutdown() // idempotent

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("first subscriber did not observe shutdown")
	}
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second subscriber did not observe shutdown")
	}
}
