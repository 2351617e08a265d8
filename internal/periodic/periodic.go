package periodic

import (
	"context"
	"time"

	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/shutdown"
)

// TaskFunc runs one tick. Errors are logged; they never abort the loop.
type TaskFunc func(ctx context.Context, param uint64) error

// PeriodicTask drives a named tick loop. Ticks fire on a fixed interval
// with skip-on-miss semantics: a delayed tick collapses into one, never
// a burst. The loop exits on explicit cancel (when enabled) or on the
// global shutdown broadcast; in-flight tick work is allowed to finish.
type PeriodicTask struct {
	name   string
	log    logger.Logger
	signal *shutdown.SignalManager
}

// TaskHandle owns one running loop.
type TaskHandle struct {
	cancel chan struct{}
	done   chan struct{}
}

// Cancel stops the loop and waits for it to exit. Safe to call once.
func (h *TaskHandle) Cancel() {
	if h.cancel != nil {
		close(h.cancel)
	}
	<-h.done
}

// Wait blocks until the loop has exited for any reason.
func (h *TaskHandle) Wait() {
	<-h.done
}

func NewPeriodicTask(name string, log logger.Logger, signal *shutdown.SignalManager) *PeriodicTask {
	return &PeriodicTask{name: name, log: log, signal: signal}
}

func (p *PeriodicTask) Start(task TaskFunc, param uint64, interval time.Duration, enableCancel, runImmediately bool) *TaskHandle {
	p.log.Infof("Task '%s' started", p.name)

	var cancelCh chan struct{}
	if enableCancel {
		cancelCh = make(chan struct{})
	}
	handle := &TaskHandle{cancel: cancelCh, done: make(chan struct{})}
	shutdownCh := p.signal.Subscribe()

	go func() {
		defer close(handle.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		cancelWait := cancelChOrNever(cancelCh)

		if runImmediately {
			p.runOnce(task, param)
		}

		for {
			select {
			case <-ticker.C:
				// Drain any tick that queued while work was running so
				// an overdue tick never fires a burst.
				select {
				case <-ticker.C:
				default:
				}
				p.runOnce(task, param)
			case <-cancelWait:
				p.log.Infof("Task '%s' received cancellation signal", p.name)
				return
			case <-shutdownCh:
				p.log.Infof("Task '%s' shutting down due to shutdown signal", p.name)
				return
			}
		}
	}()

	return handle
}

func (p *PeriodicTask) runOnce(task TaskFunc, param uint64) {
	if err := task(context.Background(), param); err != nil {
		p.log.Warnf("Task '%s' failed: %v", p.name, err)
	}
}

// cancelChOrNever turns a nil cancel channel into one that never fires.
func cancelChOrNever(ch chan struct{}) <-chan struct{} {
	if ch == nil {
		return make(chan struct{})
	}
	return ch
}
