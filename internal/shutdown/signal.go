package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalManager broadcasts a single process-wide shutdown event fed by
// SIGINT/SIGTERM. Subscribers receive a channel that closes exactly
// once.
type SignalManager struct {
	ch   chan struct{}
	once sync.Once
}

func NewSignalManager() *SignalManager {
	return &SignalManager{ch: make(chan struct{})}
}

// Install arms the OS signal handlers. Call once before spawning any
// long-running task.
func (m *SignalManager) Install() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		m.Shutdown()
	}()
}

// Subscribe returns the broadcast channel; it is closed on shutdown.
func (m *SignalManager) Subscribe() <-chan struct{} {
	return m.ch
}

// Shutdown triggers the broadcast. Idempotent.
func (m *SignalManager) Shutdown() {
	m.once.Do(func() { close(m.ch) })
}
