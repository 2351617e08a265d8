package sync

// Semaphore caps in-flight mailbox fetch tasks globally. A permit is
// held for the whole lifetime of a spawned mailbox task.
type Semaphore struct {
	permits chan struct{}
}

func NewSemaphore(max int) *Semaphore {
	if max < 1 {
		max = 1
	}
	return &Semaphore{permits: make(chan struct{}, max)}
}

func (s *Semaphore) Acquire() {
	s.permits <- struct{}{}
}

func (s *Semaphore) Release() {
	<-s.permits
}
