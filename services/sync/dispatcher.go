package sync

import (
	"context"

	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/logger"
)

type errorEvent struct {
	accountID uint64
	message   string
}

// ErrorDispatcher serializes all error-ring appends through a single
// consumer so producers never contend on running-state transactions.
type ErrorDispatcher struct {
	channel chan errorEvent
	states  interfaces.AccountStateRepository
	log     logger.Logger
}

func NewErrorDispatcher(states interfaces.AccountStateRepository, log logger.Logger) *ErrorDispatcher {
	d := &ErrorDispatcher{
		channel: make(chan errorEvent, 100),
		states:  states,
		log:     log,
	}
	go d.consume()
	return d
}

func (d *ErrorDispatcher) consume() {
	for event := range d.channel {
		if err := d.states.AppendErrorMessage(context.Background(), event.accountID, event.message); err != nil {
			d.log.Errorf("Failed to append error for account %d: %v", event.accountID, err)
		}
	}
}

// AppendError enqueues one error event. A full channel drops the event
// rather than stalling sync.
func (d *ErrorDispatcher) AppendError(accountID uint64, message string) {
	select {
	case d.channel <- errorEvent{accountID: accountID, message: message}:
	default:
		d.log.Errorf("Error dispatch channel full, dropping event for account %d: %s", accountID, message)
	}
}
