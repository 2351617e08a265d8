package sync

import (
	"time"

	"github.com/therolffr/bichon/internal/logger"
)

type syncTrigger struct {
	accountID uint64
	email     string
}

// SyncController is the serialized entry point that starts one sync task
// per account. Triggers queue on a bounded channel drained by a single
// consumer.
type SyncController struct {
	channel chan syncTrigger
	tasks   *AccountSyncTasks
	log     logger.Logger
}

func NewSyncController(tasks *AccountSyncTasks, log logger.Logger) *SyncController {
	c := &SyncController{
		channel: make(chan syncTrigger, 100),
		tasks:   tasks,
		log:     log,
	}
	go c.consume()
	return c
}

func (c *SyncController) consume() {
	for trigger := range c.channel {
		c.log.Infof("Account syncer starting for account: %d-%s", trigger.accountID, trigger.email)
		c.tasks.Start(trigger.accountID, trigger.email)
		time.Sleep(100 * time.Millisecond)
	}
}

// TriggerStart requests synchronization for an account.
func (c *SyncController) TriggerStart(accountID uint64, email string) {
	select {
	case c.channel <- syncTrigger{accountID: accountID, email: email}:
	default:
		c.log.Errorf("Failed to trigger synchronization for account %d: trigger channel full", accountID)
	}
}

// StopAccount cancels the account's sync task.
func (c *SyncController) StopAccount(accountID uint64) {
	c.tasks.Stop(accountID)
}
