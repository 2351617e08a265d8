package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/therolffr/bichon/internal/enum"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/periodic"
	"github.com/therolffr/bichon/internal/shutdown"
)

const (
	syncTaskInterval = 10 * time.Second
	// disabledWarnInterval throttles the disabled-account warning.
	disabledWarnInterval = int64(10 * 60 * 1000)
	// oauthWarnInterval throttles the missing-OAuth2-token warning.
	oauthWarnInterval = int64(5 * 60 * 1000)
)

// AccountSyncTasks owns one periodic sync task per account, keyed by
// account id. Stop cancels the task and waits for its loop to exit.
type AccountSyncTasks struct {
	service *SyncService
	signal  *shutdown.SignalManager
	log     logger.Logger

	mu    sync.Mutex
	tasks map[uint64]*periodic.TaskHandle

	// Throttle timestamps are global, not per account; under heavy
	// fan-out warnings may coalesce across accounts.
	lastDisabledWarn atomic.Int64
	lastOAuthWarn    atomic.Int64
}

func NewAccountSyncTasks(service *SyncService, signal *shutdown.SignalManager, log logger.Logger) *AccountSyncTasks {
	return &AccountSyncTasks{
		service: service,
		signal:  signal,
		log:     log,
		tasks:   make(map[uint64]*periodic.TaskHandle),
	}
}

// Start spawns the recurring sync task for one account.
func (t *AccountSyncTasks) Start(accountID uint64, email string) {
	taskName := fmt.Sprintf("account-sync-task-%d-%s", accountID, email)
	task := periodic.NewPeriodicTask(taskName, t.log, t.signal)
	handle := task.Start(t.tick, accountID, syncTaskInterval, true, true)

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.tasks[accountID]; ok {
		go existing.Cancel()
	}
	t.tasks[accountID] = handle
}

// Stop cancels the account's task and awaits its join.
func (t *AccountSyncTasks) Stop(accountID uint64) {
	t.mu.Lock()
	handle, ok := t.tasks[accountID]
	delete(t.tasks, accountID)
	t.mu.Unlock()

	if !ok {
		t.log.Warnf("No sync task found for account: %d", accountID)
		return
	}
	handle.Cancel()
}

// tick runs one scheduled sync attempt for the account. Gate order:
// account existence, enabled flag, OAuth2 authorization; only then does
// the engine run. Tick failures feed the error dispatcher and never
// abort the loop.
func (t *AccountSyncTasks) tick(ctx context.Context, accountID uint64) error {
	account, err := t.service.repos.AccountRepository.GetByID(ctx, accountID)
	if err != nil {
		t.log.Errorf("Account %d: sync aborted, account load failed: %v", accountID, err)
		return nil
	}
	if account == nil {
		t.log.Errorf("Account %d: sync aborted, account entity not found", accountID)
		return nil
	}

	if !account.Enabled {
		now := timeNowMillis()
		if now-t.lastDisabledWarn.Load() >= disabledWarnInterval {
			t.lastDisabledWarn.Store(now)
			t.log.Warnf("Account %d: sync aborted, account is currently disabled", accountID)
		}
		return nil
	}

	if account.Imap != nil && account.Imap.AuthType == enum.AuthTypeOAuth2 {
		token, err := t.service.repos.OAuth2TokenRepository.Get(ctx, account.ID)
		if err != nil {
			return err
		}
		if token == nil {
			now := timeNowMillis()
			if now-t.lastOAuthWarn.Load() >= oauthWarnInterval {
				t.lastOAuthWarn.Store(now)
				t.log.Warnf("Account %d: sync aborted, OAuth2 authorization not completed. "+
					"Please visit the admin page to authorize this account.", accountID)
			}
			return nil
		}
	}

	if err := t.service.ExecuteSync(ctx, account); err != nil {
		t.service.reportError(accountID, err)
		t.log.Errorf("Failed to synchronize mailbox data for account %d: %v", accountID, err)
	}
	return nil
}

func timeNowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
