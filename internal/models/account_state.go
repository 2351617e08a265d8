package models

import (
	"database/sql/driver"

	"github.com/therolffr/bichon/internal/utils"
)

// ErrorCountPerAccount caps the per-account error ring. Every mutator
// that appends enforces the bound; overflow drops the oldest entry.
const ErrorCountPerAccount = 30

type AccountError struct {
	Error string `json:"error"`
	At    int64  `json:"at"`
}

type AccountErrorList []AccountError

func (l AccountErrorList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *AccountErrorList) Scan(value interface{}) error {
	return jsonScan(value, l)
}

// MailboxBatchProgress reports initial-sync batch progress for a single
// mailbox; a UI relies on current never exceeding total.
type MailboxBatchProgress struct {
	TotalBatches uint32 `json:"totalBatches"`
	CurrentBatch uint32 `json:"currentBatch"`
}

type ProgressMap map[string]MailboxBatchProgress

func (m ProgressMap) Value() (driver.Value, error) {
	return jsonValue(m)
}

func (m *ProgressMap) Scan(value interface{}) error {
	return jsonScan(value, m)
}

// AccountRunningState tracks per-account sync progress, timing, and the
// capped error ring. Created lazily on the first sync tick; mutated only
// by the sync engine and the error dispatcher.
type AccountRunningState struct {
	AccountID                uint64           `gorm:"column:account_id;primaryKey" json:"accountId"`
	LastIncrementalSyncStart int64            `gorm:"column:last_incremental_sync_start;not null;default:0" json:"lastIncrementalSyncStart"`
	LastIncrementalSyncEnd   *int64           `gorm:"column:last_incremental_sync_end" json:"lastIncrementalSyncEnd,omitempty"`
	Errors                   AccountErrorList `gorm:"column:errors;type:jsonb" json:"errors"`
	IsInitialSyncCompleted   bool             `gorm:"column:is_initial_sync_completed;default:false" json:"isInitialSyncCompleted"`
	Progress                 ProgressMap      `gorm:"column:progress;type:jsonb" json:"progress,omitempty"`
	InitialSyncStartTime     *int64           `gorm:"column:initial_sync_start_time" json:"initialSyncStartTime,omitempty"`
	InitialSyncEndTime       *int64           `gorm:"column:initial_sync_end_time" json:"initialSyncEndTime,omitempty"`
	InitialSyncFailedTime    *int64           `gorm:"column:initial_sync_failed_time" json:"initialSyncFailedTime,omitempty"`
}

func (AccountRunningState) TableName() string {
	return "account_running_states"
}

func NewAccountRunningState(accountID uint64) *AccountRunningState {
	return &AccountRunningState{
		AccountID: accountID,
		Errors:    AccountErrorList{},
	}
}

// AppendErrorLog adds one entry to the error ring, dropping the oldest
// entry when the cap is exceeded. This is the single place the bound is
// enforced.
func (s *AccountRunningState) AppendErrorLog(message string) {
	s.Errors = append(s.Errors, AccountError{Error: message, At: utils.NowMillis()})
	if len(s.Errors) > ErrorCountPerAccount {
		s.Errors = s.Errors[1:]
	}
}

// SetFolderTotalBatches registers a mailbox at the start of its initial
// fetch, resetting its current batch to zero.
func (s *AccountRunningState) SetFolderTotalBatches(folder string, totalBatches uint32) {
	if s.Progress == nil {
		s.Progress = ProgressMap{}
	}
	s.Progress[folder] = MailboxBatchProgress{TotalBatches: totalBatches, CurrentBatch: 0}
}

// SetFolderCurrentBatch advances a mailbox's batch counter.
func (s *AccountRunningState) SetFolderCurrentBatch(folder string, batchNumber uint32) {
	if s.Progress == nil {
		s.Progress = ProgressMap{}
	}
	entry := s.Progress[folder]
	entry.CurrentBatch = batchNumber
	s.Progress[folder] = entry
}

// SetFolderInitialSyncCompleted forces current == total for the mailbox.
func (s *AccountRunningState) SetFolderInitialSyncCompleted(folder string) {
	if s.Progress == nil {
		s.Progress = ProgressMap{}
	}
	entry := s.Progress[folder]
	entry.CurrentBatch = entry.TotalBatches
	s.Progress[folder] = entry
}
