package sync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/enum"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/utils"
)

// fakeStateRepository is an in-memory AccountStateRepository shared by
// the engine and dispatcher tests.
type fakeStateRepository struct {
	mu     sync.Mutex
	states map[uint64]*models.AccountRunningState
}

func newFakeStateRepository() *fakeStateRepository {
	return &fakeStateRepository{states: make(map[uint64]*models.AccountRunningState)}
}

func (f *fakeStateRepository) Get(_ context.Context, accountID uint64) (*models.AccountRunningState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[accountID], nil
}

func (f *fakeStateRepository) Add(_ context.Context, accountID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[accountID]; !ok {
		f.states[accountID] = models.NewAccountRunningState(accountID)
	}
	return nil
}

func (f *fakeStateRepository) Delete(_ context.Context, accountID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, accountID)
	return nil
}

// errorsOf returns a copy of the account's error ring.
func (f *fakeStateRepository) errorsOf(accountID uint64) models.AccountErrorList {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[accountID]
	if !ok {
		return nil
	}
	return append(models.AccountErrorList{}, state.Errors...)
}

func (f *fakeStateRepository) mutate(accountID uint64, mutate func(*models.AccountRunningState)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[accountID]
	if !ok {
		return bichon_errors.Newf(bichon_errors.ResourceNotFound, "cannot find sync info of account=%d", accountID)
	}
	mutate(state)
	return nil
}

func (f *fakeStateRepository) SetInitialSyncStart(_ context.Context, id uint64) error {
	return f.mutate(id, func(s *models.AccountRunningState) {
		s.InitialSyncStartTime = utils.Int64Ptr(utils.NowMillis())
	})
}

func (f *fakeStateRepository) SetInitialSyncCompleted(_ context.Context, id uint64) error {
	return f.mutate(id, func(s *models.AccountRunningState) {
		s.IsInitialSyncCompleted = true
		s.InitialSyncEndTime = utils.Int64Ptr(utils.NowMillis())
	})
}

func (f *fakeStateRepository) SetInitialSyncFailed(_ context.Context, id uint64) error {
	return f.mutate(id, func(s *models.AccountRunningState) {
		s.InitialSyncFailedTime = utils.Int64Ptr(utils.NowMillis())
	})
}

func (f *fakeStateRepository) SetIncrementalSyncStart(_ context.Context, id uint64) error {
	return f.mutate(id, func(s *models.AccountRunningState) {
		s.LastIncrementalSyncStart = utils.NowMillis()
		s.LastIncrementalSyncEnd = nil
	})
}

func (f *fakeStateRepository) SetIncrementalSyncEnd(_ context.Context, id uint64) error {
	return f.mutate(id, func(s *models.AccountRunningState) {
		s.LastIncrementalSyncEnd = utils.Int64Ptr(utils.NowMillis())
	})
}

func (f *fakeStateRepository) SetInitialCurrentSyncingFolder(_ context.Context, id uint64, folder string, total uint32) error {
	return f.mutate(id, func(s *models.AccountRunningState) { s.SetFolderTotalBatches(folder, total) })
}

func (f *fakeStateRepository) SetCurrentSyncBatchNumber(_ context.Context, id uint64, folder string, n uint32) error {
	return f.mutate(id, func(s *models.AccountRunningState) { s.SetFolderCurrentBatch(folder, n) })
}

func (f *fakeStateRepository) SetFolderInitialSyncCompleted(_ context.Context, id uint64, folder string) error {
	return f.mutate(id, func(s *models.AccountRunningState) { s.SetFolderInitialSyncCompleted(folder) })
}

func (f *fakeStateRepository) AppendErrorMessage(_ context.Context, id uint64, message string) error {
	return f.mutate(id, func(s *models.AccountRunningState) { s.AppendErrorLog(message) })
}

func testAccount(intervalMin int64) *models.Account {
	return &models.Account{
		ID:              42,
		Email:           "user@example.com",
		Enabled:         true,
		SyncIntervalMin: &intervalMin,
	}
}

func TestDetermineSyncType_NoStateMeansInitial(t *testing.T) {
	repo := newFakeStateRepository()
	account := testAccount(5)

	syncType, err := DetermineSyncType(context.Background(), repo, account)

	require.NoError(t, err)
	assert.Equal(t, enum.SyncTypeInitial, syncType)
	assert.Contains(t, repo.states, account.ID, "initial decision must create the running state")
}

func TestDetermineSyncType_RecentSyncMeansSkip(t *testing.T) {
	repo := newFakeStateRepository()
	account := testAccount(5)
	state := models.NewAccountRunningState(account.ID)
	state.LastIncrementalSyncStart = utils.NowMillis() - 60*1000 // 1 min ago
	repo.states[account.ID] = state

	syncType, err := DetermineSyncType(context.Background(), repo, account)

	require.NoError(t, err)
	assert.Equal(t, enum.SyncTypeSkip, syncType)
}

func TestDetermineSyncType_ElapsedIntervalMeansIncremental(t *testing.T) {
	repo := newFakeStateRepository()
	account := testAccount(5)
	state := models.NewAccountRunningState(account.ID)
	state.LastIncrementalSyncStart = utils.NowMillis() - 6*60*1000 // 6 min ago
	repo.states[account.ID] = state

	syncType, err := DetermineSyncType(context.Background(), repo, account)

	require.NoError(t, err)
	assert.Equal(t, enum.SyncTypeIncremental, syncType)
}

func TestDetermineSyncType_MissingIntervalFailsLoudly(t *testing.T) {
	repo := newFakeStateRepository()
	account := testAccount(5)
	account.SyncIntervalMin = nil
	repo.states[account.ID] = models.NewAccountRunningState(account.ID)

	_, err := DetermineSyncType(context.Background(), repo, account)

	require.Error(t, err)
	assert.Equal(t, bichon_errors.InvalidParameter, bichon_errors.CodeOf(err))
}

func TestIsTimeForIncrementalSync_Boundary(t *testing.T) {
	// Exactly at the interval boundary is not yet due; strictly past it
	// is.
	assert.False(t, isTimeForIncrementalSync(5*60*1000, 0, 5))
	assert.True(t, isTimeForIncrementalSync(5*60*1000+1, 0, 5))
}

func TestIsTimeForIncrementalSync_NeverSynced(t *testing.T) {
	assert.True(t, isTimeForIncrementalSync(utils.NowMillis(), 0, 5))
}
