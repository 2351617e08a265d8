package sync

import (
	"context"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/enum"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/utils"
)

// DetermineSyncType decides the per-tick action for an account. A
// missing running state means the account has never synced: a state row
// is created and an initial sync requested. Otherwise the incremental
// interval decides between incremental and skip.
func DetermineSyncType(ctx context.Context, states interfaces.AccountStateRepository, account *models.Account) (enum.SyncType, error) {
	state, err := states.Get(ctx, account.ID)
	if err != nil {
		return enum.SyncTypeSkip, err
	}

	if state == nil {
		if err := states.Add(ctx, account.ID); err != nil {
			return enum.SyncTypeSkip, err
		}
		return enum.SyncTypeInitial, nil
	}

	if account.SyncIntervalMin == nil {
		return enum.SyncTypeSkip, bichon_errors.Newf(bichon_errors.InvalidParameter,
			"account %d has no sync interval configured", account.ID)
	}

	if isTimeForIncrementalSync(utils.NowMillis(), state.LastIncrementalSyncStart, *account.SyncIntervalMin) {
		return enum.SyncTypeIncremental, nil
	}
	return enum.SyncTypeSkip, nil
}

func isTimeForIncrementalSync(now, lastIncrementalSyncAt, syncIntervalMin int64) bool {
	return now-lastIncrementalSyncAt > syncIntervalMin*60*1000
}
