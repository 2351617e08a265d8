package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
	"github.com/therolffr/bichon/internal/utils"
)

type accountStateRepository struct {
	db *gorm.DB
}

func NewAccountStateRepository(db *gorm.DB) interfaces.AccountStateRepository {
	return &accountStateRepository{db: db}
}

func (r *accountStateRepository) Get(ctx context.Context, accountID uint64) (*models.AccountRunningState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountStateRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var state models.AccountRunningState
	result := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&state)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, translateError(result.Error, "")
	}
	return &state, nil
}

func (r *accountStateRepository) Add(ctx context.Context, accountID uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountStateRepository.Add")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	state := models.NewAccountRunningState(accountID)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "account_id"}}, DoNothing: true}).
		Create(state).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

func (r *accountStateRepository) Delete(ctx context.Context, accountID uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountStateRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.AccountRunningState{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

// update loads the row under a row lock, applies the mutator, and writes
// the result back, all inside one transaction. Mutation of a given row
// is therefore serialized.
func (r *accountStateRepository) update(ctx context.Context, accountID uint64, mutate func(*models.AccountRunningState)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state models.AccountRunningState
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", accountID).
			First(&state)
		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				return bichon_errors.Newf(bichon_errors.ResourceNotFound,
					"cannot find sync info of account=%d", accountID)
			}
			return translateError(result.Error, "")
		}
		mutate(&state)
		if err := tx.Save(&state).Error; err != nil {
			return translateError(err, "")
		}
		return nil
	})
}

func (r *accountStateRepository) SetInitialSyncStart(ctx context.Context, accountID uint64) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.InitialSyncStartTime = utils.Int64Ptr(utils.NowMillis())
	})
}

func (r *accountStateRepository) SetInitialSyncCompleted(ctx context.Context, accountID uint64) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.IsInitialSyncCompleted = true
		s.InitialSyncEndTime = utils.Int64Ptr(utils.NowMillis())
	})
}

func (r *accountStateRepository) SetInitialSyncFailed(ctx context.Context, accountID uint64) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.InitialSyncFailedTime = utils.Int64Ptr(utils.NowMillis())
	})
}

func (r *accountStateRepository) SetIncrementalSyncStart(ctx context.Context, accountID uint64) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.LastIncrementalSyncStart = utils.NowMillis()
		s.LastIncrementalSyncEnd = nil
	})
}

func (r *accountStateRepository) SetIncrementalSyncEnd(ctx context.Context, accountID uint64) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.LastIncrementalSyncEnd = utils.Int64Ptr(utils.NowMillis())
	})
}

func (r *accountStateRepository) SetInitialCurrentSyncingFolder(ctx context.Context, accountID uint64, folder string, totalBatches uint32) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.SetFolderTotalBatches(folder, totalBatches)
	})
}

func (r *accountStateRepository) SetCurrentSyncBatchNumber(ctx context.Context, accountID uint64, folder string, batchNumber uint32) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.SetFolderCurrentBatch(folder, batchNumber)
	})
}

func (r *accountStateRepository) SetFolderInitialSyncCompleted(ctx context.Context, accountID uint64, folder string) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.SetFolderInitialSyncCompleted(folder)
	})
}

func (r *accountStateRepository) AppendErrorMessage(ctx context.Context, accountID uint64, message string) error {
	return r.update(ctx, accountID, func(s *models.AccountRunningState) {
		s.AppendErrorLog(message)
	})
}
