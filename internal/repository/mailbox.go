package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
)

type mailboxRepository struct {
	db *gorm.DB
}

func NewMailboxRepository(db *gorm.DB) interfaces.MailboxRepository {
	return &mailboxRepository{db: db}
}

func (r *mailboxRepository) GetByAccount(ctx context.Context, accountID uint64) ([]models.MailBox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetByAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var mailboxes []models.MailBox
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name asc").
		Find(&mailboxes).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, translateError(err, "")
	}
	return mailboxes, nil
}

// BatchUpsert inserts new mailbox rows and refreshes observed counters
// on existing ones, keyed by (account_id, name).
func (r *mailboxRepository) BatchUpsert(ctx context.Context, mailboxes []models.MailBox) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.BatchUpsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if len(mailboxes) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"exists", "uid_validity", "uid_next", "updated_at"}),
		}).
		Create(&mailboxes).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

func (r *mailboxRepository) Update(ctx context.Context, mailbox *models.MailBox) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Save(mailbox).Error; err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "mailbox not found")
	}
	return nil
}

func (r *mailboxRepository) Delete(ctx context.Context, accountID uint64, mailboxID uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, mailboxID).
		Delete(&models.MailBox{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

func (r *mailboxRepository) DeleteByAccount(ctx context.Context, accountID uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.DeleteByAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.MailBox{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}
