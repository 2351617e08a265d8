package indexer

import (
	"context"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
)

func toPqArray(values []string) pq.StringArray {
	return pq.StringArray(values)
}

// EmlIndex stores the raw RFC 5322 payloads, keyed the same way as the
// envelope index.
type EmlIndex struct {
	db *gorm.DB
}

func NewEmlIndex(db *gorm.DB) *EmlIndex {
	return &EmlIndex{db: db}
}

func (i *EmlIndex) InsertDocuments(ctx context.Context, docs []models.EmlDocument) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmlIndex.InsertDocuments")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if len(docs) == 0 {
		return nil
	}
	err := i.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "envelope_id"}}, UpdateAll: true}).
		CreateInBatches(&docs, 100).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "eml index write failed", err)
	}
	return nil
}

func (i *EmlIndex) Get(ctx context.Context, accountID, envelopeID uint64) (*models.EmlDocument, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmlIndex.Get")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	var doc models.EmlDocument
	result := i.db.WithContext(ctx).
		Where("account_id = ? AND envelope_id = ?", accountID, envelopeID).
		First(&doc)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, bichon_errors.New(bichon_errors.ResourceNotFound, "message not found")
		}
		tracing.TraceErr(span, result.Error)
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "eml index read failed", result.Error)
	}
	return &doc, nil
}

func (i *EmlIndex) DeleteMailboxEnvelopes(ctx context.Context, accountID uint64, mailboxIDs []uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmlIndex.DeleteMailboxEnvelopes")
	defer span.Finish()
	tracing.TagComponentIndexer(span)
	tracing.TagAccount(span, accountID)

	if len(mailboxIDs) == 0 {
		return nil
	}
	err := i.db.WithContext(ctx).
		Where("account_id = ? AND mailbox_id IN ?", accountID, mailboxIDs).
		Delete(&models.EmlDocument{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "eml index delete failed", err)
	}
	return nil
}

func (i *EmlIndex) DeleteEmailMultiAccount(ctx context.Context, request map[uint64][]uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmlIndex.DeleteEmailMultiAccount")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for accountID, envelopeIDs := range request {
			if len(envelopeIDs) == 0 {
				continue
			}
			if err := tx.Where("account_id = ? AND envelope_id IN ?", accountID, envelopeIDs).
				Delete(&models.EmlDocument{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "eml index delete failed", err)
	}
	return nil
}

func (i *EmlIndex) DeleteUIDs(ctx context.Context, accountID, mailboxID uint64, envelopeIDs []uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmlIndex.DeleteUIDs")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if len(envelopeIDs) == 0 {
		return nil
	}
	err := i.db.WithContext(ctx).
		Where("account_id = ? AND mailbox_id = ? AND envelope_id IN ?", accountID, mailboxID, envelopeIDs).
		Delete(&models.EmlDocument{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "eml index delete failed", err)
	}
	return nil
}
