package indexer

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
	"github.com/therolffr/bichon/internal/utils"
)

// EnvelopeIndex is the metadata full-text index. Documents are addressed
// by (account_id, mailbox_id, envelope_id); writes commit on batch
// boundaries and readers observe committed batches.
type EnvelopeIndex struct {
	db *gorm.DB
}

func NewEnvelopeIndex(db *gorm.DB) *EnvelopeIndex {
	return &EnvelopeIndex{db: db}
}

func (i *EnvelopeIndex) InsertDocuments(ctx context.Context, docs []models.Envelope) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.InsertDocuments")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if len(docs) == 0 {
		return nil
	}
	if err := i.db.WithContext(ctx).CreateInBatches(&docs, 500).Error; err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "envelope index write failed", err)
	}
	return nil
}

// UpsertDocuments replaces documents in place using the delete-term plus
// add pair, one transaction per batch.
func (i *EnvelopeIndex) UpsertDocuments(ctx context.Context, docs []models.Envelope) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.UpsertDocuments")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if len(docs) == 0 {
		return nil
	}
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, doc := range docs {
			if err := tx.Where("account_id = ? AND mailbox_id = ? AND uid = ?",
				doc.AccountID, doc.MailboxID, doc.UID).
				Delete(&models.Envelope{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&docs).Error
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "envelope index upsert failed", err)
	}
	return nil
}

// DeleteMailboxEnvelopes removes every document of the given mailboxes.
func (i *EnvelopeIndex) DeleteMailboxEnvelopes(ctx context.Context, accountID uint64, mailboxIDs []uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.DeleteMailboxEnvelopes")
	defer span.Finish()
	tracing.TagComponentIndexer(span)
	tracing.TagAccount(span, accountID)

	if len(mailboxIDs) == 0 {
		return nil
	}
	err := i.db.WithContext(ctx).
		Where("account_id = ? AND mailbox_id IN ?", accountID, mailboxIDs).
		Delete(&models.Envelope{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "envelope index delete failed", err)
	}
	return nil
}

// DeleteEnvelopesMultiAccount bulk-deletes selected documents, keyed
// account_id -> envelope ids.
func (i *EnvelopeIndex) DeleteEnvelopesMultiAccount(ctx context.Context, request map[uint64][]uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.DeleteEnvelopesMultiAccount")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for accountID, envelopeIDs := range request {
			if len(envelopeIDs) == 0 {
				continue
			}
			if err := tx.Where("account_id = ? AND envelope_id IN ?", accountID, envelopeIDs).
				Delete(&models.Envelope{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "envelope index delete failed", err)
	}
	return nil
}

// DeleteUIDs removes documents of one mailbox by their server UIDs, used
// when the incremental delta discovers server-side deletions.
func (i *EnvelopeIndex) DeleteUIDs(ctx context.Context, accountID, mailboxID uint64, uids []uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.DeleteUIDs")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if len(uids) == 0 {
		return nil
	}
	err := i.db.WithContext(ctx).
		Where("account_id = ? AND mailbox_id = ? AND uid IN ?", accountID, mailboxID, uids).
		Delete(&models.Envelope{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "envelope index delete failed", err)
	}
	return nil
}

// ListEnvelopeIDsByUIDs resolves document ids for a set of UIDs within
// one mailbox.
func (i *EnvelopeIndex) ListEnvelopeIDsByUIDs(ctx context.Context, accountID, mailboxID uint64, uids []uint32) ([]uint64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.ListEnvelopeIDsByUIDs")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if len(uids) == 0 {
		return nil, nil
	}
	var ids []uint64
	err := i.db.WithContext(ctx).Model(&models.Envelope{}).
		Where("account_id = ? AND mailbox_id = ? AND uid IN ?", accountID, mailboxID, uids).
		Pluck("envelope_id", &ids).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "envelope index read failed", err)
	}
	return ids, nil
}

// ListUIDs returns the indexed UIDs of one mailbox in ascending order.
func (i *EnvelopeIndex) ListUIDs(ctx context.Context, accountID, mailboxID uint64) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.ListUIDs")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	var uids []uint32
	err := i.db.WithContext(ctx).Model(&models.Envelope{}).
		Where("account_id = ? AND mailbox_id = ?", accountID, mailboxID).
		Order("uid asc").
		Pluck("uid", &uids).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "envelope index read failed", err)
	}
	return uids, nil
}

func (i *EnvelopeIndex) ListMailboxEnvelopes(ctx context.Context, accountID, mailboxID uint64, page, pageSize uint64, newestFirst bool) (*utils.DataPage[models.Envelope], error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.ListMailboxEnvelopes")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	query := i.db.WithContext(ctx).Model(&models.Envelope{}).
		Where("account_id = ? AND mailbox_id = ?", accountID, mailboxID)
	return i.listPage(query, page, pageSize, newestFirst)
}

func (i *EnvelopeIndex) ListThreadEnvelopes(ctx context.Context, accountID, threadID uint64, page, pageSize uint64, newestFirst bool) (*utils.DataPage[models.Envelope], error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.ListThreadEnvelopes")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	query := i.db.WithContext(ctx).Model(&models.Envelope{}).
		Where("account_id = ? AND thread_id = ?", accountID, threadID)
	return i.listPage(query, page, pageSize, newestFirst)
}

func (i *EnvelopeIndex) listPage(query *gorm.DB, page, pageSize uint64, newestFirst bool) (*utils.DataPage[models.Envelope], error) {
	if page == 0 || pageSize == 0 {
		return nil, bichon_errors.New(bichon_errors.InvalidParameter,
			"'page' and 'page_size' must be greater than 0")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "envelope index count failed", err)
	}

	order := "internal_date asc"
	if newestFirst {
		order = "internal_date desc"
	}

	var rows []models.Envelope
	err := query.Session(&gorm.Session{}).
		Order(order).
		Offset(int((page - 1) * pageSize)).
		Limit(int(pageSize)).
		Find(&rows).Error
	if err != nil {
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "envelope index read failed", err)
	}
	return utils.NewDataPage(page, pageSize, uint64(total), rows), nil
}

// UpdateTags rewrites the tag set of the selected documents using the
// replace pattern.
func (i *EnvelopeIndex) UpdateTags(ctx context.Context, updates map[uint64][]uint64, tags []string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.UpdateTags")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for accountID, envelopeIDs := range updates {
			if len(envelopeIDs) == 0 {
				continue
			}
			if err := tx.Model(&models.Envelope{}).
				Where("account_id = ? AND envelope_id IN ?", accountID, envelopeIDs).
				Update("tags", toPqArray(tags)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.InternalError, "envelope tag update failed", err)
	}
	return nil
}
