package indexer

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
)

// TimeBucket is one histogram bucket keyed by its epoch-ms lower bound.
type TimeBucket struct {
	TimestampMs int64  `json:"timestampMs"`
	Count       uint64 `json:"count"`
}

// TermBucket is one terms-aggregation bucket.
type TermBucket struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// AggregateQuery scopes an aggregation to one account, optionally to a
// set of mailboxes.
type AggregateQuery struct {
	AccountID  uint64
	MailboxIDs []uint64
}

func (i *EnvelopeIndex) scoped(ctx context.Context, q AggregateQuery) *gorm.DB {
	db := i.db.WithContext(ctx).Model(&models.Envelope{}).
		Where("account_id = ?", q.AccountID)
	if len(q.MailboxIDs) > 0 {
		db = db.Where("mailbox_id IN ?", q.MailboxIDs)
	}
	return db
}

// SumSize totals the stored message sizes within the query scope.
func (i *EnvelopeIndex) SumSize(ctx context.Context, q AggregateQuery) (uint64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.SumSize")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	var total *uint64
	err := i.scoped(ctx, q).Select("SUM(size)").Scan(&total).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, bichon_errors.Wrap(bichon_errors.InternalError, "size aggregation failed", err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// HistogramInternalDate buckets documents by internal_date with a fixed
// millisecond interval, bounded by [minMs, maxMs). Buckets outside the
// hard bounds are discarded.
func (i *EnvelopeIndex) HistogramInternalDate(ctx context.Context, q AggregateQuery, intervalMs, minMs, maxMs int64) ([]TimeBucket, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.HistogramInternalDate")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if intervalMs <= 0 {
		return nil, bichon_errors.New(bichon_errors.InvalidParameter, "histogram interval must be positive")
	}

	var buckets []TimeBucket
	err := i.scoped(ctx, q).
		Where("internal_date >= ? AND internal_date < ?", minMs, maxMs).
		Select("(internal_date / ?) * ? AS timestamp_ms, COUNT(*) AS count", intervalMs, intervalMs).
		Group("timestamp_ms").
		Order("timestamp_ms asc").
		Scan(&buckets).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "date histogram failed", err)
	}
	return buckets, nil
}

// TermsFrom returns the top-k senders by document count.
func (i *EnvelopeIndex) TermsFrom(ctx context.Context, q AggregateQuery, size int) ([]TermBucket, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.TermsFrom")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	if size <= 0 {
		size = 10
	}
	var buckets []TermBucket
	err := i.scoped(ctx, q).
		Select("from_addr AS key, COUNT(*) AS count").
		Group("from_addr").
		Order("count desc").
		Limit(size).
		Scan(&buckets).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "sender aggregation failed", err)
	}
	return buckets, nil
}

// TermsHasAttachment counts documents with and without attachments.
func (i *EnvelopeIndex) TermsHasAttachment(ctx context.Context, q AggregateQuery) ([]TermBucket, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EnvelopeIndex.TermsHasAttachment")
	defer span.Finish()
	tracing.TagComponentIndexer(span)

	var buckets []TermBucket
	err := i.scoped(ctx, q).
		Select("has_attachment::text AS key, COUNT(*) AS count").
		Group("has_attachment").
		Order("count desc").
		Scan(&buckets).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, bichon_errors.Wrap(bichon_errors.InternalError, "attachment aggregation failed", err)
	}
	return buckets, nil
}
