package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
	"github.com/therolffr/bichon/internal/utils"
)

// cacheExpireMillis is the autoconfig cache TTL (30 days).
const cacheExpireMillis = int64(30 * 24 * 60 * 60 * 1000)

type autoconfigCacheRepository struct {
	db *gorm.DB
}

func NewAutoconfigCacheRepository(db *gorm.DB) interfaces.AutoconfigCacheRepository {
	return &autoconfigCacheRepository{db: db}
}

func (r *autoconfigCacheRepository) Get(ctx context.Context, domain string) (*models.CachedMailSettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "autoconfigCacheRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var cached models.CachedMailSettings
	result := r.db.WithContext(ctx).Where("domain = ?", domain).First(&cached)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, translateError(result.Error, "")
	}

	if utils.NowMillis()-cached.CreatedAt > cacheExpireMillis {
		if err := r.db.WithContext(ctx).
			Where("domain = ?", domain).
			Delete(&models.CachedMailSettings{}).Error; err != nil {
			tracing.TraceErr(span, err)
			return nil, translateError(err, "")
		}
		return nil, nil
	}
	return &cached, nil
}

func (r *autoconfigCacheRepository) Put(ctx context.Context, domain string, config models.MailServerConfig) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "autoconfigCacheRepository.Put")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	row := models.CachedMailSettings{
		Domain:    domain,
		Config:    config,
		CreatedAt: utils.NowMillis(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "domain"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}
