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

// pendingExpireMillis is the PKCE pending-authorization TTL (24 hours).
const pendingExpireMillis = int64(24 * 60 * 60 * 1000)

type oauth2TokenRepository struct {
	db *gorm.DB
}

func NewOAuth2TokenRepository(db *gorm.DB) interfaces.OAuth2TokenRepository {
	return &oauth2TokenRepository{db: db}
}

func (r *oauth2TokenRepository) Get(ctx context.Context, accountID uint64) (*models.OAuth2AccessToken, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2TokenRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var token models.OAuth2AccessToken
	result := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&token)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, translateError(result.Error, "")
	}
	return &token, nil
}

func (r *oauth2TokenRepository) ListAll(ctx context.Context) ([]models.OAuth2AccessToken, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2TokenRepository.ListAll")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var tokens []models.OAuth2AccessToken
	if err := r.db.WithContext(ctx).Find(&tokens).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, translateError(err, "")
	}
	return tokens, nil
}

func (r *oauth2TokenRepository) Upsert(ctx context.Context, token *models.OAuth2AccessToken) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2TokenRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	token.UpdatedAt = utils.NowMillis()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "account_id"}}, UpdateAll: true}).
		Create(token).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

func (r *oauth2TokenRepository) Delete(ctx context.Context, accountID uint64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2TokenRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.OAuth2AccessToken{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

type oauth2PendingRepository struct {
	db *gorm.DB
}

func NewOAuth2PendingRepository(db *gorm.DB) interfaces.OAuth2PendingRepository {
	return &oauth2PendingRepository{db: db}
}

func (r *oauth2PendingRepository) Save(ctx context.Context, pending *models.OAuth2PendingEntity) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2PendingRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	pending.CreatedAt = utils.NowMillis()
	if err := r.db.WithContext(ctx).Create(pending).Error; err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

func (r *oauth2PendingRepository) Get(ctx context.Context, state string) (*models.OAuth2PendingEntity, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2PendingRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var pending models.OAuth2PendingEntity
	result := r.db.WithContext(ctx).Where("state = ?", state).First(&pending)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, translateError(result.Error, "")
	}

	if utils.NowMillis()-pending.CreatedAt > pendingExpireMillis {
		if err := r.Delete(ctx, state); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &pending, nil
}

func (r *oauth2PendingRepository) Delete(ctx context.Context, state string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2PendingRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Delete(&models.OAuth2PendingEntity{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

func (r *oauth2PendingRepository) Clean(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "oauth2PendingRepository.Clean")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	cutoff := utils.NowMillis() - pendingExpireMillis
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.OAuth2PendingEntity{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}
