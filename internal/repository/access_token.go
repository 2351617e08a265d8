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

type accessTokenRepository struct {
	db *gorm.DB
}

func NewAccessTokenRepository(db *gorm.DB) interfaces.AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

func (r *accessTokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accessTokenRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	now := utils.NowMillis()
	token.CreatedAt = now
	token.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}

func (r *accessTokenRepository) GetAll(ctx context.Context) ([]models.AccessToken, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accessTokenRepository.GetAll")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var tokens []models.AccessToken
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&tokens).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, translateError(err, "")
	}
	return tokens, nil
}

func (r *accessTokenRepository) TouchAccess(ctx context.Context, token string) (*models.AccessToken, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accessTokenRepository.TouchAccess")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.Update(ctx, token, func(t *models.AccessToken) {
		t.LastAccessAt = utils.NowMillis()
	})
}

func (r *accessTokenRepository) Update(ctx context.Context, token string, mutate func(*models.AccessToken)) (*models.AccessToken, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accessTokenRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var updated models.AccessToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token = ?", token).
			First(&updated)
		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				return bichon_errors.New(bichon_errors.ResourceNotFound, "token not exist")
			}
			return translateError(result.Error, "")
		}
		mutate(&updated)
		return translateError(tx.Save(&updated).Error, "")
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &updated, nil
}

func (r *accessTokenRepository) Delete(ctx context.Context, token string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accessTokenRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.AccessToken{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return translateError(result.Error, "")
	}
	if result.RowsAffected == 0 {
		return bichon_errors.New(bichon_errors.ResourceNotFound, "token not exist")
	}
	return nil
}

type systemSettingRepository struct {
	db *gorm.DB
}

func NewSystemSettingRepository(db *gorm.DB) interfaces.SystemSettingRepository {
	return &systemSettingRepository{db: db}
}

func (r *systemSettingRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "systemSettingRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var setting models.SystemSetting
	result := r.db.WithContext(ctx).Where("key = ?", key).First(&setting)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, translateError(result.Error, "")
	}
	return &setting, nil
}

func (r *systemSettingRepository) Set(ctx context.Context, key, value string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "systemSettingRepository.Set")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	row := models.SystemSetting{Key: key, Value: value, UpdatedAt: utils.NowMillis()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return translateError(err, "")
	}
	return nil
}
