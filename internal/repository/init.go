package repository

import (
	"gorm.io/gorm"

	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/models"
)

type Repositories struct {
	AccountRepository         interfaces.AccountRepository
	AccountStateRepository    interfaces.AccountStateRepository
	MailboxRepository         interfaces.MailboxRepository
	AutoconfigCacheRepository interfaces.AutoconfigCacheRepository
	OAuth2TokenRepository     interfaces.OAuth2TokenRepository
	OAuth2PendingRepository   interfaces.OAuth2PendingRepository
	AccessTokenRepository     interfaces.AccessTokenRepository
	SystemSettingRepository   interfaces.SystemSettingRepository
}

// InitRepositories wires the typed stores over the two logical
// databases: configuration-shaped entities on metaDB, high-write
// per-account state on envelopeDB.
func InitRepositories(metaDB, envelopeDB *gorm.DB) *Repositories {
	return &Repositories{
		AccountRepository:         NewAccountRepository(metaDB),
		AccountStateRepository:    NewAccountStateRepository(envelopeDB),
		MailboxRepository:         NewMailboxRepository(envelopeDB),
		AutoconfigCacheRepository: NewAutoconfigCacheRepository(metaDB),
		OAuth2TokenRepository:     NewOAuth2TokenRepository(metaDB),
		OAuth2PendingRepository:   NewOAuth2PendingRepository(metaDB),
		AccessTokenRepository:     NewAccessTokenRepository(metaDB),
		SystemSettingRepository:   NewSystemSettingRepository(metaDB),
	}
}

func MigrateDB(metaDB, envelopeDB *gorm.DB) error {
	if err := metaDB.AutoMigrate(
		&models.Account{},
		&models.CachedMailSettings{},
		&models.OAuth2AccessToken{},
		&models.OAuth2PendingEntity{},
		&models.AccessToken{},
		&models.SystemSetting{},
	); err != nil {
		return err
	}
	return envelopeDB.AutoMigrate(
		&models.AccountRunningState{},
		&models.MailBox{},
		&models.Envelope{},
		&models.EmlDocument{},
	)
}
