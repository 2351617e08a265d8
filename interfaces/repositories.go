package interfaces

import (
	"context"

	"github.com/therolffr/bichon/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint64) (*models.Account, error)
	GetAll(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id uint64) error
	Upsert(ctx context.Context, account *models.Account) error
}

// AccountStateRepository is the running-state store. Every mutator runs
// as one read-modify-write transaction on the account's row; the error
// ring bound and progress bookkeeping live in the model mutators.
type AccountStateRepository interface {
	Get(ctx context.Context, accountID uint64) (*models.AccountRunningState, error)
	Add(ctx context.Context, accountID uint64) error
	Delete(ctx context.Context, accountID uint64) error
	SetInitialSyncStart(ctx context.Context, accountID uint64) error
	SetInitialSyncCompleted(ctx context.Context, accountID uint64) error
	SetInitialSyncFailed(ctx context.Context, accountID uint64) error
	SetIncrementalSyncStart(ctx context.Context, accountID uint64) error
	SetIncrementalSyncEnd(ctx context.Context, accountID uint64) error
	SetInitialCurrentSyncingFolder(ctx context.Context, accountID uint64, folder string, totalBatches uint32) error
	SetCurrentSyncBatchNumber(ctx context.Context, accountID uint64, folder string, batchNumber uint32) error
	SetFolderInitialSyncCompleted(ctx context.Context, accountID uint64, folder string) error
	AppendErrorMessage(ctx context.Context, accountID uint64, message string) error
}

type MailboxRepository interface {
	GetByAccount(ctx context.Context, accountID uint64) ([]models.MailBox, error)
	BatchUpsert(ctx context.Context, mailboxes []models.MailBox) error
	Update(ctx context.Context, mailbox *models.MailBox) error
	Delete(ctx context.Context, accountID uint64, mailboxID uint64) error
	DeleteByAccount(ctx context.Context, accountID uint64) error
}

type AutoconfigCacheRepository interface {
	// Get returns a live cached entry, deleting and missing on stale
	// rows (30-day TTL).
	Get(ctx context.Context, domain string) (*models.CachedMailSettings, error)
	Put(ctx context.Context, domain string, config models.MailServerConfig) error
}

type OAuth2TokenRepository interface {
	Get(ctx context.Context, accountID uint64) (*models.OAuth2AccessToken, error)
	ListAll(ctx context.Context) ([]models.OAuth2AccessToken, error)
	Upsert(ctx context.Context, token *models.OAuth2AccessToken) error
	Delete(ctx context.Context, accountID uint64) error
}

type OAuth2PendingRepository interface {
	Save(ctx context.Context, pending *models.OAuth2PendingEntity) error
	// Get lazily deletes and misses on rows older than 24 hours.
	Get(ctx context.Context, state string) (*models.OAuth2PendingEntity, error)
	Delete(ctx context.Context, state string) error
	// Clean removes all expired rows; run by the periodic sweep.
	Clean(ctx context.Context) error
}

type AccessTokenRepository interface {
	Create(ctx context.Context, token *models.AccessToken) error
	GetAll(ctx context.Context) ([]models.AccessToken, error)
	// TouchAccess validates the token and stamps last_access_at in one
	// transaction.
	TouchAccess(ctx context.Context, token string) (*models.AccessToken, error)
	Update(ctx context.Context, token string, mutate func(*models.AccessToken)) (*models.AccessToken, error)
	Delete(ctx context.Context, token string) error
}

type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	Set(ctx context.Context, key, value string) error
}
