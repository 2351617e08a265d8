package services

import (
	"gorm.io/gorm"

	"github.com/therolffr/bichon/api/middleware"
	"github.com/therolffr/bichon/internal/config"
	"github.com/therolffr/bichon/internal/indexer"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/repository"
	"github.com/therolffr/bichon/internal/shutdown"
	"github.com/therolffr/bichon/internal/utils"
	"github.com/therolffr/bichon/services/autoconfig"
	"github.com/therolffr/bichon/services/oauth2"
	syncsvc "github.com/therolffr/bichon/services/sync"
)

// Services is the process-wide service graph, initialized once in a
// deterministic order before any task spawns.
type Services struct {
	Repositories *repository.Repositories

	EnvelopeIndex *indexer.EnvelopeIndex
	EmlIndex      *indexer.EmlIndex

	AutoconfigService *autoconfig.AutoconfigService
	OAuth2Service     *oauth2.OAuth2Service
	SyncService       *syncsvc.SyncService
	SyncTasks         *syncsvc.AccountSyncTasks
	SyncController    *syncsvc.SyncController
	ErrorDispatcher   *syncsvc.ErrorDispatcher
	Semaphore         *syncsvc.Semaphore

	RateLimiters *middleware.RateLimiterManager
	Signal       *shutdown.SignalManager
	Cipher       *utils.Cipher

	Version string
}

func InitServices(
	cfg *config.Config,
	metaDB, envelopeDB *gorm.DB,
	signal *shutdown.SignalManager,
	log logger.Logger,
	version string,
) (*Services, error) {
	cipher, err := utils.NewCipher(cfg.AppConfig.EncryptionKey)
	if err != nil {
		return nil, err
	}

	repos := repository.InitRepositories(metaDB, envelopeDB)
	envelopeIndex := indexer.NewEnvelopeIndex(envelopeDB)
	emlIndex := indexer.NewEmlIndex(envelopeDB)

	dispatcher := syncsvc.NewErrorDispatcher(repos.AccountStateRepository, log)
	semaphore := syncsvc.NewSemaphore(cfg.SyncConfig.MaxConcurrentFetches)

	syncService := syncsvc.NewSyncService(
		repos, envelopeIndex, emlIndex, dispatcher, semaphore, cipher, &cfg.SyncConfig, log)
	syncTasks := syncsvc.NewAccountSyncTasks(syncService, signal, log)
	controller := syncsvc.NewSyncController(syncTasks, log)

	oauth2Service := oauth2.NewOAuth2Service(
		repos.OAuth2TokenRepository,
		repos.OAuth2PendingRepository,
		nil, // providers registered via configuration at startup
		cfg.OAuth2Config.RedirectURL,
		log,
	)

	return &Services{
		Repositories:      repos,
		EnvelopeIndex:     envelopeIndex,
		EmlIndex:          emlIndex,
		AutoconfigService: autoconfig.NewAutoconfigService(repos.AutoconfigCacheRepository, log),
		OAuth2Service:     oauth2Service,
		SyncService:       syncService,
		SyncTasks:         syncTasks,
		SyncController:    controller,
		ErrorDispatcher:   dispatcher,
		Semaphore:         semaphore,
		RateLimiters:      middleware.NewRateLimiterManager(),
		Signal:            signal,
		Cipher:            cipher,
		Version:           version,
	}, nil
}
