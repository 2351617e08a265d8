package sync

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/config"
	"github.com/therolffr/bichon/internal/enum"
	"github.com/therolffr/bichon/internal/indexer"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/repository"
	"github.com/therolffr/bichon/internal/tracing"
	"github.com/therolffr/bichon/internal/utils"
	imap_session "github.com/therolffr/bichon/services/imap"
)

// SyncService is the per-account synchronization engine. One periodic
// task per account calls ExecuteSync; ticks for the same account never
// overlap.
type SyncService struct {
	repos         *repository.Repositories
	envelopeIndex *indexer.EnvelopeIndex
	emlIndex      *indexer.EmlIndex
	dispatcher    *ErrorDispatcher
	semaphore     *Semaphore
	cipher        *utils.Cipher
	cfg           *config.SyncConfig
	log           logger.Logger
}

func NewSyncService(
	repos *repository.Repositories,
	envelopeIndex *indexer.EnvelopeIndex,
	emlIndex *indexer.EmlIndex,
	dispatcher *ErrorDispatcher,
	semaphore *Semaphore,
	cipher *utils.Cipher,
	cfg *config.SyncConfig,
	log logger.Logger,
) *SyncService {
	return &SyncService{
		repos:         repos,
		envelopeIndex: envelopeIndex,
		emlIndex:      emlIndex,
		dispatcher:    dispatcher,
		semaphore:     semaphore,
		cipher:        cipher,
		cfg:           cfg,
		log:           log,
	}
}

// ExecuteSync runs one sync tick for the account.
func (s *SyncService) ExecuteSync(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.ExecuteSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	syncType, err := DetermineSyncType(ctx, s.repos.AccountStateRepository, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	switch syncType {
	case enum.SyncTypeInitial:
		return s.runInitialSync(ctx, account)
	case enum.SyncTypeIncremental:
		return s.runIncrementalSync(ctx, account)
	default:
		return nil
	}
}

// connect opens and authenticates an IMAP session for the account.
func (s *SyncService) connect(ctx context.Context, account *models.Account) (*client.Client, error) {
	if account.Imap == nil {
		return nil, bichon_errors.Newf(bichon_errors.InvalidParameter,
			"account %d has no IMAP configuration", account.ID)
	}

	sessionCfg := imap_session.SessionConfig{
		Host:       account.Imap.Host,
		Port:       account.Imap.Port,
		Encryption: account.Imap.Encryption,
	}
	if account.Imap.UseProxy != 0 {
		sessionCfg.ProxyAddr = s.cfg.Socks5Proxy
	}

	c, err := imap_session.Connect(sessionCfg)
	if err != nil {
		return nil, err
	}

	switch account.Imap.AuthType {
	case enum.AuthTypeOAuth2:
		token, err := s.repos.OAuth2TokenRepository.Get(ctx, account.ID)
		if err != nil {
			c.Logout()
			return nil, err
		}
		if token == nil {
			c.Logout()
			return nil, bichon_errors.Newf(bichon_errors.PermissionDenied,
				"account %d: OAuth2 authorization not completed", account.ID)
		}
		if err := imap_session.LoginXOAuth2(c, account.Email, token.AccessToken); err != nil {
			return nil, err
		}
	default:
		password, err := s.cipher.Decrypt(account.Imap.Password)
		if err != nil {
			c.Logout()
			return nil, bichon_errors.Wrap(bichon_errors.InternalError,
				fmt.Sprintf("account %d: password decryption failed", account.ID), err)
		}
		if err := imap_session.LoginPassword(c, account.Email, password); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// probeRemoteMailboxes lists and selects every remote folder, returning
// snapshots as unsaved MailBox records.
func (s *SyncService) probeRemoteMailboxes(c *client.Client, account *models.Account) ([]models.MailBox, error) {
	names, err := imap_session.ListMailboxes(c)
	if err != nil {
		return nil, err
	}

	remote := make([]models.MailBox, 0, len(names))
	for _, name := range names {
		snapshot, err := imap_session.Select(c, name)
		if err != nil {
			return nil, err
		}
		remote = append(remote, models.MailBox{
			AccountID:   account.ID,
			Name:        snapshot.Name,
			Exists:      snapshot.Exists,
			UIDValidity: snapshot.UIDValidity,
			UIDNext:     snapshot.UIDNext,
		})
	}
	return remote, nil
}
