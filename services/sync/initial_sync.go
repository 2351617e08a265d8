package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
)

// runInitialSync performs the first-time bulk ingest for an account:
// probe the remote mailbox list, persist it, then fetch every non-empty
// mailbox under the global semaphore. Failure leaves the completed flag
// unset so the next tick retries; envelopes already inserted remain.
func (s *SyncService) runInitialSync(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.runInitialSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	if err := s.repos.AccountStateRepository.SetInitialSyncStart(ctx, account.ID); err != nil {
		return err
	}

	err := s.rebuildCache(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		if stateErr := s.repos.AccountStateRepository.SetInitialSyncFailed(ctx, account.ID); stateErr != nil {
			s.log.Errorf("Account %d: failed to record initial sync failure: %v", account.ID, stateErr)
		}
		return err
	}

	return s.repos.AccountStateRepository.SetInitialSyncCompleted(ctx, account.ID)
}

type mailboxFetchResult struct {
	name     string
	inserted int
	err      error
}

// rebuildCache fetches either the full history or the since-date window
// of every remote mailbox, bounded by the fetch semaphore. The first
// task error wins; join panics map to internal errors.
func (s *SyncService) rebuildCache(ctx context.Context, account *models.Account) error {
	startTime := time.Now()

	probe, err := s.connect(ctx, account)
	if err != nil {
		return err
	}
	remoteMailboxes, err := s.probeRemoteMailboxes(probe, account)
	probe.Logout()
	if err != nil {
		return err
	}

	if err := s.repos.MailboxRepository.BatchUpsert(ctx, remoteMailboxes); err != nil {
		return err
	}
	// Reload so every record carries its persisted id.
	persisted, err := s.repos.MailboxRepository.GetByAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	byName := make(map[string]models.MailBox, len(persisted))
	for _, m := range persisted {
		byName[m.Name] = m
	}

	results := make(chan mailboxFetchResult, len(remoteMailboxes))
	spawned := 0
	for _, remote := range remoteMailboxes {
		if remote.Exists == 0 {
			s.log.Infof("Account %d: mailbox '%s' on the remote server has no emails, skipping fetch",
				account.ID, remote.Name)
			continue
		}
		mailbox, ok := byName[remote.Name]
		if !ok {
			continue
		}

		s.semaphore.Acquire()
		spawned++
		go func(mailbox models.MailBox) {
			defer s.semaphore.Release()
			defer func() {
				if r := recover(); r != nil {
					results <- mailboxFetchResult{
						name: mailbox.Name,
						err: bichon_errors.Newf(bichon_errors.InternalError,
							"mailbox fetch task panicked: %v", r),
					}
				}
			}()

			count, err := s.fetchMailbox(ctx, account, &mailbox)
			results <- mailboxFetchResult{name: mailbox.Name, inserted: count, err: err}
		}(mailbox)
	}

	totalInserted := 0
	var firstErr error
	for i := 0; i < spawned; i++ {
		result := <-results
		if result.err != nil && firstErr == nil {
			firstErr = result.err
			continue
		}
		if firstErr == nil {
			totalInserted += result.inserted
		}
	}
	if firstErr != nil {
		return firstErr
	}

	s.log.Infof("Account %d: rebuild completed, %d envelopes inserted in %ds",
		account.ID, totalInserted, int(time.Since(startTime).Seconds()))
	return nil
}

// fetchMailbox opens a dedicated session for one mailbox and ingests it,
// honoring the account's backfill window.
func (s *SyncService) fetchMailbox(ctx context.Context, account *models.Account, mailbox *models.MailBox) (int, error) {
	c, err := s.connect(ctx, account)
	if err != nil {
		return 0, err
	}
	defer c.Logout()

	if account.SinceDate().IsZero() {
		return s.fetchAndSaveFullMailbox(ctx, c, account, mailbox)
	}
	return s.fetchAndSaveSinceDate(ctx, c, account, mailbox)
}

// rebuildMailbox drops and refetches one mailbox, used when UIDVALIDITY
// changes invalidate the cached UID space.
func (s *SyncService) rebuildMailbox(ctx context.Context, account *models.Account, local *models.MailBox, remote *models.MailBox) error {
	if err := s.envelopeIndex.DeleteMailboxEnvelopes(ctx, account.ID, []uint64{local.ID}); err != nil {
		return err
	}
	if err := s.emlIndex.DeleteMailboxEnvelopes(ctx, account.ID, []uint64{local.ID}); err != nil {
		return err
	}
	if remote.Exists == 0 {
		s.log.Infof("Account %d: mailbox '%s' is empty on the remote server, nothing to fetch",
			account.ID, local.Name)
		return nil
	}

	count, err := s.fetchMailbox(ctx, account, local)
	if err != nil {
		return err
	}
	s.log.Infof("Account %d: rebuilt mailbox '%s', inserted %d envelopes",
		account.ID, local.Name, count)
	return nil
}

func (s *SyncService) reportError(accountID uint64, err error) {
	s.dispatcher.AppendError(accountID, fmt.Sprintf("error in account sync task: %v", err))
}
