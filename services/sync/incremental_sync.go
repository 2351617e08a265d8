package sync

import (
	"context"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
	imap_session "github.com/therolffr/bichon/services/imap"
)

// runIncrementalSync reconciles local state with the remote server:
// rebuild mailboxes whose UIDVALIDITY changed, apply UID deltas to the
// rest, ingest new remote mailboxes, and drop orphans. Partial failures
// feed the error ring; the end timestamp is only stamped after a fully
// successful pass.
func (s *SyncService) runIncrementalSync(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.runIncrementalSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	if err := s.repos.AccountStateRepository.SetIncrementalSyncStart(ctx, account.ID); err != nil {
		return err
	}

	c, err := s.connect(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	defer c.Logout()

	remoteMailboxes, err := s.probeRemoteMailboxes(c, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	localMailboxes, err := s.repos.MailboxRepository.GetByAccount(ctx, account.ID)
	if err != nil {
		return err
	}

	for _, pair := range FindIntersectingMailboxes(localMailboxes, remoteMailboxes) {
		if err := s.syncIntersectingMailbox(ctx, c, account, pair); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	if missing := FindMissingMailboxes(localMailboxes, remoteMailboxes); len(missing) > 0 {
		if err := s.ingestNewMailboxes(ctx, account, missing); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	for _, orphan := range FindOrphanMailboxes(localMailboxes, remoteMailboxes) {
		if err := s.removeOrphanMailbox(ctx, account, &orphan); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	return s.repos.AccountStateRepository.SetIncrementalSyncEnd(ctx, account.ID)
}

// syncIntersectingMailbox rebuilds on UIDVALIDITY mismatch, otherwise
// applies the UID delta: inserts above the stored UIDNEXT, deletions for
// UIDs gone from the server, and in-place flag replacement for the rest.
func (s *SyncService) syncIntersectingMailbox(ctx context.Context, c *client.Client, account *models.Account, pair MailboxPair) error {
	local, remote := pair.Local, pair.Remote

	if local.UIDValidity != 0 && local.UIDValidity != remote.UIDValidity {
		s.log.Warnf("Account %d: mailbox '%s' UIDVALIDITY changed (%d -> %d), rebuilding",
			account.ID, local.Name, local.UIDValidity, remote.UIDValidity)
		if err := s.rebuildMailbox(ctx, account, &local, &remote); err != nil {
			return err
		}
		return s.saveMailboxMarkers(ctx, &local, &remote)
	}

	if _, err := imap_session.Select(c, local.Name); err != nil {
		return err
	}

	remoteUIDs, err := imap_session.UIDSearchAll(c)
	if err != nil {
		return err
	}
	localUIDs, err := s.envelopeIndex.ListUIDs(ctx, account.ID, local.ID)
	if err != nil {
		return err
	}

	newUIDs, deletedUIDs, keptUIDs := diffUIDs(localUIDs, remoteUIDs, local.UIDNext)

	if len(deletedUIDs) > 0 {
		if err := s.deleteEnvelopesByUIDs(ctx, account.ID, local.ID, deletedUIDs); err != nil {
			return err
		}
	}

	if len(newUIDs) > 0 {
		if _, err := s.fetchAndSaveUIDs(ctx, c, account, &local, newUIDs); err != nil {
			return err
		}
	}

	if len(keptUIDs) > 0 {
		if err := s.refreshFlags(ctx, c, account, &local, keptUIDs); err != nil {
			return err
		}
	}

	return s.saveMailboxMarkers(ctx, &local, &remote)
}

// diffUIDs splits the remote UID set against the local one: UIDs at or
// above the stored UIDNEXT are inserts, locally-known UIDs missing on
// the server are deletes, and the remainder are flag refresh candidates.
func diffUIDs(localUIDs, remoteUIDs []uint32, lastSeenUIDNext uint32) (newUIDs, deletedUIDs, keptUIDs []uint32) {
	remoteSet := make(map[uint32]struct{}, len(remoteUIDs))
	for _, uid := range remoteUIDs {
		remoteSet[uid] = struct{}{}
	}
	localSet := make(map[uint32]struct{}, len(localUIDs))
	for _, uid := range localUIDs {
		localSet[uid] = struct{}{}
	}

	for _, uid := range remoteUIDs {
		if _, known := localSet[uid]; known {
			keptUIDs = append(keptUIDs, uid)
		} else {
			// Above the stored UIDNEXT, or missed by an earlier pass;
			// either way it is an insert.
			newUIDs = append(newUIDs, uid)
		}
	}
	for _, uid := range localUIDs {
		if _, present := remoteSet[uid]; !present {
			deletedUIDs = append(deletedUIDs, uid)
		}
	}
	return newUIDs, deletedUIDs, keptUIDs
}

// refreshFlags re-fetches kept messages and replaces their envelope
// documents in place (delete term + add) so flag-only changes land in
// the index.
func (s *SyncService) refreshFlags(ctx context.Context, c *client.Client, account *models.Account, mailbox *models.MailBox, uids []uint32) error {
	var updated []models.Envelope
	err := imap_session.UIDFetch(c, uids, func(msg *imap_session.FetchedMessage) error {
		envelope, _ := buildDocuments(account, mailbox, msg)
		updated = append(updated, envelope)
		return nil
	})
	if err != nil {
		return err
	}
	return s.envelopeIndex.UpsertDocuments(ctx, updated)
}

func (s *SyncService) deleteEnvelopesByUIDs(ctx context.Context, accountID, mailboxID uint64, uids []uint32) error {
	envelopeIDs, err := s.envelopeIndex.ListEnvelopeIDsByUIDs(ctx, accountID, mailboxID, uids)
	if err != nil {
		return err
	}
	if err := s.emlIndex.DeleteUIDs(ctx, accountID, mailboxID, envelopeIDs); err != nil {
		return err
	}
	return s.envelopeIndex.DeleteUIDs(ctx, accountID, mailboxID, uids)
}

// saveMailboxMarkers records the freshly observed counters.
func (s *SyncService) saveMailboxMarkers(ctx context.Context, local *models.MailBox, remote *models.MailBox) error {
	local.Exists = remote.Exists
	local.UIDValidity = remote.UIDValidity
	local.UIDNext = remote.UIDNext
	return s.repos.MailboxRepository.Update(ctx, local)
}

// ingestNewMailboxes persists newly appeared remote mailboxes and runs
// an initial-style fetch for each.
func (s *SyncService) ingestNewMailboxes(ctx context.Context, account *models.Account, missing []models.MailBox) error {
	if err := s.repos.MailboxRepository.BatchUpsert(ctx, missing); err != nil {
		return err
	}
	persisted, err := s.repos.MailboxRepository.GetByAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	byName := make(map[string]models.MailBox, len(persisted))
	for _, m := range persisted {
		byName[m.Name] = m
	}

	for _, remote := range missing {
		if remote.Exists == 0 {
			continue
		}
		mailbox, ok := byName[remote.Name]
		if !ok {
			continue
		}
		if _, err := s.fetchMailbox(ctx, account, &mailbox); err != nil {
			return err
		}
	}
	return nil
}

// removeOrphanMailbox drops a mailbox that disappeared on the server:
// its indexed documents and the local record.
func (s *SyncService) removeOrphanMailbox(ctx context.Context, account *models.Account, orphan *models.MailBox) error {
	if err := s.envelopeIndex.DeleteMailboxEnvelopes(ctx, account.ID, []uint64{orphan.ID}); err != nil {
		return err
	}
	if err := s.emlIndex.DeleteMailboxEnvelopes(ctx, account.ID, []uint64{orphan.ID}); err != nil {
		return err
	}
	s.log.Infof("Account %d: mailbox '%s' no longer exists remotely, removed local copy",
		account.ID, orphan.Name)
	return s.repos.MailboxRepository.Delete(ctx, account.ID, orphan.ID)
}
