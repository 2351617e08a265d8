package sync

import (
	"bytes"
	"context"
	"hash/fnv"
	"strings"

	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"

	"github.com/therolffr/bichon/internal/models"
	imap_session "github.com/therolffr/bichon/services/imap"
)

// buildDocuments converts one fetched message into its envelope and EML
// index documents.
func buildDocuments(account *models.Account, mailbox *models.MailBox, msg *imap_session.FetchedMessage) (models.Envelope, models.EmlDocument) {
	envelope := models.Envelope{
		AccountID:    account.ID,
		MailboxID:    mailbox.ID,
		UID:          msg.UID,
		InternalDate: msg.InternalDate.UnixMilli(),
		Size:         uint64(msg.Size),
		Flags:        msg.Flags,
	}

	if msg.Envelope != nil {
		envelope.Subject = msg.Envelope.Subject
		envelope.MessageID = msg.Envelope.MessageId
		if len(msg.Envelope.From) > 0 {
			envelope.FromAddr = msg.Envelope.From[0].Address()
		}
		for _, to := range msg.Envelope.To {
			envelope.ToAddrs = append(envelope.ToAddrs, to.Address())
		}
		envelope.ThreadID = threadID(msg.Envelope.InReplyTo, msg.Envelope.MessageId, msg.Envelope.Subject)
	}

	if len(msg.Raw) > 0 {
		if parsed, err := enmime.ReadEnvelope(bytes.NewReader(msg.Raw)); err == nil {
			envelope.BodyText = parsed.Text
			envelope.HasAttachment = len(parsed.Attachments) > 0
		}
	}

	eml := models.EmlDocument{
		AccountID: account.ID,
		MailboxID: mailbox.ID,
		Raw:       msg.Raw,
	}
	return envelope, eml
}

// threadID groups messages by conversation: the reply chain root when
// present, otherwise the message id, otherwise the normalized subject.
func threadID(inReplyTo, messageID, subject string) uint64 {
	key := inReplyTo
	if key == "" {
		key = messageID
	}
	if key == "" {
		key = normalizeSubject(subject)
	}
	if key == "" {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

func normalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(s)
		if strings.HasPrefix(lower, "re:") || strings.HasPrefix(lower, "fw:") {
			s = strings.TrimSpace(s[3:])
			continue
		}
		if strings.HasPrefix(lower, "fwd:") {
			s = strings.TrimSpace(s[4:])
			continue
		}
		return s
	}
}

// fetchAndSaveUIDs ingests the given UIDs of one mailbox in batches,
// reporting batch progress to the running state. Completion forces the
// progress counter to its total.
func (s *SyncService) fetchAndSaveUIDs(ctx context.Context, c *client.Client, account *models.Account, mailbox *models.MailBox, uids []uint32) (int, error) {
	if len(uids) == 0 {
		return 0, nil
	}

	batchSize := s.cfg.FetchBatchSize
	if batchSize < 1 {
		batchSize = 200
	}
	totalBatches := uint32((len(uids) + batchSize - 1) / batchSize)

	if err := s.repos.AccountStateRepository.SetInitialCurrentSyncingFolder(ctx, account.ID, mailbox.Name, totalBatches); err != nil {
		return 0, err
	}

	inserted := 0
	for batch := 0; batch < int(totalBatches); batch++ {
		start := batch * batchSize
		end := start + batchSize
		if end > len(uids) {
			end = len(uids)
		}

		envelopes := make([]models.Envelope, 0, end-start)
		emls := make([]models.EmlDocument, 0, end-start)
		err := imap_session.UIDFetch(c, uids[start:end], func(msg *imap_session.FetchedMessage) error {
			envelope, eml := buildDocuments(account, mailbox, msg)
			envelopes = append(envelopes, envelope)
			emls = append(emls, eml)
			return nil
		})
		if err != nil {
			return inserted, err
		}

		if err := s.envelopeIndex.InsertDocuments(ctx, envelopes); err != nil {
			return inserted, err
		}
		for i := range emls {
			emls[i].EnvelopeID = envelopes[i].EnvelopeID
		}
		if err := s.emlIndex.InsertDocuments(ctx, emls); err != nil {
			return inserted, err
		}
		inserted += len(envelopes)

		if err := s.repos.AccountStateRepository.SetCurrentSyncBatchNumber(ctx, account.ID, mailbox.Name, uint32(batch+1)); err != nil {
			return inserted, err
		}
	}

	if err := s.repos.AccountStateRepository.SetFolderInitialSyncCompleted(ctx, account.ID, mailbox.Name); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// fetchAndSaveFullMailbox ingests every message of the mailbox.
func (s *SyncService) fetchAndSaveFullMailbox(ctx context.Context, c *client.Client, account *models.Account, mailbox *models.MailBox) (int, error) {
	if _, err := imap_session.Select(c, mailbox.Name); err != nil {
		return 0, err
	}
	uids, err := imap_session.UIDSearchAll(c)
	if err != nil {
		return 0, err
	}
	return s.fetchAndSaveUIDs(ctx, c, account, mailbox, uids)
}

// fetchAndSaveSinceDate ingests messages received within the account's
// backfill window.
func (s *SyncService) fetchAndSaveSinceDate(ctx context.Context, c *client.Client, account *models.Account, mailbox *models.MailBox) (int, error) {
	since := account.SinceDate()
	if since.IsZero() {
		return s.fetchAndSaveFullMailbox(ctx, c, account, mailbox)
	}
	if _, err := imap_session.Select(c, mailbox.Name); err != nil {
		return 0, err
	}
	uids, err := imap_session.UIDSearchSince(c, since)
	if err != nil {
		return 0, err
	}
	return s.fetchAndSaveUIDs(ctx, c, account, mailbox, uids)
}
