package sync

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therolffr/bichon/internal/models"
	imap_session "github.com/therolffr/bichon/services/imap"
)

func TestNormalizeSubject(t *testing.T) {
	assert.Equal(t, "hello", normalizeSubject("hello"))
	assert.Equal(t, "hello", normalizeSubject("Re: hello"))
	assert.Equal(t, "hello", normalizeSubject("RE: FW: hello"))
	assert.Equal(t, "hello", normalizeSubject("Fwd: hello"))
	assert.Equal(t, "", normalizeSubject("  "))
}

func TestThreadID_ReplyChainWins(t *testing.T) {
	root := threadID("", "<root@example.com>", "hello")
	reply := threadID("<root@example.com>", "<reply@example.com>", "Re: hello")

	assert.Equal(t, root, reply, "a reply must land in its root's thread")
}

func TestThreadID_FallsBackToSubject(t *testing.T) {
	first := threadID("", "", "Quarterly report")
	second := threadID("", "", "Re: Quarterly report")

	assert.Equal(t, first, second)
	assert.NotZero(t, first)
}

func TestThreadID_EmptyEverything(t *testing.T) {
	assert.Zero(t, threadID("", "", ""))
}

func TestBuildDocuments(t *testing.T) {
	account := &models.Account{ID: 11, Email: "user@example.com"}
	mailbox := &models.MailBox{ID: 22, AccountID: 11, Name: "INBOX"}
	internalDate := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	raw := []byte("From: Alice <alice@example.com>\r\n" +
		"To: user@example.com\r\n" +
		"Subject: greetings\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hi there\r\n")

	msg := &imap_session.FetchedMessage{
		UID:          301,
		InternalDate: internalDate,
		Size:         uint32(len(raw)),
		Flags:        []string{imap.SeenFlag},
		Envelope: &imap.Envelope{
			Subject:   "greetings",
			MessageId: "<m1@example.com>",
			From:      []*imap.Address{{MailboxName: "alice", HostName: "example.com"}},
			To:        []*imap.Address{{MailboxName: "user", HostName: "example.com"}},
		},
		Raw: raw,
	}

	envelope, eml := buildDocuments(account, mailbox, msg)

	assert.Equal(t, uint64(11), envelope.AccountID)
	assert.Equal(t, uint64(22), envelope.MailboxID)
	assert.Equal(t, uint32(301), envelope.UID)
	assert.Equal(t, internalDate.UnixMilli(), envelope.InternalDate)
	assert.Equal(t, "greetings", envelope.Subject)
	assert.Equal(t, "alice@example.com", envelope.FromAddr)
	require.Len(t, envelope.ToAddrs, 1)
	assert.Equal(t, "user@example.com", envelope.ToAddrs[0])
	assert.Contains(t, envelope.BodyText, "hi there")
	assert.False(t, envelope.HasAttachment)
	assert.NotZero(t, envelope.ThreadID)

	assert.Equal(t, raw, eml.Raw)
	assert.Equal(t, uint64(11), eml.AccountID)
}

func TestBuildDocuments_NoEnvelopeNoBody(t *testing.T) {
	account := &models.Account{ID: 1}
	mailbox := &models.MailBox{ID: 2}
	msg := &imap_session.FetchedMessage{UID: 5, InternalDate: time.Unix(0, 0)}

	envelope, eml := buildDocuments(account, mailbox, msg)

	assert.Equal(t, uint32(5), envelope.UID)
	assert.Empty(t, envelope.Subject)
	assert.Zero(t, envelope.ThreadID)
	assert.Empty(t, eml.Raw)
}
