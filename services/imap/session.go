package imap_session

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"

	bichon_errors "github.com/therolffr/bichon/errors"
)

// LoginPassword authenticates with a plaintext credential (PLAIN/LOGIN).
func LoginPassword(c *client.Client, username, password string) error {
	if err := c.Login(username, password); err != nil {
		c.Logout()
		return bichon_errors.Wrap(bichon_errors.NetworkError, "IMAP login failed", err)
	}
	return nil
}

// LoginXOAuth2 authenticates via SASL XOAUTH2 with a live access token.
func LoginXOAuth2(c *client.Client, username, accessToken string) error {
	if err := c.Authenticate(sasl.NewXoauth2Client(username, accessToken)); err != nil {
		c.Logout()
		return bichon_errors.Wrap(bichon_errors.NetworkError, "IMAP XOAUTH2 authentication failed", err)
	}
	return nil
}

// MailboxSnapshot is the remote view of one folder at SELECT time.
type MailboxSnapshot struct {
	Name        string
	Exists      uint32
	UIDValidity uint32
	UIDNext     uint32
}

// ListMailboxes enumerates all selectable folders on the server.
func ListMailboxes(c *client.Client) ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 20)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var names []string
	for m := range mailboxes {
		selectable := true
		for _, attr := range m.Attributes {
			if attr == imap.NoSelectAttr {
				selectable = false
				break
			}
		}
		if selectable {
			names = append(names, m.Name)
		}
	}
	if err := <-done; err != nil {
		return nil, bichon_errors.Wrap(bichon_errors.NetworkError, "mailbox list failed", err)
	}
	return names, nil
}

// Select opens a folder read-only and reports its counters.
func Select(c *client.Client, name string) (*MailboxSnapshot, error) {
	status, err := c.Select(name, true)
	if err != nil {
		return nil, bichon_errors.Wrap(bichon_errors.NetworkError,
			fmt.Sprintf("select of mailbox %q failed", name), err)
	}
	return &MailboxSnapshot{
		Name:        name,
		Exists:      status.Messages,
		UIDValidity: status.UidValidity,
		UIDNext:     status.UidNext,
	}, nil
}

// UIDSearchAll returns every UID in the selected mailbox, ascending.
func UIDSearchAll(c *client.Client) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	return uidSearch(c, criteria)
}

// UIDSearchSince returns UIDs of messages received on or after the date.
func UIDSearchSince(c *client.Client, since time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	return uidSearch(c, criteria)
}

// UIDSearchFrom returns UIDs at or above the given UID.
func UIDSearchFrom(c *client.Client, fromUID uint32) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	uidRange := new(imap.SeqSet)
	uidRange.AddRange(fromUID, 0)
	criteria.Uid = uidRange
	return uidSearch(c, criteria)
}

func uidSearch(c *client.Client, criteria *imap.SearchCriteria) ([]uint32, error) {
	c.Timeout = commandTimeout
	uids, err := c.UidSearch(criteria)
	c.Timeout = 0
	if err != nil {
		return nil, bichon_errors.Wrap(bichon_errors.NetworkError, "UID search failed", err)
	}
	return uids, nil
}

// FetchedMessage is one UID FETCH result with its raw payload.
type FetchedMessage struct {
	UID          uint32
	InternalDate time.Time
	Size         uint32
	Flags        []string
	Envelope     *imap.Envelope
	Raw          []byte
}

var fetchSection = &imap.BodySectionName{Peek: true}

// UIDFetch retrieves envelopes, flags, sizes, and raw bodies for the
// given UIDs, streaming each message to handle.
func UIDFetch(c *client.Client, uids []uint32, handle func(*FetchedMessage) error) error {
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchRFC822Size,
		imap.FetchUid,
		fetchSection.FetchItem(),
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	c.Timeout = fetchTimeout
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var handleErr error
	for msg := range messages {
		if handleErr != nil {
			continue // drain the channel after a handler failure
		}
		fetched := &FetchedMessage{
			UID:          msg.Uid,
			InternalDate: msg.InternalDate,
			Size:         msg.Size,
			Flags:        msg.Flags,
			Envelope:     msg.Envelope,
		}
		if body := msg.GetBody(fetchSection); body != nil {
			if raw, err := io.ReadAll(body); err == nil {
				fetched.Raw = raw
			}
		}
		handleErr = handle(fetched)
	}
	c.Timeout = 0

	if err := <-done; err != nil {
		return bichon_errors.Wrap(bichon_errors.NetworkError, "UID fetch failed", err)
	}
	return handleErr
}
