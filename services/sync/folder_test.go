package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therolffr/bichon/internal/models"
)

func mailbox(name string) models.MailBox {
	return models.MailBox{Name: name}
}

func TestFindMissingMailboxes(t *testing.T) {
	local := []models.MailBox{mailbox("INBOX"), mailbox("Sent")}
	remote := []models.MailBox{mailbox("INBOX"), mailbox("Sent"), mailbox("Trash"), mailbox("Archive")}

	missing := FindMissingMailboxes(local, remote)

	require.Len(t, missing, 2)
	assert.Equal(t, "Trash", missing[0].Name)
	assert.Equal(t, "Archive", missing[1].Name)
}

func TestFindMissingMailboxes_NoneMissing(t *testing.T) {
	local := []models.MailBox{mailbox("INBOX")}
	remote := []models.MailBox{mailbox("INBOX")}

	assert.Empty(t, FindMissingMailboxes(local, remote))
}

func TestFindMissingMailboxes_EmptyLocal(t *testing.T) {
	remote := []models.MailBox{mailbox("INBOX"), mailbox("Sent")}

	missing := FindMissingMailboxes(nil, remote)

	require.Len(t, missing, 2)
}

func TestFindMissingMailboxes_NoDuplicates(t *testing.T) {
	remote := []models.MailBox{mailbox("INBOX"), mailbox("Sent"), mailbox("Trash")}

	missing := FindMissingMailboxes(nil, remote)

	seen := make(map[string]int)
	for _, m := range missing {
		seen[m.Name]++
	}
	for name, count := range seen {
		assert.Equalf(t, 1, count, "mailbox %s appears %d times", name, count)
	}
}

func TestFindIntersectingMailboxes_RemoteOrder(t *testing.T) {
	local := []models.MailBox{
		{ID: 1, Name: "Sent", UIDValidity: 100},
		{ID: 2, Name: "INBOX", UIDValidity: 200},
	}
	remote := []models.MailBox{
		{Name: "INBOX", UIDValidity: 201},
		{Name: "Sent", UIDValidity: 100},
		{Name: "Trash"},
	}

	pairs := FindIntersectingMailboxes(local, remote)

	require.Len(t, pairs, 2)
	assert.Equal(t, "INBOX", pairs[0].Local.Name)
	assert.Equal(t, uint64(2), pairs[0].Local.ID)
	assert.Equal(t, uint32(201), pairs[0].Remote.UIDValidity)
	assert.Equal(t, "Sent", pairs[1].Local.Name)
}

func TestFindOrphanMailboxes(t *testing.T) {
	local := []models.MailBox{mailbox("INBOX"), mailbox("Old"), mailbox("Sent")}
	remote := []models.MailBox{mailbox("INBOX"), mailbox("Sent")}

	orphans := FindOrphanMailboxes(local, remote)

	require.Len(t, orphans, 1)
	assert.Equal(t, "Old", orphans[0].Name)
}

func TestDiffUIDs(t *testing.T) {
	local := []uint32{1, 2, 3, 5}
	remote := []uint32{2, 3, 5, 8, 9}

	newUIDs, deletedUIDs, keptUIDs := diffUIDs(local, remote, 6)

	assert.Equal(t, []uint32{8, 9}, newUIDs)
	assert.Equal(t, []uint32{1}, deletedUIDs)
	assert.Equal(t, []uint32{2, 3, 5}, keptUIDs)
}

func TestDiffUIDs_EmptyLocal(t *testing.T) {
	newUIDs, deletedUIDs, keptUIDs := diffUIDs(nil, []uint32{1, 2}, 0)

	assert.Equal(t, []uint32{1, 2}, newUIDs)
	assert.Empty(t, deletedUIDs)
	assert.Empty(t, keptUIDs)
}

func TestDiffUIDs_EmptyRemote(t *testing.T) {
	newUIDs, deletedUIDs, keptUIDs := diffUIDs([]uint32{4, 5}, nil, 6)

	assert.Empty(t, newUIDs)
	assert.Equal(t, []uint32{4, 5}, deletedUIDs)
	assert.Empty(t, keptUIDs)
}
