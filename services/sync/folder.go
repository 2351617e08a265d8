package sync

import (
	"github.com/therolffr/bichon/internal/models"
)

// FindMissingMailboxes returns the remote mailboxes whose names are not
// present locally, in remote order.
func FindMissingMailboxes(local, remote []models.MailBox) []models.MailBox {
	localNames := make(map[string]struct{}, len(local))
	for _, m := range local {
		localNames[m.Name] = struct{}{}
	}

	var missing []models.MailBox
	for _, m := range remote {
		if _, ok := localNames[m.Name]; !ok {
			missing = append(missing, m)
		}
	}
	return missing
}

// MailboxPair couples the local record with the matching remote view.
type MailboxPair struct {
	Local  models.MailBox
	Remote models.MailBox
}

// FindIntersectingMailboxes returns (local, remote) pairs keyed by equal
// name, in remote order.
func FindIntersectingMailboxes(local, remote []models.MailBox) []MailboxPair {
	localByName := make(map[string]models.MailBox, len(local))
	for _, m := range local {
		localByName[m.Name] = m
	}

	var pairs []MailboxPair
	for _, m := range remote {
		if localMailbox, ok := localByName[m.Name]; ok {
			pairs = append(pairs, MailboxPair{Local: localMailbox, Remote: m})
		}
	}
	return pairs
}

// FindOrphanMailboxes returns the local mailboxes absent from the remote
// list; the engine rebuilds them as deletions.
func FindOrphanMailboxes(local, remote []models.MailBox) []models.MailBox {
	remoteNames := make(map[string]struct{}, len(remote))
	for _, m := range remote {
		remoteNames[m.Name] = struct{}{}
	}

	var orphans []models.MailBox
	for _, m := range local {
		if _, ok := remoteNames[m.Name]; !ok {
			orphans = append(orphans, m)
		}
	}
	return orphans
}
