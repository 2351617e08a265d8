package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/therolffr/bichon/internal/utils"
)

// MailBox mirrors one remote IMAP folder as last observed. UIDVALIDITY
// and UIDNEXT drive the rebuild-vs-delta decision on incremental syncs.
type MailBox struct {
	ID          uint64 `gorm:"column:id;primaryKey" json:"id"`
	AccountID   uint64 `gorm:"column:account_id;index;uniqueIndex:idx_account_mailbox_name;not null" json:"accountId"`
	Name        string `gorm:"column:name;type:varchar(255);uniqueIndex:idx_account_mailbox_name;not null" json:"name"`
	Exists      uint32 `gorm:"column:exists;not null;default:0" json:"exists"`
	UIDValidity uint32 `gorm:"column:uid_validity;not null;default:0" json:"uidValidity"`
	UIDNext     uint32 `gorm:"column:uid_next;not null;default:0" json:"uidNext"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (MailBox) TableName() string {
	return "mailboxes"
}

func (m *MailBox) BeforeCreate(tx *gorm.DB) error {
	if m.ID == 0 {
		m.ID = utils.NextID()
	}
	return nil
}
