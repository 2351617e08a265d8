package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/therolffr/bichon/internal/utils"
)

// Envelope is the compact per-message metadata document in the envelope
// index. Addressed by (account_id, mailbox_id, envelope_id).
type Envelope struct {
	EnvelopeID uint64 `gorm:"column:envelope_id;primaryKey" json:"envelopeId"`
	AccountID  uint64 `gorm:"column:account_id;index:idx_envelope_account_mailbox;not null" json:"accountId"`
	MailboxID  uint64 `gorm:"column:mailbox_id;index:idx_envelope_account_mailbox;not null" json:"mailboxId"`
	UID        uint32 `gorm:"column:uid;index;not null" json:"uid"`

	// InternalDate is the server-reported receive time in epoch ms.
	InternalDate  int64          `gorm:"column:internal_date;index;not null" json:"internalDate"`
	Size          uint64         `gorm:"column:size;not null;default:0" json:"size"`
	Subject       string         `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	FromAddr      string         `gorm:"column:from_addr;type:varchar(255);index" json:"from"`
	ToAddrs       pq.StringArray `gorm:"column:to_addrs;type:text[]" json:"to"`
	MessageID     string         `gorm:"column:message_id;type:varchar(255);index" json:"messageId"`
	ThreadID      uint64         `gorm:"column:thread_id;index" json:"threadId"`
	HasAttachment bool           `gorm:"column:has_attachment;default:false" json:"hasAttachment"`
	Flags         pq.StringArray `gorm:"column:flags;type:text[]" json:"flags"`
	Tags          pq.StringArray `gorm:"column:tags;type:text[]" json:"tags"`

	// BodyText is the searchable plain-text extraction.
	BodyText string `gorm:"column:body_text;type:text" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"-"`
}

func (Envelope) TableName() string {
	return "envelopes"
}

func (e *Envelope) BeforeCreate(tx *gorm.DB) error {
	if e.EnvelopeID == 0 {
		e.EnvelopeID = utils.NextID()
	}
	return nil
}

// EmlDocument is the raw RFC 5322 payload in the EML index, keyed the
// same way as its envelope.
type EmlDocument struct {
	EnvelopeID uint64 `gorm:"column:envelope_id;primaryKey" json:"envelopeId"`
	AccountID  uint64 `gorm:"column:account_id;index:idx_eml_account_mailbox;not null" json:"accountId"`
	MailboxID  uint64 `gorm:"column:mailbox_id;index:idx_eml_account_mailbox;not null" json:"mailboxId"`
	Raw        []byte `gorm:"column:raw;type:bytea" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"-"`
}

func (EmlDocument) TableName() string {
	return "eml_documents"
}
