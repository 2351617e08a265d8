package models

import (
	"database/sql/driver"
	"regexp"
	"time"

	"gorm.io/gorm"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/enum"
	"github.com/therolffr/bichon/internal/utils"
)

var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9\-\.]+$`)

// ImapConfig describes how to reach and authenticate against the
// account's IMAP server.
type ImapConfig struct {
	// Host is the IMAP server hostname or IP address.
	Host string `json:"host"`
	// Port is the IMAP server port number.
	Port int `json:"port"`
	// Encryption selects the connection flow: direct TLS, STARTTLS
	// upgrade, or plaintext.
	Encryption enum.Encryption `json:"encryption"`
	AuthType   enum.AuthType   `json:"authType"`
	// Password holds the AES-256-GCM encrypted credential when AuthType
	// is password. The plaintext is never persisted.
	Password string `json:"password,omitempty"`
	// UseProxy names a pre-configured SOCKS5 proxy; zero means a direct
	// connection.
	UseProxy uint64 `json:"useProxy,omitempty"`
}

func (c *ImapConfig) Validate() error {
	if c.Host == "" || len(c.Host) > 253 || !hostPattern.MatchString(c.Host) {
		return bichon_errors.Newf(bichon_errors.InvalidParameter, "invalid IMAP host: %q", c.Host)
	}
	if c.Port < 1 || c.Port > 65535 {
		return bichon_errors.Newf(bichon_errors.InvalidParameter, "invalid IMAP port: %d", c.Port)
	}
	if c.AuthType == enum.AuthTypePassword && c.Password == "" {
		return bichon_errors.New(bichon_errors.InvalidParameter,
			"password must be set when auth type is password")
	}
	return nil
}

func (c ImapConfig) Value() (driver.Value, error) {
	return jsonValue(c)
}

func (c *ImapConfig) Scan(value interface{}) error {
	return jsonScan(value, c)
}

// Account is a configured remote IMAP user whose mail is mirrored
// locally.
type Account struct {
	ID      uint64 `gorm:"column:id;primaryKey" json:"id"`
	Email   string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Name    string `gorm:"column:name;type:varchar(255)" json:"name"`
	Enabled bool   `gorm:"column:enabled;default:true" json:"enabled"`

	Imap *ImapConfig `gorm:"column:imap;type:jsonb" json:"imap,omitempty"`

	// SyncIntervalMin drives the incremental sync cadence. A nil value
	// means the account is misconfigured; sync fails loudly rather than
	// assuming a default.
	SyncIntervalMin *int64 `gorm:"column:sync_interval_min" json:"syncIntervalMin,omitempty"`

	// DateSinceDays bounds the initial backfill window; zero or nil
	// fetches the full mailbox history.
	DateSinceDays *int `gorm:"column:date_since_days" json:"dateSinceDays,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == 0 {
		a.ID = utils.NextID()
	}
	return nil
}

// SinceDate resolves the backfill window to an absolute time; the zero
// time means unbounded.
func (a *Account) SinceDate() time.Time {
	if a.DateSinceDays == nil || *a.DateSinceDays <= 0 {
		return time.Time{}
	}
	return utils.Now().AddDate(0, 0, -*a.DateSinceDays)
}
