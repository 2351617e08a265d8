package models

import (
	"database/sql/driver"

	"github.com/therolffr/bichon/internal/enum"
)

// ServerConfig is one resolved mail server endpoint.
type ServerConfig struct {
	Host       string          `json:"host"`
	Port       int             `json:"port"`
	Encryption enum.Encryption `json:"encryption"`
}

// OAuth2Endpoints carries provider authorization metadata discovered by
// autoconfig.
type OAuth2Endpoints struct {
	Issuer   string   `json:"issuer"`
	Scope    []string `json:"scope"`
	AuthURL  string   `json:"authUrl"`
	TokenURL string   `json:"tokenUrl"`
}

// MailServerConfig is the autoconfig resolution result used to seed new
// accounts.
type MailServerConfig struct {
	Imap   ServerConfig     `json:"imap"`
	OAuth2 *OAuth2Endpoints `json:"oauth2,omitempty"`
}

func (c MailServerConfig) Value() (driver.Value, error) {
	return jsonValue(c)
}

func (c *MailServerConfig) Scan(value interface{}) error {
	return jsonScan(value, c)
}

// CachedMailSettings caches one domain's resolved configuration. Rows
// older than 30 days are stale: deleted on read and treated as misses.
type CachedMailSettings struct {
	Domain    string           `gorm:"column:domain;type:varchar(255);primaryKey" json:"domain"`
	Config    MailServerConfig `gorm:"column:config;type:jsonb" json:"config"`
	CreatedAt int64            `gorm:"column:created_at;not null" json:"createdAt"`
}

func (CachedMailSettings) TableName() string {
	return "cached_mail_settings"
}
