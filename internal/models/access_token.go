package models

import (
	"database/sql/driver"
	"net"

	bichon_errors "github.com/therolffr/bichon/errors"
)

// AccountInfo pairs an account id with its email inside a token's
// account set. Ordered by id.
type AccountInfo struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

type AccountInfoList []AccountInfo

func (l AccountInfoList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *AccountInfoList) Scan(value interface{}) error {
	return jsonScan(value, l)
}

func (l AccountInfoList) Contains(accountID uint64) bool {
	for _, info := range l {
		if info.ID == accountID {
			return true
		}
	}
	return false
}

type RateLimit struct {
	// Quota is the maximum number of requests within the interval.
	Quota uint32 `json:"quota"`
	// Interval is the time window in seconds.
	Interval uint64 `json:"interval"`
}

type AccessControl struct {
	IPWhitelist []string   `json:"ipWhitelist,omitempty"`
	RateLimit   *RateLimit `json:"rateLimit,omitempty"`
}

func (a *AccessControl) Validate() error {
	for _, ip := range a.IPWhitelist {
		if net.ParseIP(ip) == nil {
			return bichon_errors.Newf(bichon_errors.InvalidParameter, "invalid IP address: %s", ip)
		}
	}
	if a.RateLimit != nil {
		if a.RateLimit.Interval < 1 {
			return bichon_errors.New(bichon_errors.InvalidParameter,
				"rate limit interval must be at least 1 second")
		}
		if a.RateLimit.Quota < 1 {
			return bichon_errors.New(bichon_errors.InvalidParameter,
				"rate limit quota must be at least 1")
		}
	}
	return nil
}

type AccessControlColumn struct {
	AccessControl
}

func (a AccessControlColumn) Value() (driver.Value, error) {
	return jsonValue(a.AccessControl)
}

func (a *AccessControlColumn) Scan(value interface{}) error {
	return jsonScan(value, &a.AccessControl)
}

// AccessToken is an opaque bearer scoping API access to a set of
// accounts, optionally restricted by an ACL. The distinguished root
// token bypasses every check and is stored separately as a system
// setting.
type AccessToken struct {
	Token        string               `gorm:"column:token;type:varchar(255);primaryKey" json:"token"`
	Accounts     AccountInfoList      `gorm:"column:accounts;type:jsonb" json:"accounts"`
	Description  string               `gorm:"column:description;type:varchar(255)" json:"description,omitempty"`
	ACL          *AccessControlColumn `gorm:"column:acl;type:jsonb" json:"acl,omitempty"`
	CreatedAt    int64                `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt    int64                `gorm:"column:updated_at;not null" json:"updatedAt"`
	LastAccessAt int64                `gorm:"column:last_access_at;not null;default:0" json:"lastAccessAt"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}

func (t *AccessToken) CanAccessAccount(accountID uint64) bool {
	return t.Accounts.Contains(accountID)
}

// SystemSetting is a key/value row for process-level secrets such as the
// root token and root password hash.
type SystemSetting struct {
	Key       string `gorm:"column:key;type:varchar(100);primaryKey" json:"key"`
	Value     string `gorm:"column:value;type:text;not null" json:"-"`
	UpdatedAt int64  `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	SettingRootToken        = "root_token"
	SettingRootPasswordHash = "root_password_hash"
)
