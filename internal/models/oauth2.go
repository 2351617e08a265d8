package models

// ExternalOAuthAppID marks tokens supplied by the user out of band. The
// refresh loop never touches them.
const ExternalOAuthAppID uint64 = 0xFFFFFFFFFFFFFFFF

// OAuth2AccessToken is the persisted token gating IMAP XOAUTH2 login for
// one account.
type OAuth2AccessToken struct {
	AccountID    uint64 `gorm:"column:account_id;primaryKey" json:"accountId"`
	OAuth2ID     uint64 `gorm:"column:oauth2_id;not null" json:"oauth2Id"`
	AccessToken  string `gorm:"column:access_token;type:varchar(4000);not null" json:"-"`
	RefreshToken string `gorm:"column:refresh_token;type:varchar(4000)" json:"-"`
	UpdatedAt    int64  `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (OAuth2AccessToken) TableName() string {
	return "oauth2_access_tokens"
}

// OAuth2PendingEntity records one in-flight PKCE authorization. The
// state parameter binds the browser session; the code verifier binds the
// token exchange. Rows expire after 24 hours.
type OAuth2PendingEntity struct {
	State        string `gorm:"column:state;type:varchar(255);primaryKey" json:"state"`
	OAuth2ID     uint64 `gorm:"column:oauth2_id;not null" json:"oauth2Id"`
	AccountID    uint64 `gorm:"column:account_id;not null" json:"accountId"`
	CodeVerifier string `gorm:"column:code_verifier;type:varchar(255);not null" json:"-"`
	CreatedAt    int64  `gorm:"column:created_at;not null" json:"createdAt"`
}

func (OAuth2PendingEntity) TableName() string {
	return "oauth2_pending_entities"
}
