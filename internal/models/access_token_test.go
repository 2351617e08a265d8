package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	bichon_errors "github.com/therolffr/bichon/errors"
)

func TestAccountInfoList_Contains(t *testing.T) {
	accounts := AccountInfoList{
		{ID: 1, Email: "a@example.com"},
		{ID: 2, Email: "b@example.com"},
	}

	assert.True(t, accounts.Contains(1))
	assert.True(t, accounts.Contains(2))
	assert.False(t, accounts.Contains(3))
}

func TestAccessControl_Validate(t *testing.T) {
	valid := AccessControl{
		IPWhitelist: []string{"192.0.2.1", "2001:db8::1"},
		RateLimit:   &RateLimit{Quota: 10, Interval: 60},
	}
	assert.NoError(t, valid.Validate())

	badIP := AccessControl{IPWhitelist: []string{"not-an-ip"}}
	err := badIP.Validate()
	assert.Error(t, err)
	assert.Equal(t, bichon_errors.InvalidParameter, bichon_errors.CodeOf(err))

	zeroInterval := AccessControl{RateLimit: &RateLimit{Quota: 10, Interval: 0}}
	assert.Error(t, zeroInterval.Validate())

	zeroQuota := AccessControl{RateLimit: &RateLimit{Quota: 0, Interval: 60}}
	assert.Error(t, zeroQuota.Validate())
}

func TestImapConfig_Validate(t *testing.T) {
	valid := ImapConfig{Host: "imap.example.com", Port: 993, AuthType: "oauth2"}
	assert.NoError(t, valid.Validate())

	badHost := ImapConfig{Host: "bad host!", Port: 993, AuthType: "oauth2"}
	assert.Error(t, badHost.Validate())

	badPort := ImapConfig{Host: "imap.example.com", Port: 0, AuthType: "oauth2"}
	assert.Error(t, badPort.Validate())

	missingPassword := ImapConfig{Host: "imap.example.com", Port: 993, AuthType: "password"}
	assert.Error(t, missingPassword.Validate())

	withPassword := ImapConfig{Host: "imap.example.com", Port: 993, AuthType: "password", Password: "enc"}
	assert.NoError(t, withPassword.Validate())
}
