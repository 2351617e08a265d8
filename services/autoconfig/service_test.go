package autoconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therolffr/bichon/internal/enum"
)

func TestDeriveEncryption(t *testing.T) {
	assert.Equal(t, enum.EncryptionSSL, deriveEncryption("SSL"))
	assert.Equal(t, enum.EncryptionStartTLS, deriveEncryption("STARTTLS"))
	assert.Equal(t, enum.EncryptionNone, deriveEncryption("plain"))
	assert.Equal(t, enum.EncryptionNone, deriveEncryption(""))
}

func TestDerivePort_ExplicitWins(t *testing.T) {
	assert.Equal(t, 1993, derivePort(1993, enum.EncryptionSSL, 993, 143))
}

func TestDerivePort_DefaultTable(t *testing.T) {
	// STARTTLS mis-reporters get the TLS port, everything else the
	// non-TLS port.
	assert.Equal(t, 993, derivePort(0, enum.EncryptionStartTLS, 993, 143))
	assert.Equal(t, 143, derivePort(0, enum.EncryptionSSL, 993, 143))
	assert.Equal(t, 143, derivePort(0, enum.EncryptionNone, 993, 143))
}

func TestDeriveHostname(t *testing.T) {
	assert.Equal(t, "mail.example.com", deriveHostname("mail.example.com", "imap", "example.com"))
	assert.Equal(t, "imap.example.com", deriveHostname("", "imap", "example.com"))
}

func TestDeriveConfig_PicksFirstImapServer(t *testing.T) {
	raw := &clientConfig{
		EmailProvider: emailProvider{
			IncomingServers: []incomingServer{
				{Type: "pop3", Hostname: "pop.example.com", Port: 995, SocketType: "SSL"},
				{Type: "imap", Hostname: "imap.example.com", Port: 993, SocketType: "SSL"},
				{Type: "imap", Hostname: "imap2.example.com", Port: 143, SocketType: "plain"},
			},
		},
	}

	config := deriveConfig(raw, "example.com")

	require.NotNil(t, config)
	assert.Equal(t, "imap.example.com", config.Imap.Host)
	assert.Equal(t, 993, config.Imap.Port)
	assert.Equal(t, enum.EncryptionSSL, config.Imap.Encryption)
	assert.Nil(t, config.OAuth2)
}

func TestDeriveConfig_NoImapServer(t *testing.T) {
	raw := &clientConfig{
		EmailProvider: emailProvider{
			IncomingServers: []incomingServer{
				{Type: "pop3", Hostname: "pop.example.com"},
			},
		},
	}

	assert.Nil(t, deriveConfig(raw, "example.com"))
}

func TestDeriveConfig_DefaultsFilled(t *testing.T) {
	raw := &clientConfig{
		EmailProvider: emailProvider{
			IncomingServers: []incomingServer{
				{Type: "imap", SocketType: "STARTTLS"},
			},
		},
	}

	config := deriveConfig(raw, "example.com")

	require.NotNil(t, config)
	assert.Equal(t, "imap.example.com", config.Imap.Host)
	assert.Equal(t, 993, config.Imap.Port)
	assert.Equal(t, enum.EncryptionStartTLS, config.Imap.Encryption)
}

func TestDeriveConfig_CarriesOAuth2Endpoints(t *testing.T) {
	raw := &clientConfig{
		EmailProvider: emailProvider{
			IncomingServers: []incomingServer{
				{Type: "imap", Hostname: "imap.gmail.com", Port: 993, SocketType: "SSL"},
			},
		},
		OAuth2: &oauth2Config{
			Issuer:   "accounts.google.com",
			Scope:    "https://mail.google.com/",
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	config := deriveConfig(raw, "gmail.com")

	require.NotNil(t, config)
	require.NotNil(t, config.OAuth2)
	assert.Equal(t, "accounts.google.com", config.OAuth2.Issuer)
	assert.Equal(t, []string{"https://mail.google.com/"}, config.OAuth2.Scope)
}
