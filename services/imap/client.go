package imap_session

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"golang.org/x/net/proxy"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/enum"
)

const (
	dialTimeout    = 30 * time.Second
	commandTimeout = 30 * time.Second
	fetchTimeout   = 60 * time.Second
)

// SessionConfig describes one IMAP connection attempt.
type SessionConfig struct {
	Host       string
	Port       int
	Encryption enum.Encryption
	// ProxyAddr, when set, routes the TCP connection through a SOCKS5
	// proxy.
	ProxyAddr string
	// DangerMode disables certificate verification. Reserved for
	// self-signed test servers; never the default.
	DangerMode bool
	// ALPNProtocols optionally constrains TLS protocol negotiation.
	ALPNProtocols []string
}

type dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

func (c SessionConfig) dialer() (dialer, error) {
	base := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
	if c.ProxyAddr == "" {
		return base, nil
	}
	socks, err := proxy.SOCKS5("tcp", c.ProxyAddr, nil, base)
	if err != nil {
		return nil, bichon_errors.Wrap(bichon_errors.NetworkError, "socks5 proxy setup failed", err)
	}
	return socks, nil
}

func (c SessionConfig) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         c.Host,
		InsecureSkipVerify: c.DangerMode,
		NextProtos:         c.ALPNProtocols,
	}
}

// Connect establishes the TCP flow selected by the encryption mode:
// direct TLS handshake, plain TCP with STARTTLS upgrade, or plaintext.
func Connect(cfg SessionConfig) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	d, err := cfg.dialer()
	if err != nil {
		return nil, err
	}

	var c *client.Client
	switch cfg.Encryption {
	case enum.EncryptionSSL:
		c, err = client.DialWithDialerTLS(d, addr, cfg.tlsConfig())
	case enum.EncryptionStartTLS:
		c, err = client.DialWithDialer(d, addr)
		if err == nil {
			err = c.StartTLS(cfg.tlsConfig())
		}
	case enum.EncryptionNone:
		c, err = client.DialWithDialer(d, addr)
	default:
		return nil, bichon_errors.Newf(bichon_errors.InvalidParameter,
			"unknown encryption mode: %s", cfg.Encryption)
	}
	if err != nil {
		return nil, bichon_errors.Wrap(bichon_errors.NetworkError,
			fmt.Sprintf("connection to %s failed", addr), err)
	}

	c.Timeout = commandTimeout
	return c, nil
}
