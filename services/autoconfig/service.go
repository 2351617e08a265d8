package autoconfig

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/enum"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
)

// AutoconfigService resolves a domain's mail server configuration,
// seeding new accounts. Resolutions are cached for 30 days; the cache
// repository handles staleness on read.
type AutoconfigService struct {
	cache      interfaces.AutoconfigCacheRepository
	httpClient *http.Client
	log        logger.Logger
}

func NewAutoconfigService(cache interfaces.AutoconfigCacheRepository, log logger.Logger) *AutoconfigService {
	return &AutoconfigService{
		cache:      cache,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Resolve validates the address, consults the cache, and on miss probes
// the domain's autoconfig endpoints. The resolved configuration is
// cached before returning. A nil result means the provider publishes no
// IMAP endpoint.
func (s *AutoconfigService) Resolve(ctx context.Context, email string) (*models.MailServerConfig, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AutoconfigService.Resolve")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	validation := mailvalidate.ValidateEmailSyntax(email)
	if !validation.IsValid {
		return nil, bichon_errors.Newf(bichon_errors.InvalidParameter,
			"invalid email address: %q", email)
	}
	domain := validation.Domain

	if cached, err := s.cache.Get(ctx, domain); err != nil {
		return nil, err
	} else if cached != nil {
		return &cached.Config, nil
	}

	raw, err := probe(ctx, s.httpClient, email, domain)
	if err != nil {
		s.log.Errorf("Autoconfig fetch failed for email %s (domain %s): %v", email, domain, err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	config := deriveConfig(raw, domain)
	if config == nil {
		return nil, nil
	}

	if err := s.cache.Put(ctx, domain, *config); err != nil {
		return nil, err
	}
	return config, nil
}

// deriveConfig picks the first IMAP incoming server and fills the
// defaults the provider omitted: encryption from the socket type, port
// from the default table {STARTTLS -> TLS port, else -> non-TLS port},
// hostname as imap.<domain>.
func deriveConfig(raw *clientConfig, domain string) *models.MailServerConfig {
	var imapServer *incomingServer
	for i := range raw.EmailProvider.IncomingServers {
		if strings.EqualFold(raw.EmailProvider.IncomingServers[i].Type, "imap") {
			imapServer = &raw.EmailProvider.IncomingServers[i]
			break
		}
	}
	if imapServer == nil {
		return nil
	}

	encryption := deriveEncryption(imapServer.SocketType)
	config := &models.MailServerConfig{
		Imap: models.ServerConfig{
			Host:       deriveHostname(imapServer.Hostname, "imap", domain),
			Port:       derivePort(imapServer.Port, encryption, 993, 143),
			Encryption: encryption,
		},
	}

	if raw.OAuth2 != nil {
		config.OAuth2 = &models.OAuth2Endpoints{
			Issuer:   raw.OAuth2.Issuer,
			Scope:    strings.Fields(raw.OAuth2.Scope),
			AuthURL:  raw.OAuth2.AuthURL,
			TokenURL: raw.OAuth2.TokenURL,
		}
	}
	return config
}

func deriveEncryption(socketType string) enum.Encryption {
	switch strings.ToUpper(socketType) {
	case "SSL":
		return enum.EncryptionSSL
	case "STARTTLS":
		return enum.EncryptionStartTLS
	default:
		return enum.EncryptionNone
	}
}

func derivePort(port int, encryption enum.Encryption, tlsPort, nonTLSPort int) int {
	if port > 0 {
		return port
	}
	if encryption == enum.EncryptionStartTLS {
		return tlsPort
	}
	return nonTLSPort
}

func deriveHostname(hostname, defaultPrefix, domain string) string {
	if hostname != "" {
		return hostname
	}
	return fmt.Sprintf("%s.%s", defaultPrefix, domain)
}
