package oauth2

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/opentracing/opentracing-go"
	xoauth2 "golang.org/x/oauth2"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/tracing"
	"github.com/therolffr/bichon/internal/utils"
)

// Provider is one registered OAuth2 application the service can drive
// PKCE flows against.
type Provider struct {
	ID           uint64
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// OAuth2Service drives the PKCE authorization flow and token refresh for
// IMAP XOAUTH2 accounts.
type OAuth2Service struct {
	tokens      interfaces.OAuth2TokenRepository
	pending     interfaces.OAuth2PendingRepository
	providers   map[uint64]Provider
	redirectURL string
	log         logger.Logger
}

func NewOAuth2Service(
	tokens interfaces.OAuth2TokenRepository,
	pending interfaces.OAuth2PendingRepository,
	providers []Provider,
	redirectURL string,
	log logger.Logger,
) *OAuth2Service {
	providerMap := make(map[uint64]Provider, len(providers))
	for _, p := range providers {
		providerMap[p.ID] = p
	}
	return &OAuth2Service{
		tokens:      tokens,
		pending:     pending,
		providers:   providerMap,
		redirectURL: redirectURL,
		log:         log,
	}
}

func (s *OAuth2Service) config(p Provider) *xoauth2.Config {
	return &xoauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint: xoauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
		RedirectURL: s.redirectURL,
		Scopes:      p.Scopes,
	}
}

// BuildAuthorizationURL starts a PKCE flow for the account, persisting
// the pending record that binds state to the code verifier.
func (s *OAuth2Service) BuildAuthorizationURL(ctx context.Context, oauth2ID, accountID uint64) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "OAuth2Service.BuildAuthorizationURL")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	provider, ok := s.providers[oauth2ID]
	if !ok {
		return "", bichon_errors.Newf(bichon_errors.ResourceNotFound,
			"unknown OAuth2 provider: %d", oauth2ID)
	}

	state := utils.GenerateSecureToken()
	verifier := randomVerifier()

	record := &models.OAuth2PendingEntity{
		State:        state,
		OAuth2ID:     oauth2ID,
		AccountID:    accountID,
		CodeVerifier: verifier,
	}
	if err := s.pending.Save(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	challenge := base64.RawURLEncoding.EncodeToString(hashVerifier(verifier))
	url := s.config(provider).AuthCodeURL(state,
		xoauth2.AccessTypeOffline,
		xoauth2.SetAuthURLParam("code_challenge", challenge),
		xoauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return url, nil
}

// CompleteCallback finishes the PKCE exchange: the state must match a
// live pending record whose code verifier completes the token request.
func (s *OAuth2Service) CompleteCallback(ctx context.Context, state, code string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "OAuth2Service.CompleteCallback")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	record, err := s.pending.Get(ctx, state)
	if err != nil {
		return err
	}
	if record == nil {
		return bichon_errors.New(bichon_errors.ResourceNotFound,
			"no pending authorization matches the provided state")
	}

	provider, ok := s.providers[record.OAuth2ID]
	if !ok {
		return bichon_errors.Newf(bichon_errors.ResourceNotFound,
			"unknown OAuth2 provider: %d", record.OAuth2ID)
	}

	token, err := s.config(provider).Exchange(ctx, code,
		xoauth2.SetAuthURLParam("code_verifier", record.CodeVerifier))
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.NetworkError, "authorization code exchange failed", err)
	}

	row := &models.OAuth2AccessToken{
		AccountID:    record.AccountID,
		OAuth2ID:     record.OAuth2ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if err := s.tokens.Upsert(ctx, row); err != nil {
		return err
	}
	return s.pending.Delete(ctx, state)
}

// RefreshAccessToken exchanges the stored refresh token for a fresh
// access token and advances updated_at.
func (s *OAuth2Service) RefreshAccessToken(ctx context.Context, token *models.OAuth2AccessToken) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "OAuth2Service.RefreshAccessToken")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	provider, ok := s.providers[token.OAuth2ID]
	if !ok {
		return bichon_errors.Newf(bichon_errors.ResourceNotFound,
			"unknown OAuth2 provider: %d", token.OAuth2ID)
	}
	if token.RefreshToken == "" {
		return bichon_errors.Newf(bichon_errors.InvalidParameter,
			"account %d has no refresh token", token.AccountID)
	}

	source := s.config(provider).TokenSource(ctx, &xoauth2.Token{RefreshToken: token.RefreshToken})
	fresh, err := source.Token()
	if err != nil {
		tracing.TraceErr(span, err)
		return bichon_errors.Wrap(bichon_errors.NetworkError, "token refresh failed", err)
	}

	token.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		token.RefreshToken = fresh.RefreshToken
	}
	return s.tokens.Upsert(ctx, token)
}

func randomVerifier() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func hashVerifier(verifier string) []byte {
	sum := sha256.Sum256([]byte(verifier))
	return sum[:]
}
