package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/models"
)

type fakeTokenRepository struct {
	tokens map[string]*models.AccessToken
}

func (f *fakeTokenRepository) Create(_ context.Context, token *models.AccessToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeTokenRepository) GetAll(_ context.Context) ([]models.AccessToken, error) {
	var all []models.AccessToken
	for _, t := range f.tokens {
		all = append(all, *t)
	}
	return all, nil
}

func (f *fakeTokenRepository) TouchAccess(_ context.Context, token string) (*models.AccessToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, bichon_errors.New(bichon_errors.ResourceNotFound, "token not exist")
	}
	return t, nil
}

func (f *fakeTokenRepository) Update(_ context.Context, token string, mutate func(*models.AccessToken)) (*models.AccessToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, bichon_errors.New(bichon_errors.ResourceNotFound, "token not exist")
	}
	mutate(t)
	return t, nil
}

func (f *fakeTokenRepository) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

type fakeSettingRepository struct {
	values map[string]string
}

func (f *fakeSettingRepository) Get(_ context.Context, key string) (*models.SystemSetting, error) {
	value, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	return &models.SystemSetting{Key: key, Value: value}, nil
}

func (f *fakeSettingRepository) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

const rootToken = "root-secret-token"

func newTestRouter(tokens *fakeTokenRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ApiGuard(ApiGuardConfig{
		Enabled:      true,
		Tokens:       tokens,
		Settings:     &fakeSettingRepository{values: map[string]string{models.SettingRootToken: rootToken}},
		RateLimiters: NewRateLimiterManager(),
	}))
	router.GET("/probe", func(c *gin.Context) {
		context := GetClientContext(c)
		c.JSON(http.StatusOK, gin.H{"isRoot": context.IsRoot})
	})
	router.GET("/root-only", func(c *gin.Context) {
		if err := GetClientContext(c).RequireRoot(); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, path, bearer, realIP string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if realIP != "" {
		req.Header.Set("X-Real-IP", realIP)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestApiGuard_RootBypassesACL(t *testing.T) {
	restrictive := &models.AccessToken{
		Token: "limited",
		ACL: &models.AccessControlColumn{AccessControl: models.AccessControl{
			IPWhitelist: []string{"203.0.113.1"},
		}},
	}
	tokens := &fakeTokenRepository{tokens: map[string]*models.AccessToken{"limited": restrictive}}
	router := newTestRouter(tokens)

	// The root token passes from any IP, regardless of per-token ACLs.
	response := doRequest(router, "/probe", rootToken, "198.51.100.7")
	require.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), `"isRoot":true`)

	// The restricted token from a non-whitelisted IP is blocked.
	response = doRequest(router, "/probe", "limited", "198.51.100.7")
	assert.Equal(t, http.StatusForbidden, response.Code)
}

func TestApiGuard_MissingToken(t *testing.T) {
	router := newTestRouter(&fakeTokenRepository{tokens: map[string]*models.AccessToken{}})

	response := doRequest(router, "/probe", "", "198.51.100.7")
	assert.Equal(t, http.StatusForbidden, response.Code)
}

func TestApiGuard_UnknownToken(t *testing.T) {
	router := newTestRouter(&fakeTokenRepository{tokens: map[string]*models.AccessToken{}})

	response := doRequest(router, "/probe", "nope", "198.51.100.7")
	assert.Equal(t, http.StatusForbidden, response.Code)
}

func TestApiGuard_TokenViaQueryParam(t *testing.T) {
	tokens := &fakeTokenRepository{tokens: map[string]*models.AccessToken{
		"q-token": {Token: "q-token"},
	}}
	router := newTestRouter(tokens)

	response := doRequest(router, "/probe?access_token=q-token", "", "198.51.100.7")
	assert.Equal(t, http.StatusOK, response.Code)
}

func TestApiGuard_IPWhitelistAllows(t *testing.T) {
	tokens := &fakeTokenRepository{tokens: map[string]*models.AccessToken{
		"limited": {
			Token: "limited",
			ACL: &models.AccessControlColumn{AccessControl: models.AccessControl{
				IPWhitelist: []string{"203.0.113.1"},
			}},
		},
	}}
	router := newTestRouter(tokens)

	response := doRequest(router, "/probe", "limited", "203.0.113.1")
	assert.Equal(t, http.StatusOK, response.Code)
}

func TestApiGuard_RateLimitRejection(t *testing.T) {
	tokens := &fakeTokenRepository{tokens: map[string]*models.AccessToken{
		"limited": {
			Token: "limited",
			ACL: &models.AccessControlColumn{AccessControl: models.AccessControl{
				RateLimit: &models.RateLimit{Quota: 2, Interval: 30},
			}},
		},
	}}
	router := newTestRouter(tokens)

	for i := 0; i < 2; i++ {
		response := doRequest(router, "/probe", "limited", "198.51.100.7")
		require.Equal(t, http.StatusOK, response.Code)
	}
	response := doRequest(router, "/probe", "limited", "198.51.100.7")
	assert.Equal(t, http.StatusTooManyRequests, response.Code)
}

func TestRequireRoot_NonRootToken(t *testing.T) {
	tokens := &fakeTokenRepository{tokens: map[string]*models.AccessToken{
		"plain": {Token: "plain"},
	}}
	router := newTestRouter(tokens)

	response := doRequest(router, "/root-only", "plain", "198.51.100.7")
	assert.Equal(t, http.StatusForbidden, response.Code)

	response = doRequest(router, "/root-only", rootToken, "198.51.100.7")
	assert.Equal(t, http.StatusOK, response.Code)
}

func TestRequireAccountAccess(t *testing.T) {
	token := &models.AccessToken{
		Token:    "scoped",
		Accounts: models.AccountInfoList{{ID: 7, Email: "a@example.com"}},
	}
	context := &ClientContext{AccessToken: token, enforced: true}

	assert.NoError(t, context.RequireAccountAccess(7))
	assert.Error(t, context.RequireAccountAccess(8))

	root := &ClientContext{IsRoot: true, enforced: true}
	assert.NoError(t, root.RequireAccountAccess(8))

	unenforced := &ClientContext{}
	assert.NoError(t, unenforced.RequireAccountAccess(8))
}
