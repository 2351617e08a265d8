package middleware

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therolffr/bichon/internal/models"
)

func TestRateLimiter_QuotaExceeded(t *testing.T) {
	manager := NewRateLimiterManager()
	limit := models.RateLimit{Quota: 5, Interval: 10}

	for i := 0; i < 5; i++ {
		_, ok := manager.Check("token-a", limit)
		require.Truef(t, ok, "request %d within quota must pass", i+1)
	}

	wait, ok := manager.Check("token-a", limit)
	assert.False(t, ok, "request quota+1 must be rejected")
	assert.LessOrEqual(t, wait, time.Duration(limit.Interval)*time.Second)
	assert.Greater(t, wait, time.Duration(0))
}

func TestRateLimiter_TokensAreIndependent(t *testing.T) {
	manager := NewRateLimiterManager()
	limit := models.RateLimit{Quota: 1, Interval: 60}

	_, ok := manager.Check("token-a", limit)
	require.True(t, ok)
	_, ok = manager.Check("token-a", limit)
	require.False(t, ok)

	_, ok = manager.Check("token-b", limit)
	assert.True(t, ok, "a different token has its own budget")
}

func TestRateLimiter_ForgetResetsState(t *testing.T) {
	manager := NewRateLimiterManager()
	limit := models.RateLimit{Quota: 1, Interval: 60}

	_, ok := manager.Check("token-a", limit)
	require.True(t, ok)
	_, ok = manager.Check("token-a", limit)
	require.False(t, ok)

	manager.Forget("token-a")

	_, ok = manager.Check("token-a", limit)
	assert.True(t, ok)
}

func TestRateLimiter_ManyTokens(t *testing.T) {
	manager := NewRateLimiterManager()
	limit := models.RateLimit{Quota: 2, Interval: 30}

	for i := 0; i < 20; i++ {
		token := fmt.Sprintf("token-%d", i)
		_, ok := manager.Check(token, limit)
		require.True(t, ok)
	}
}
