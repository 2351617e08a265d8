package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/therolffr/bichon/internal/models"
)

// RateLimiterManager keeps one limiter per token string, created lazily
// from the token's ACL quota and interval.
type RateLimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiterManager() *RateLimiterManager {
	return &RateLimiterManager{limiters: make(map[string]*rate.Limiter)}
}

// Check admits or rejects one request under the token's rate limit. On
// rejection it reports how long the caller must wait before retrying.
func (m *RateLimiterManager) Check(token string, limit models.RateLimit) (time.Duration, bool) {
	m.mu.Lock()
	limiter, ok := m.limiters[token]
	if !ok {
		perSecond := rate.Limit(float64(limit.Quota) / float64(limit.Interval))
		limiter = rate.NewLimiter(perSecond, int(limit.Quota))
		m.limiters[token] = limiter
	}
	m.mu.Unlock()

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return time.Duration(limit.Interval) * time.Second, false
	}
	delay := reservation.Delay()
	if delay > 0 {
		reservation.Cancel()
		return delay, false
	}
	return 0, true
}

// Forget drops the limiter state of a deleted token.
func (m *RateLimiterManager) Forget(token string) {
	m.mu.Lock()
	delete(m.limiters, token)
	m.mu.Unlock()
}
