package middleware

import (
	"fmt"
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/models"
)

const clientContextKey = "bichon-client-context"

// ClientContext is the per-request authorization state attached by the
// API guard.
type ClientContext struct {
	IPAddr      string
	AccessToken *models.AccessToken
	IsRoot      bool
	// enforced mirrors the global access-token toggle so route-level
	// checks can bypass when enforcement is off.
	enforced bool
}

func (c *ClientContext) RequireRoot() error {
	if !c.enforced || c.IsRoot {
		return nil
	}
	return bichon_errors.New(bichon_errors.PermissionDenied, "root access required")
}

func (c *ClientContext) RequireAuthorized() error {
	if !c.enforced || c.IsRoot || c.AccessToken != nil {
		return nil
	}
	return bichon_errors.New(bichon_errors.PermissionDenied, "authorization required")
}

func (c *ClientContext) RequireAccountAccess(accountID uint64) error {
	if !c.enforced || c.IsRoot {
		return nil
	}
	if c.AccessToken != nil && c.AccessToken.CanAccessAccount(accountID) {
		return nil
	}
	return bichon_errors.Newf(bichon_errors.PermissionDenied,
		"you do not have permission to access the requested email account (ID: %d)", accountID)
}

// GetClientContext returns the context attached by ApiGuard; requests
// that bypassed the guard get a permissive default.
func GetClientContext(c *gin.Context) *ClientContext {
	if value, ok := c.Get(clientContextKey); ok {
		if context, ok := value.(*ClientContext); ok {
			return context
		}
	}
	return &ClientContext{}
}

type ApiGuardConfig struct {
	Enabled      bool
	Tokens       interfaces.AccessTokenRepository
	Settings     interfaces.SystemSettingRepository
	RateLimiters *RateLimiterManager
}

// ApiGuard authenticates every API request: client IP extraction, token
// extraction from the bearer header or query parameter, root
// short-circuit, then per-token ACL (IP allow-list and rate limit).
func ApiGuard(cfg ApiGuardConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Set(clientContextKey, &ClientContext{})
			c.Next()
			return
		}

		ip, err := extractClientIP(c)
		if err != nil {
			abortWith(c, bichon_errors.New(bichon_errors.InvalidParameter,
				"failed to parse client IP address"))
			return
		}

		token := extractToken(c)
		if token == "" {
			abortWith(c, bichon_errors.New(bichon_errors.PermissionDenied,
				"valid access token not found"))
			return
		}

		// Root token bypasses every ACL check.
		if root, err := cfg.Settings.Get(c.Request.Context(), models.SettingRootToken); err == nil &&
			root != nil && root.Value == token {
			c.Set(clientContextKey, &ClientContext{IPAddr: ip, IsRoot: true, enforced: true})
			c.Next()
			return
		}

		validated, err := cfg.Tokens.TouchAccess(c.Request.Context(), token)
		if err != nil {
			abortWith(c, bichon_errors.New(bichon_errors.PermissionDenied, "invalid access token"))
			return
		}

		if validated.ACL != nil {
			if err := enforceACL(c, cfg, validated, ip); err != nil {
				abortWith(c, err)
				return
			}
		}

		c.Set(clientContextKey, &ClientContext{IPAddr: ip, AccessToken: validated, enforced: true})
		c.Next()
	}
}

func enforceACL(c *gin.Context, cfg ApiGuardConfig, token *models.AccessToken, ip string) error {
	acl := token.ACL
	if len(acl.IPWhitelist) > 0 {
		allowed := false
		for _, entry := range acl.IPWhitelist {
			if entry == ip {
				allowed = true
				break
			}
		}
		if !allowed {
			return bichon_errors.Newf(bichon_errors.PermissionDenied, "IP %s not in whitelist", ip)
		}
	}

	if acl.RateLimit != nil {
		if wait, ok := cfg.RateLimiters.Check(token.Token, *acl.RateLimit); !ok {
			return bichon_errors.Newf(bichon_errors.TooManyRequest,
				"rate limit: %d/%ds, retry after %ds",
				acl.RateLimit.Quota, acl.RateLimit.Interval, int(wait.Seconds())+1)
		}
	}
	return nil
}

// extractClientIP follows the X-Real-IP / X-Forwarded-For discipline,
// falling back to the socket peer, and normalizes to the canonical
// address form.
func extractClientIP(c *gin.Context) (string, error) {
	candidate := strings.TrimSpace(c.GetHeader("X-Real-IP"))
	if candidate == "" {
		forwarded := c.GetHeader("X-Forwarded-For")
		if forwarded != "" {
			candidate = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
	}
	if candidate == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			return "", err
		}
		candidate = host
	}

	parsed := net.ParseIP(candidate)
	if parsed == nil {
		return "", fmt.Errorf("invalid client IP: %q", candidate)
	}
	return parsed.String(), nil
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("access_token")
}

func abortWith(c *gin.Context, err error) {
	code := bichon_errors.CodeOf(err)
	c.AbortWithStatusJSON(bichon_errors.HTTPStatus(code), gin.H{
		"code":    code,
		"message": err.Error(),
	})
}

// AbortWithError is the shared error responder for handlers.
func AbortWithError(c *gin.Context, err error) {
	code := bichon_errors.CodeOf(err)
	c.JSON(bichon_errors.HTTPStatus(code), gin.H{
		"code":    code,
		"message": err.Error(),
	})
}
