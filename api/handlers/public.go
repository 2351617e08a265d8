package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/therolffr/bichon/api/middleware"
	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/utils"
	"github.com/therolffr/bichon/services/oauth2"
)

// PublicHandler serves the endpoints reachable without a bearer token:
// service status, root login, and the OAuth2 PKCE callback.
type PublicHandler struct {
	settings interfaces.SystemSettingRepository
	oauth2   *oauth2.OAuth2Service
	version  string
}

func NewPublicHandler(settings interfaces.SystemSettingRepository, oauth2Service *oauth2.OAuth2Service, version string) *PublicHandler {
	return &PublicHandler{settings: settings, oauth2: oauth2Service, version: version}
}

func (h *PublicHandler) Status() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": h.version,
		})
	}
}

type LoginRequest struct {
	Password string `json:"password"`
}

// Login exchanges the root password for the root token.
func (h *PublicHandler) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request LoginRequest
		if err := c.ShouldBindJSON(&request); err != nil || request.Password == "" {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter, "password is required"))
			return
		}

		ctx := c.Request.Context()
		stored, err := h.settings.Get(ctx, models.SettingRootPasswordHash)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if stored == nil || stored.Value != utils.HashPassword(request.Password) {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.PermissionDenied, "invalid password"))
			return
		}

		root, err := h.settings.Get(ctx, models.SettingRootToken)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if root == nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InternalError, "root token not initialized"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": root.Value})
	}
}

// OAuth2Callback completes the PKCE exchange started by an authorize
// request.
func (h *PublicHandler) OAuth2Callback() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := c.Query("state")
		code := c.Query("code")
		if state == "" || code == "" {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter,
				"state and code are required"))
			return
		}
		if err := h.oauth2.CompleteCallback(c.Request.Context(), state, code); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "authorized"})
	}
}

// OAuth2Authorize builds the authorization URL for an account (root
// only).
func (h *PublicHandler) OAuth2Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		oauth2ID, err := strconv.ParseUint(c.Query("oauth2_id"), 10, 64)
		if err != nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter, "invalid oauth2_id"))
			return
		}
		accountID, err := strconv.ParseUint(c.Query("account_id"), 10, 64)
		if err != nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter, "invalid account_id"))
			return
		}

		url, err := h.oauth2.BuildAuthorizationURL(c.Request.Context(), oauth2ID, accountID)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}
