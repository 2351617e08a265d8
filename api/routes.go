package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/therolffr/bichon/api/handlers"
	"github.com/therolffr/bichon/api/middleware"
	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/config"
	"github.com/therolffr/bichon/services"
)

// RegisterRoutes sets up the REST surface: public endpoints, then the
// guarded /api/v1 group.
func RegisterRoutes(r *gin.Engine, s *services.Services, cfg *config.Config) {
	r.Use(gin.Recovery())
	r.Use(middleware.RequestTimeout())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		middleware.AbortWithError(c, bichon_errors.New(bichon_errors.MethodNotAllowed,
			"method not allowed"))
	})

	if cfg.AppConfig.CompressionEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	if len(cfg.AppConfig.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AppConfig.CorsOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       time.Duration(cfg.AppConfig.CorsMaxAge) * time.Second,
		}))
	}

	accessTokenHandler := handlers.NewAccessTokenHandler(
		s.Repositories.AccessTokenRepository,
		s.Repositories.AccountRepository,
		s.Repositories.SystemSettingRepository,
	)
	messagesHandler := handlers.NewMessagesHandler(s.EnvelopeIndex, s.EmlIndex)
	accountsHandler := handlers.NewAccountsHandler(
		s.Repositories.AccountRepository,
		s.Repositories.AccountStateRepository,
		s.Repositories.MailboxRepository,
		s.EnvelopeIndex,
		s.EmlIndex,
		s.AutoconfigService,
		s.SyncController,
		s.Cipher,
	)
	publicHandler := handlers.NewPublicHandler(
		s.Repositories.SystemSettingRepository,
		s.OAuth2Service,
		s.Version,
	)

	// Public endpoints.
	r.GET("/api/status", publicHandler.Status())
	r.POST("/api/login", publicHandler.Login())
	r.GET("/oauth2/callback", publicHandler.OAuth2Callback())

	guard := middleware.ApiGuard(middleware.ApiGuardConfig{
		Enabled:      cfg.AppConfig.EnableAccessToken,
		Tokens:       s.Repositories.AccessTokenRepository,
		Settings:     s.Repositories.SystemSettingRepository,
		RateLimiters: s.RateLimiters,
	})

	api := r.Group("/api/v1")
	api.Use(guard)
	{
		// Access tokens (root).
		api.GET("/access-token-list", accessTokenHandler.List())
		api.POST("/access-token", accessTokenHandler.Create())
		api.POST("/access-token/:token", accessTokenHandler.Update())
		api.DELETE("/access-token/:token", accessTokenHandler.Delete(s.RateLimiters))
		api.POST("/reset-root-token", accessTokenHandler.ResetRootToken())
		api.POST("/reset-root-password", accessTokenHandler.ResetRootPassword())

		// Accounts.
		api.POST("/accounts", accountsHandler.Create())
		api.GET("/accounts", accountsHandler.List())
		api.GET("/accounts/:id", accountsHandler.Get())
		api.GET("/accounts/:id/state", accountsHandler.State())
		api.DELETE("/accounts/:id", accountsHandler.Delete())

		// Messages.
		api.GET("/messages", messagesHandler.ListMailboxMessages())
		api.GET("/messages/thread", messagesHandler.ListThreadMessages())
		api.POST("/messages/delete", messagesHandler.DeleteMessages())
		api.POST("/messages/tags", messagesHandler.UpdateTags())
		api.GET("/messages/stats", messagesHandler.Stats())

		// OAuth2 authorization bootstrap.
		api.GET("/oauth2/authorize-url", publicHandler.OAuth2Authorize())
	}
}
