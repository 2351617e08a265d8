package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/therolffr/bichon/api/middleware"
	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/utils"
)

type AccessTokenHandler struct {
	tokens   interfaces.AccessTokenRepository
	accounts interfaces.AccountRepository
	settings interfaces.SystemSettingRepository
}

func NewAccessTokenHandler(
	tokens interfaces.AccessTokenRepository,
	accounts interfaces.AccountRepository,
	settings interfaces.SystemSettingRepository,
) *AccessTokenHandler {
	return &AccessTokenHandler{tokens: tokens, accounts: accounts, settings: settings}
}

type AccessTokenCreateRequest struct {
	Accounts    []uint64              `json:"accounts"`
	Description string                `json:"description,omitempty"`
	ACL         *models.AccessControl `json:"acl,omitempty"`
}

type AccessTokenUpdateRequest struct {
	Accounts    []uint64              `json:"accounts,omitempty"`
	Description *string               `json:"description,omitempty"`
	ACL         *models.AccessControl `json:"acl,omitempty"`
}

// resolveAccounts validates that every requested account exists and
// returns the ordered account set for the token.
func (h *AccessTokenHandler) resolveAccounts(ctx context.Context, ids []uint64) (models.AccountInfoList, error) {
	if len(ids) == 0 {
		return nil, bichon_errors.New(bichon_errors.InvalidParameter,
			"account list cannot be empty, please provide at least one valid account ID")
	}

	infos := make(models.AccountInfoList, 0, len(ids))
	for _, id := range ids {
		account, err := h.accounts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, bichon_errors.Newf(bichon_errors.InvalidParameter,
				"account ID %d was not found, please provide valid account IDs", id)
		}
		infos = append(infos, models.AccountInfo{ID: account.ID, Email: account.Email})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func (h *AccessTokenHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		tokens, err := h.tokens.GetAll(c.Request.Context())
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, tokens)
	}
}

func (h *AccessTokenHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		var request AccessTokenCreateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			middleware.AbortWithError(c, bichon_errors.Wrap(bichon_errors.InvalidParameter, "malformed request body", err))
			return
		}
		if request.ACL != nil {
			if err := request.ACL.Validate(); err != nil {
				middleware.AbortWithError(c, err)
				return
			}
		}

		accounts, err := h.resolveAccounts(c.Request.Context(), request.Accounts)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		token := &models.AccessToken{
			Token:       utils.GenerateSecureToken(),
			Accounts:    accounts,
			Description: request.Description,
		}
		if request.ACL != nil {
			token.ACL = &models.AccessControlColumn{AccessControl: *request.ACL}
		}
		if err := h.tokens.Create(c.Request.Context(), token); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		// The plaintext token is returned exactly once, at creation.
		c.JSON(http.StatusOK, gin.H{"token": token.Token})
	}
}

func (h *AccessTokenHandler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		var request AccessTokenUpdateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			middleware.AbortWithError(c, bichon_errors.Wrap(bichon_errors.InvalidParameter, "malformed request body", err))
			return
		}
		if request.Description == nil && request.Accounts == nil && request.ACL == nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter,
				"no changes detected, please modify at least one field to perform an update"))
			return
		}
		if request.ACL != nil {
			if err := request.ACL.Validate(); err != nil {
				middleware.AbortWithError(c, err)
				return
			}
		}

		var accounts models.AccountInfoList
		if request.Accounts != nil {
			resolved, err := h.resolveAccounts(c.Request.Context(), request.Accounts)
			if err != nil {
				middleware.AbortWithError(c, err)
				return
			}
			accounts = resolved
		}

		updated, err := h.tokens.Update(c.Request.Context(), c.Param("token"), func(t *models.AccessToken) {
			if request.Description != nil {
				t.Description = *request.Description
			}
			if request.Accounts != nil {
				t.Accounts = accounts
			}
			if request.ACL != nil {
				t.ACL = &models.AccessControlColumn{AccessControl: *request.ACL}
			}
			t.UpdatedAt = utils.NowMillis()
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func (h *AccessTokenHandler) Delete(limiters *middleware.RateLimiterManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		token := c.Param("token")
		if err := h.tokens.Delete(c.Request.Context(), token); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		limiters.Forget(token)
		c.Status(http.StatusNoContent)
	}
}

func (h *AccessTokenHandler) ResetRootToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		newToken := utils.GenerateSecureToken()
		if err := h.settings.Set(c.Request.Context(), models.SettingRootToken, newToken); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": newToken})
	}
}

type ResetRootPasswordRequest struct {
	Password string `json:"password"`
}

func (h *AccessTokenHandler) ResetRootPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		var request ResetRootPasswordRequest
		if err := c.ShouldBindJSON(&request); err != nil || request.Password == "" {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter, "password is required"))
			return
		}
		if err := h.settings.Set(c.Request.Context(), models.SettingRootPasswordHash,
			utils.HashPassword(request.Password)); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
