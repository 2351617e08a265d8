package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therolffr/bichon/api/middleware"
	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/enum"
	"github.com/therolffr/bichon/internal/indexer"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/utils"
	"github.com/therolffr/bichon/services/autoconfig"
	syncsvc "github.com/therolffr/bichon/services/sync"
)

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

type AccountsHandler struct {
	accounts      interfaces.AccountRepository
	states        interfaces.AccountStateRepository
	mailboxes     interfaces.MailboxRepository
	envelopeIndex *indexer.EnvelopeIndex
	emlIndex      *indexer.EmlIndex
	autoconfig    *autoconfig.AutoconfigService
	controller    *syncsvc.SyncController
	cipher        *utils.Cipher
}

func NewAccountsHandler(
	accounts interfaces.AccountRepository,
	states interfaces.AccountStateRepository,
	mailboxes interfaces.MailboxRepository,
	envelopeIndex *indexer.EnvelopeIndex,
	emlIndex *indexer.EmlIndex,
	autoconfigService *autoconfig.AutoconfigService,
	controller *syncsvc.SyncController,
	cipher *utils.Cipher,
) *AccountsHandler {
	return &AccountsHandler{
		accounts:      accounts,
		states:        states,
		mailboxes:     mailboxes,
		envelopeIndex: envelopeIndex,
		emlIndex:      emlIndex,
		autoconfig:    autoconfigService,
		controller:    controller,
		cipher:        cipher,
	}
}

type AccountCreateRequest struct {
	Email           string             `json:"email"`
	Name            string             `json:"name,omitempty"`
	Imap            *models.ImapConfig `json:"imap,omitempty"`
	Password        string             `json:"password,omitempty"`
	SyncIntervalMin int64              `json:"syncIntervalMin"`
	DateSinceDays   *int               `json:"dateSinceDays,omitempty"`
}

// Create registers a new account. When no IMAP config is supplied, the
// autoconfig resolver seeds it from the address's domain. Plaintext
// passwords are encrypted before the account is persisted.
func (h *AccountsHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		var request AccountCreateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			middleware.AbortWithError(c, bichon_errors.Wrap(bichon_errors.InvalidParameter, "malformed request body", err))
			return
		}
		if request.SyncIntervalMin < 1 {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter,
				"syncIntervalMin must be at least 1"))
			return
		}

		ctx := c.Request.Context()
		imapConfig := request.Imap
		if imapConfig == nil {
			resolved, err := h.autoconfig.Resolve(ctx, request.Email)
			if err != nil {
				middleware.AbortWithError(c, err)
				return
			}
			if resolved == nil {
				middleware.AbortWithError(c, bichon_errors.Newf(bichon_errors.AutoconfigFetchFailed,
					"no IMAP configuration discovered for %s, please provide one", request.Email))
				return
			}
			imapConfig = &models.ImapConfig{
				Host:       resolved.Imap.Host,
				Port:       resolved.Imap.Port,
				Encryption: resolved.Imap.Encryption,
				AuthType:   enum.AuthTypePassword,
			}
			if resolved.OAuth2 != nil {
				imapConfig.AuthType = enum.AuthTypeOAuth2
			}
		}

		if imapConfig.AuthType == enum.AuthTypePassword {
			if request.Password == "" {
				middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter,
					"password must be set when auth type is password"))
				return
			}
			encrypted, err := h.cipher.Encrypt(request.Password)
			if err != nil {
				middleware.AbortWithError(c, bichon_errors.Wrap(bichon_errors.InternalError, "password encryption failed", err))
				return
			}
			imapConfig.Password = encrypted
		}
		if err := imapConfig.Validate(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		account := &models.Account{
			Email:           request.Email,
			Name:            request.Name,
			Enabled:         true,
			Imap:            imapConfig,
			SyncIntervalMin: &request.SyncIntervalMin,
			DateSinceDays:   request.DateSinceDays,
		}
		if err := h.accounts.Create(ctx, account); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		h.controller.TriggerStart(account.ID, account.Email)
		c.JSON(http.StatusOK, account)
	}
}

func (h *AccountsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		context := middleware.GetClientContext(c)
		if err := context.RequireAuthorized(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		accounts, err := h.accounts.GetAll(c.Request.Context())
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		// Non-root tokens see only their own account set.
		visible := accounts[:0:0]
		for _, account := range accounts {
			if context.RequireAccountAccess(account.ID) == nil {
				visible = append(visible, account)
			}
		}
		c.JSON(http.StatusOK, visible)
	}
}

func (h *AccountsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter, "invalid account id"))
			return
		}
		if err := middleware.GetClientContext(c).RequireAccountAccess(accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		account, err := h.accounts.GetByID(c.Request.Context(), accountID)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if account == nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.ResourceNotFound, "account not found"))
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

// State exposes the account's running state: sync progress, timestamps,
// and the error ring.
func (h *AccountsHandler) State() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter, "invalid account id"))
			return
		}
		if err := middleware.GetClientContext(c).RequireAccountAccess(accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		state, err := h.states.Get(c.Request.Context(), accountID)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if state == nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.ResourceNotFound,
				"account has not synced yet"))
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// Delete removes an account and everything derived from it: the sync
// task, running state, mailbox records, and indexed documents.
func (h *AccountsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware.GetClientContext(c).RequireRoot(); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			middleware.AbortWithError(c, bichon_errors.New(bichon_errors.InvalidParameter, "invalid account id"))
			return
		}

		h.controller.StopAccount(accountID)

		ctx := c.Request.Context()
		mailboxes, err := h.mailboxes.GetByAccount(ctx, accountID)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		mailboxIDs := make([]uint64, 0, len(mailboxes))
		for _, m := range mailboxes {
			mailboxIDs = append(mailboxIDs, m.ID)
		}

		if err := h.envelopeIndex.DeleteMailboxEnvelopes(ctx, accountID, mailboxIDs); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := h.emlIndex.DeleteMailboxEnvelopes(ctx, accountID, mailboxIDs); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := h.mailboxes.DeleteByAccount(ctx, accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := h.states.Delete(ctx, accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := h.accounts.Delete(ctx, accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
