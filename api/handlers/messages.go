package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/therolffr/bichon/api/middleware"
	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/indexer"
)

const maxPageSize = 500

type MessagesHandler struct {
	envelopeIndex *indexer.EnvelopeIndex
	emlIndex      *indexer.EmlIndex
}

func NewMessagesHandler(envelopeIndex *indexer.EnvelopeIndex, emlIndex *indexer.EmlIndex) *MessagesHandler {
	return &MessagesHandler{envelopeIndex: envelopeIndex, emlIndex: emlIndex}
}

func parseUint(c *gin.Context, name string) (uint64, error) {
	value, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0, bichon_errors.Newf(bichon_errors.InvalidParameter, "invalid %s parameter", name)
	}
	return value, nil
}

func parsePagination(c *gin.Context) (page, pageSize uint64, err error) {
	page, err = parseUint(c, "page")
	if err != nil {
		return 0, 0, err
	}
	pageSize, err = parseUint(c, "page_size")
	if err != nil {
		return 0, 0, err
	}
	if page == 0 || pageSize == 0 {
		return 0, 0, bichon_errors.New(bichon_errors.InvalidParameter,
			"both page and page_size must be greater than 0")
	}
	if pageSize > maxPageSize {
		return 0, 0, bichon_errors.Newf(bichon_errors.InvalidParameter,
			"the page_size exceeds the maximum allowed limit of %d", maxPageSize)
	}
	return page, pageSize, nil
}

func (h *MessagesHandler) ListMailboxMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := parseUint(c, "account_id")
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := middleware.GetClientContext(c).RequireAccountAccess(accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		mailboxID, err := parseUint(c, "mailbox_id")
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		page, pageSize, err := parsePagination(c)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		result, err := h.envelopeIndex.ListMailboxEnvelopes(c.Request.Context(), accountID, mailboxID, page, pageSize, true)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *MessagesHandler) ListThreadMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := parseUint(c, "account_id")
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := middleware.GetClientContext(c).RequireAccountAccess(accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		threadID, err := parseUint(c, "thread_id")
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		page, pageSize, err := parsePagination(c)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		result, err := h.envelopeIndex.ListThreadEnvelopes(c.Request.Context(), accountID, threadID, page, pageSize, true)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// DeleteMessages bulk-deletes documents from both indexes, keyed
// account_id -> envelope ids.
func (h *MessagesHandler) DeleteMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request map[uint64][]uint64
		if err := c.ShouldBindJSON(&request); err != nil {
			middleware.AbortWithError(c, bichon_errors.Wrap(bichon_errors.InvalidParameter, "malformed request body", err))
			return
		}

		context := middleware.GetClientContext(c)
		for accountID := range request {
			if err := context.RequireAccountAccess(accountID); err != nil {
				middleware.AbortWithError(c, err)
				return
			}
		}

		ctx := c.Request.Context()
		if err := h.emlIndex.DeleteEmailMultiAccount(ctx, request); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := h.envelopeIndex.DeleteEnvelopesMultiAccount(ctx, request); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type UpdateTagsRequest struct {
	Updates map[uint64][]uint64 `json:"updates"`
	Tags    []string            `json:"tags"`
}

func (h *MessagesHandler) UpdateTags() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request UpdateTagsRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			middleware.AbortWithError(c, bichon_errors.Wrap(bichon_errors.InvalidParameter, "malformed request body", err))
			return
		}

		context := middleware.GetClientContext(c)
		for accountID := range request.Updates {
			if err := context.RequireAccountAccess(accountID); err != nil {
				middleware.AbortWithError(c, err)
				return
			}
		}

		if err := h.envelopeIndex.UpdateTags(c.Request.Context(), request.Updates, request.Tags); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Stats exposes the index aggregations: total size, a daily activity
// histogram, top senders, and attachment counts.
func (h *MessagesHandler) Stats() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := parseUint(c, "account_id")
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if err := middleware.GetClientContext(c).RequireAccountAccess(accountID); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		query := indexer.AggregateQuery{AccountID: accountID}

		totalSize, err := h.envelopeIndex.SumSize(ctx, query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		const dayMs = int64(24 * 60 * 60 * 1000)
		nowMs := nowMillis()
		histogram, err := h.envelopeIndex.HistogramInternalDate(ctx, query, dayMs, nowMs-7*dayMs, nowMs)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		topSenders, err := h.envelopeIndex.TermsFrom(ctx, query, 10)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		attachments, err := h.envelopeIndex.TermsHasAttachment(ctx, query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"totalSize":      totalSize,
			"recentActivity": histogram,
			"topSenders":     topSenders,
			"attachments":    attachments,
		})
	}
}
