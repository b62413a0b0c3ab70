package handler

import (
	"context"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/interfaces/http/dto"
	"github.com/astracore/gl-service/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// OutboxReader is the read side of the outbox used by the operational API
type OutboxReader interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
}

// OutboxHandler exposes posted-event delivery state
type OutboxHandler struct {
	BaseHandler
	outbox OutboxReader
}

// NewOutboxHandler creates an OutboxHandler
func NewOutboxHandler(outbox OutboxReader) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// Stats handles GET /outbox/stats
func (h *OutboxHandler) Stats(c *gin.Context) {
	counts, err := h.outbox.CountByStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	stats := map[string]int64{
		string(shared.OutboxStatusPending):    0,
		string(shared.OutboxStatusProcessing): 0,
		string(shared.OutboxStatusSent):       0,
		string(shared.OutboxStatusFailed):     0,
		string(shared.OutboxStatusDead):       0,
	}
	for status, n := range counts {
		stats[string(status)] = n
	}
	h.Success(c, stats)
}

// DeadEntries handles GET /outbox/dead?page=&page_size=
func (h *OutboxHandler) DeadEntries(c *gin.Context) {
	var query dto.OutboxPageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = 20
	}

	entries, _, err := h.outbox.FindDead(c.Request.Context(), query.Page, query.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]dto.OutboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.NewOutboxEntryResponse(e))
	}
	h.SuccessWithMeta(c, items, len(items), query.PageSize, (query.Page-1)*query.PageSize)
}
