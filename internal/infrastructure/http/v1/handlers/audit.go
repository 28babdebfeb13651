package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"minimart/internal/domain/audit"
)

// AuditHandler exposes the audit trail to the back office.
type AuditHandler struct {
	*BaseHandler
	service *audit.Service
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, service *audit.Service) *AuditHandler {
	return &AuditHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /audit
func (h *AuditHandler) List(c *gin.Context) {
	filter := audit.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if v := c.Query("action"); v != "" {
		action := audit.Action(v)
		filter.Action = &action
	}
	if v := c.Query("entityType"); v != "" {
		filter.EntityType = &v
	}
	if v := c.Query("actorId"); v != "" {
		filter.ActorID = &v
	}
	if v := c.Query("from"); v != "" {
		if from, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = &from
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = &to
		}
	}

	entries, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": entries})
}
