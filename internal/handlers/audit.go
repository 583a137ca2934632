package handlers

import (
	"net/http"
	"strconv"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService services.AuditService
}

func NewAuditHandler(auditService services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) ListAudit(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	limit := services.DefaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			apperrors.Respond(c, apperrors.Validation("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.auditService.List(c.Request.Context(), session.Actor(), limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
