package handlers

import (
	"net/http"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService services.RequestService
}

func NewRequestHandler(requestService services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

type decideRequest struct {
	Action string `json:"action" binding:"required,oneof=APPROVE DENY"`
}

func (h *RequestHandler) RequestTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.requestService.RequestTask(c.Request.Context(), session.Actor(), taskID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *RequestHandler) ListPending(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	requests, err := h.requestService.ListPending(c.Request.Context(), session.Actor())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *RequestHandler) Decide(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body decideRequest
	if !bindJSON(c, &body) {
		return
	}

	decided, err := h.requestService.Decide(c.Request.Context(), session.Actor(), id, body.Action)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, decided)
}
