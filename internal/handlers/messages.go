package handlers

import (
	"net/http"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService services.MessageService
}

func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type postMessageRequest struct {
	Body string `json:"body"`
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	messages, err := h.messageService.List(c.Request.Context(), session.Actor(), taskID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) PostMessage(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req postMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messageService.Post(c.Request.Context(), session.Actor(), taskID, req.Body)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
