package handlers

import (
	"net/http"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type profileResponse struct {
	ID       uuid.UUID   `json:"id"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	FullName *string     `json:"fullName"`
}

type changeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=ADMIN USER"`
}

func (h *UserHandler) GetMe(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	user, err := h.userService.Me(c.Request.Context(), session.UserID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		FullName: user.FullName,
	})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	users, err := h.userService.ListUsers(c.Request.Context(), session.Actor())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) ChangeRole(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req changeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.ChangeRole(c.Request.Context(), session.Actor(), id, req.Role)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
