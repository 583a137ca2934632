package handlers

import (
	"net/http"
	"time"

	"taskmaker/backend/internal/auth"
	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService services.AuthService
	userService services.UserService
	denylist    auth.Denylist
	tokenTTL    time.Duration
}

func NewAuthHandler(authService services.AuthService, userService services.UserService, denylist auth.Denylist, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		denylist:    denylist,
		tokenTTL:    tokenTTL,
	}
}

type registerRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{Token: token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// ErrNotRevocable is returned for tokens without a jti, such as most
// identity-provider tokens. Those expire on their own schedule.
var ErrNotRevocable = apperrors.Validation("token has no id and cannot be revoked")

// Logout revokes the presented token until it would have expired.
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	if session.TokenID == "" {
		apperrors.Respond(c, ErrNotRevocable)
		return
	}

	until := session.ExpiresAt
	if until.IsZero() {
		until = time.Now().Add(h.tokenTTL)
	}
	if err := h.denylist.Revoke(c.Request.Context(), session.TokenID, until); err != nil {
		apperrors.Respond(c, apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	user, err := h.userService.Me(c.Request.Context(), session.UserID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth": session, "profile": user})
}
