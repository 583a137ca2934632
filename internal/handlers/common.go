package handlers

import (
	"taskmaker/backend/internal/auth"
	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

func currentSession(c *gin.Context) (*auth.Session, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		apperrors.Respond(c, auth.ErrMissingCredential)
		return nil, false
	}
	return session, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(name))
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		apperrors.Respond(c, apperrors.FromValidation(err))
		return false
	}
	return true
}
