package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "taskmaker/backend/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RecoveryWithLog turns a panic into a 500 with the standard error body and
// logs the stack.
func RecoveryWithLog(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(logrus.Fields{
					"panic":      fmt.Sprint(rec),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"request_id": c.GetString(RequestIDKey),
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.Response{
					Error:   apperrors.CodeInternal,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}
