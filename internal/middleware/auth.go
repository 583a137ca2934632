package middleware

import (
	"context"

	"taskmaker/backend/internal/auth"
	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ClaimsKey  = "auth_claims"
	SessionKey = "auth_session"
)

// ProfileEnsurer loads or provisions the user behind verified claims.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, claims *auth.Claims) (*models.User, error)
}

// Authenticate verifies the bearer token and stores its claims. Every
// failure is a 401 carrying the specific reason.
func Authenticate(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// EnsureProfile resolves the stored user for the verified claims and
// attaches the session to both the gin and the request context. It must run
// after Authenticate.
func EnsureProfile(profiles ProfileEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get(ClaimsKey)
		claims, _ := value.(*auth.Claims)
		if !ok || claims == nil {
			apperrors.Respond(c, auth.ErrMissingCredential)
			return
		}

		user, err := profiles.EnsureProfile(c.Request.Context(), claims)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		session := &auth.Session{
			UserID:  user.ID,
			Email:   user.Email,
			Role:    user.Role,
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}

		c.Set(SessionKey, session)
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// RequireAdmin rejects sessions without the ADMIN role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			apperrors.Respond(c, auth.ErrMissingCredential)
			return
		}
		if !session.IsAdmin() {
			apperrors.Respond(c, apperrors.Forbidden("admin role required"))
			return
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) (*auth.Session, bool) {
	if value, ok := c.Get(SessionKey); ok {
		if session, ok := value.(*auth.Session); ok && session != nil {
			return session, true
		}
	}
	return auth.SessionFromContext(c.Request.Context())
}
