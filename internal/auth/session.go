package auth

import (
	"context"
	"time"

	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"

	"github.com/gofrs/uuid"
)

// Session is the verified caller of one request. Role comes from the stored
// profile, not the token, so role changes apply to existing tokens.
type Session struct {
	UserID    uuid.UUID   `json:"userId"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenID   string      `json:"-"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (s *Session) Actor() policy.Actor {
	return policy.Actor{ID: s.UserID, Role: s.Role}
}

func (s *Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
