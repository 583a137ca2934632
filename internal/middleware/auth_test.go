package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskmaker/backend/internal/auth"
	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/middleware"
	"taskmaker/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) EnsureProfile(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	args := m.Called(ctx, claims)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func issueToken(t *testing.T, user *models.User, ttl time.Duration) string {
	t.Helper()
	token, err := auth.NewIssuer(testSecret, "taskmaker", ttl).Issue(user)
	require.NoError(t, err)
	return token
}

func newUser(role models.Role) *models.User {
	return &models.User{ID: uuid.Must(uuid.NewV4()), Email: "user@example.com", Role: role}
}

func protectedRouter(profiles middleware.ProfileEnsurer, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := []gin.HandlerFunc{
		middleware.Authenticate(auth.NewHMACVerifier(testSecret, auth.WithIssuer("taskmaker"))),
		middleware.EnsureProfile(profiles),
	}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		session, ok := auth.SessionFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, session)
	})
	router.GET("/protected", handlers...)
	return router
}

func doGet(router http.Handler, authorization string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.Response {
	t.Helper()
	var body apperrors.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthenticate_Rejections(t *testing.T) {
	user := newUser(models.RoleUser)
	profiles := new(mockProfiles)
	router := protectedRouter(profiles)

	tests := []struct {
		name   string
		header string
		reason string
	}{
		{"missing header", "", "missing_credential"},
		{"wrong scheme", "Basic abc", "missing_bearer"},
		{"garbage token", "Bearer not-a-jwt", "malformed"},
		{"expired token", "Bearer " + issueToken(t, user, -time.Minute), "expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(router, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, apperrors.CodeUnauthorized, body.Error)
			assert.Equal(t, tt.reason, body.Reason)
		})
	}

	wrongKey, err := auth.NewIssuer("another-secret", "taskmaker", time.Hour).Issue(user)
	require.NoError(t, err)
	w := doGet(router, "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_signature", decodeError(t, w).Reason)

	profiles.AssertNotCalled(t, "EnsureProfile", mock.Anything, mock.Anything)
}

func TestEnsureProfile_SessionFromStoredUser(t *testing.T) {
	tokenUser := newUser(models.RoleAdmin)
	stored := &models.User{ID: tokenUser.ID, Email: "stored@example.com", Role: models.RoleUser}

	profiles := new(mockProfiles)
	profiles.On("EnsureProfile", mock.Anything, mock.MatchedBy(func(c *auth.Claims) bool {
		return c.Subject == tokenUser.ID.String()
	})).Return(stored, nil)

	w := doGet(protectedRouter(profiles), "Bearer "+issueToken(t, tokenUser, time.Hour))
	require.Equal(t, http.StatusOK, w.Code)

	var session auth.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, tokenUser.ID, session.UserID)
	assert.Equal(t, models.RoleUser, session.Role)
	assert.Equal(t, "stored@example.com", session.Email)
	assert.False(t, session.ExpiresAt.IsZero())
	profiles.AssertExpectations(t)
}

func TestEnsureProfile_Failure(t *testing.T) {
	user := newUser(models.RoleUser)
	profiles := new(mockProfiles)
	profiles.On("EnsureProfile", mock.Anything, mock.Anything).Return(nil, apperrors.Conflict("email already in use"))

	w := doGet(protectedRouter(profiles), "Bearer "+issueToken(t, user, time.Hour))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	user := newUser(models.RoleUser)
	admin := newUser(models.RoleAdmin)

	profiles := new(mockProfiles)
	profiles.On("EnsureProfile", mock.Anything, mock.MatchedBy(func(c *auth.Claims) bool {
		return c.Subject == user.ID.String()
	})).Return(user, nil)
	profiles.On("EnsureProfile", mock.Anything, mock.MatchedBy(func(c *auth.Claims) bool {
		return c.Subject == admin.ID.String()
	})).Return(admin, nil)

	router := protectedRouter(profiles, middleware.RequireAdmin())

	w := doGet(router, "Bearer "+issueToken(t, user, time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.CodeForbidden, decodeError(t, w).Error)

	w = doGet(router, "Bearer "+issueToken(t, admin, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
}
