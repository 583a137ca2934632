package auth_test

import (
	"context"
	"testing"
	"time"

	"taskmaker/backend/internal/auth"
	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *models.User {
	return &models.User{ID: uuid.Must(uuid.NewV4()), Email: "alice@example.com", Role: models.RoleUser}
}

func sign(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestIssueAndVerify(t *testing.T) {
	user := testUser()
	issuer := auth.NewIssuer(testSecret, "taskmaker", 7*24*time.Hour)

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := auth.NewHMACVerifier(testSecret, auth.WithIssuer("taskmaker")).Verify(context.Background(), token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "USER", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestVerify_Failures(t *testing.T) {
	user := testUser()
	now := time.Now()

	valid := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	expired := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	}
	noSubject := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	badSubject := jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	noExpiry := jwt.RegisteredClaims{Subject: user.ID.String()}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", auth.ErrMissingCredential},
		{"garbage", "not.a.jwt", auth.ErrMalformed},
		{"wrong key", sign(t, "another-secret", valid), auth.ErrInvalidSignature},
		{"alg none", noneToken, auth.ErrInvalidSignature},
		{"expired", sign(t, testSecret, expired), auth.ErrExpired},
		{"expired with wrong key", sign(t, "another-secret", expired), auth.ErrInvalidSignature},
		{"missing subject", sign(t, testSecret, noSubject), auth.ErrMissingSubject},
		{"non uuid subject", sign(t, testSecret, badSubject), auth.ErrMissingSubject},
		{"missing expiry", sign(t, testSecret, noExpiry), auth.ErrInvalidClaims},
	}

	verifier := auth.NewHMACVerifier(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, apperrors.ErrAuth)
		})
	}
}

func TestVerify_IssuerAudienceAndLeeway(t *testing.T) {
	subject := uuid.Must(uuid.NewV4()).String()
	now := time.Now()

	external := auth.NewHMACVerifier("idp-secret",
		auth.WithIssuer("https://idp.example.com/auth/v1"),
		auth.WithAudience("authenticated"),
		auth.WithLeeway(30*time.Second),
	)

	justExpired := sign(t, "idp-secret", jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "https://idp.example.com/auth/v1",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
	})
	_, err := external.Verify(context.Background(), justExpired)
	assert.NoError(t, err, "within leeway")

	wrongAudience := sign(t, "idp-secret", jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "https://idp.example.com/auth/v1",
		Audience:  jwt.ClaimStrings{"anon"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	_, err = external.Verify(context.Background(), wrongAudience)
	assert.ErrorIs(t, err, auth.ErrInvalidClaims)

	wrongIssuer := sign(t, "idp-secret", jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "https://evil.example.com",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	_, err = external.Verify(context.Background(), wrongIssuer)
	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}

func TestChainVerifier(t *testing.T) {
	user := testUser()
	local := auth.NewHMACVerifier(testSecret)
	external := auth.NewHMACVerifier("idp-secret")
	chain := auth.ChainVerifier{local, external}

	localToken, err := auth.NewIssuer(testSecret, "", time.Hour).Issue(user)
	require.NoError(t, err)
	_, err = chain.Verify(context.Background(), localToken)
	assert.NoError(t, err)

	externalToken, err := auth.NewIssuer("idp-secret", "", time.Hour).Issue(user)
	require.NoError(t, err)
	_, err = chain.Verify(context.Background(), externalToken)
	assert.NoError(t, err)

	expiredExternal := sign(t, "idp-secret", jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	_, err = chain.Verify(context.Background(), expiredExternal)
	assert.ErrorIs(t, err, auth.ErrExpired)

	_, err = chain.Verify(context.Background(), sign(t, "unknown", jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}))
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		err    error
	}{
		{"", "", auth.ErrMissingCredential},
		{"   ", "", auth.ErrMissingCredential},
		{"Token abc", "", auth.ErrMissingBearer},
		{"abc", "", auth.ErrMissingBearer},
		{"Bearer ", "", auth.ErrMalformed},
		{"Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"bearer abc.def.ghi", "abc.def.ghi", nil},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, err := auth.ExtractBearer(tt.header)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)
		})
	}
}
