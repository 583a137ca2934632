// Package auth issues and verifies bearer tokens and carries the verified
// caller through the request context.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// Each failure carries its own reason so clients can tell an absent
// credential from a rejected one.
var (
	ErrMissingCredential = apperrors.Auth("missing_credential", "missing credential")
	ErrMissingBearer     = apperrors.Auth("missing_bearer", "missing bearer prefix")
	ErrMalformed         = apperrors.Auth("malformed", "malformed token")
	ErrInvalidSignature  = apperrors.Auth("invalid_signature", "invalid signature")
	ErrExpired           = apperrors.Auth("expired", "token expired")
	ErrInvalidClaims     = apperrors.Auth("invalid_claims", "invalid token claims")
	ErrMissingSubject    = apperrors.Auth("missing_subject", "missing subject claim")
	ErrRevoked           = apperrors.Auth("revoked", "token revoked")
)

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.FromString(c.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrMissingSubject
	}
	return id, nil
}

// ExtractBearer returns the token from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}
	if strings.EqualFold(header, "Bearer") {
		return "", ErrMalformed
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformed
	}
	return token, nil
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for user, valid for the issuer's TTL.
func (i *Issuer) Issue(user *models.User) (string, error) {
	tokenID, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    i.issuer,
			ID:        tokenID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: user.Email,
		Role:  string(user.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

type VerifierOption func(*HMACVerifier)

func WithIssuer(issuer string) VerifierOption {
	return func(v *HMACVerifier) { v.issuer = issuer }
}

func WithAudience(audience string) VerifierOption {
	return func(v *HMACVerifier) { v.audience = audience }
}

func WithLeeway(leeway time.Duration) VerifierOption {
	return func(v *HMACVerifier) { v.leeway = leeway }
}

func WithClock(now func() time.Time) VerifierOption {
	return func(v *HMACVerifier) { v.now = now }
}

func NewHMACVerifier(secret string, opts ...VerifierOption) *HMACVerifier {
	v := &HMACVerifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *HMACVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingCredential
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	}
	return ErrInvalidClaims
}

// ChainVerifier accepts a token if any verifier does. When all reject it,
// the most specific failure wins: a token whose signature checked out but
// was expired reports expiry rather than the signature mismatch from the
// other keys.
type ChainVerifier []Verifier

func (c ChainVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	var best error
	for _, v := range c {
		claims, err := v.Verify(ctx, token)
		if err == nil {
			return claims, nil
		}
		if best == nil || errors.Is(best, ErrInvalidSignature) {
			best = err
		}
	}
	if best == nil {
		best = ErrInvalidSignature
	}
	return nil, best
}
