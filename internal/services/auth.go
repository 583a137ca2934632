package services

import (
	"context"
	"errors"
	"strings"

	"taskmaker/backend/internal/auth"
	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const placeholderDomain = "placeholder.local"

var ErrInvalidCredentials = apperrors.Auth("invalid_credentials", "invalid credentials")

type RegisterInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	FullName *string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	EnsureProfile(ctx context.Context, claims *auth.Claims) (*models.User, error)
}

type AuthServiceImpl struct {
	store      *repositories.Store
	issuer     *auth.Issuer
	bcryptCost int
	validate   *validator.Validate
	log        logrus.FieldLogger
}

func NewAuthService(store *repositories.Store, issuer *auth.Issuer, bcryptCost int, log logrus.FieldLogger) *AuthServiceImpl {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{
		store:      store,
		issuer:     issuer,
		bcryptCost: bcryptCost,
		validate:   validator.New(),
		log:        log,
	}
}

func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, input RegisterInput) (string, error) {
	input.Email = models.NormalizeEmail(input.Email)
	if err := s.validate.Struct(input); err != nil {
		return "", apperrors.FromValidation(err)
	}
	email := input.Email

	hash, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return "", apperrors.Internal(err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     trimOptional(input.FullName),
		Role:         models.RoleUser,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return "", storageError(err, "", "email already in use")
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return s.issue(user)
}

// Login never reveals whether the email exists.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.Users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if !user.HasPassword() || !VerifyPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.issue(user)
}

// EnsureProfile returns the stored user for a verified token, creating it on
// first sight and syncing a changed email.
func (s *AuthServiceImpl) EnsureProfile(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users.FindByID(ctx, id)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return s.provision(ctx, claims)
	case err != nil:
		return nil, apperrors.Internal(err)
	}

	email := models.NormalizeEmail(claims.Email)
	if email != "" && email != user.Email {
		if err := s.store.Users.UpdateEmail(ctx, user.ID, email); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to sync profile email")
			return user, nil
		}
		user.Email = email
	}
	return user, nil
}

func (s *AuthServiceImpl) provision(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	id, _ := claims.UserID()
	email := models.NormalizeEmail(claims.Email)
	if email == "" {
		email = id.String() + "@" + placeholderDomain
	}

	user := &models.User{ID: id, Email: email, Role: models.RoleUser}
	err := s.store.Users.Create(ctx, user)
	if errors.Is(err, repositories.ErrDuplicate) {
		// A concurrent request created it first.
		existing, findErr := s.store.Users.FindByID(ctx, id)
		if findErr == nil {
			return existing, nil
		}
		return nil, apperrors.Conflict("email already in use")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.log.WithField("user_id", id).Info("profile provisioned from token")
	return user, nil
}

func (s *AuthServiceImpl) issue(user *models.User) (string, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
