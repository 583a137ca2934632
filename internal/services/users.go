package services

import (
	"context"
	"fmt"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

type UserService interface {
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error)
	ChangeRole(ctx context.Context, actor policy.Actor, userID uuid.UUID, role string) (*models.User, error)
}

type UserServiceImpl struct {
	store *repositories.Store
	log   logrus.FieldLogger
}

func NewUserService(store *repositories.Store, log logrus.FieldLogger) *UserServiceImpl {
	return &UserServiceImpl{store: store, log: log}
}

func (s *UserServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, storageError(err, "user not found", "")
	}
	return user, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	if err := policy.Require(actor, policy.ActionManageUsers, nil); err != nil {
		return nil, err
	}
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return users, nil
}

// ChangeRole sets the role of any user. The last remaining admin cannot be
// demoted.
func (s *UserServiceImpl) ChangeRole(ctx context.Context, actor policy.Actor, userID uuid.UUID, role string) (*models.User, error) {
	if err := policy.Require(actor, policy.ActionManageUsers, nil); err != nil {
		return nil, err
	}
	newRole, ok := models.ParseRole(role)
	if !ok {
		return nil, apperrors.Validation("role must be ADMIN or USER")
	}

	var updated *models.User
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		user, err := tx.Users.FindByID(ctx, userID)
		if err != nil {
			return storageError(err, "user not found", "")
		}
		if user.Role == newRole {
			updated = user
			return nil
		}

		if user.Role == models.RoleAdmin {
			admins, err := tx.Users.CountByRole(ctx, models.RoleAdmin)
			if err != nil {
				return apperrors.Internal(err)
			}
			if admins <= 1 {
				return apperrors.Conflict("cannot demote the last admin")
			}
		}

		if err := tx.Users.UpdateRole(ctx, user.ID, newRole); err != nil {
			return storageError(err, "user not found", "")
		}
		reason := fmt.Sprintf("%s -> %s", user.Role, newRole)
		if err := recordAudit(ctx, tx, actor.ID, models.AuditActionChangeRole, "user", user.ID, string(newRole), reason); err != nil {
			return apperrors.Internal(err)
		}

		user.Role = newRole
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"actor_id": actor.ID,
		"user_id":  userID,
		"role":     newRole,
	}).Info("user role changed")
	return updated, nil
}
