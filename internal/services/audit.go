package services

import (
	"context"

	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

type AuditService interface {
	List(ctx context.Context, actor policy.Actor, limit int) ([]models.AuditLog, error)
}

type AuditServiceImpl struct {
	store *repositories.Store
}

func NewAuditService(store *repositories.Store) *AuditServiceImpl {
	return &AuditServiceImpl{store: store}
}

// List returns the newest entries first. Out of range limits fall back to
// the default or are capped.
func (s *AuditServiceImpl) List(ctx context.Context, actor policy.Actor, limit int) ([]models.AuditLog, error) {
	if err := policy.Require(actor, policy.ActionViewAudit, nil); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	entries, err := s.store.Audit.List(ctx, limit)
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return entries, nil
}

// recordAudit writes an entry through store, which is normally bound to the
// transaction performing the audited change.
func recordAudit(ctx context.Context, store *repositories.Store, actorID uuid.UUID, action, resourceType string, resourceID uuid.UUID, decision, reason string) error {
	return store.Audit.Create(ctx, &models.AuditLog{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Decision:     decision,
		Reason:       reason,
	})
}
