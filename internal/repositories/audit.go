package repositories

import (
	"context"

	"taskmaker/backend/internal/models"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, limit int) ([]models.AuditLog, error)
}

type GormAuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *GormAuditRepository) List(ctx context.Context, limit int) ([]models.AuditLog, error) {
	entries := []models.AuditLog{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
