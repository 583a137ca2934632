package repositories

import (
	"context"
	"time"

	"taskmaker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type RequestRepository interface {
	Create(ctx context.Context, req *models.TaskRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TaskRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TaskRequest, error)
	ListPending(ctx context.Context) ([]models.TaskRequest, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.TaskRequest, error)
	HasPending(ctx context.Context, taskID, requesterID uuid.UUID) (bool, error)
	Transition(ctx context.Context, id uuid.UUID, to models.RequestStatus, decidedBy uuid.UUID, at time.Time) (bool, error)
	DenyPendingForTask(ctx context.Context, taskID, exceptID, decidedBy uuid.UUID, at time.Time) (int64, error)
	DeleteByTask(ctx context.Context, taskID uuid.UUID) error
}

type GormRequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &GormRequestRepository{db: db}
}

func (r *GormRequestRepository) Create(ctx context.Context, req *models.TaskRequest) error {
	return translate(r.db.WithContext(ctx).Omit("Task", "Requester").Create(req).Error)
}

func (r *GormRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TaskRequest, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *GormRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TaskRequest, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormRequestRepository) find(db *gorm.DB, id uuid.UUID) (*models.TaskRequest, error) {
	var req models.TaskRequest
	if err := db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *GormRequestRepository) ListPending(ctx context.Context) ([]models.TaskRequest, error) {
	requests := []models.TaskRequest{}
	err := r.db.WithContext(ctx).
		Preload("Task").
		Preload("Requester").
		Where("status = ?", models.RequestStatusPending).
		Order("created_at ASC").Order("id").
		Find(&requests).Error
	if err != nil {
		return nil, translate(err)
	}
	return requests, nil
}

func (r *GormRequestRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.TaskRequest, error) {
	requests := []models.TaskRequest{}
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Order("id").Find(&requests).Error
	if err != nil {
		return nil, translate(err)
	}
	return requests, nil
}

func (r *GormRequestRepository) HasPending(ctx context.Context, taskID, requesterID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskRequest{}).
		Where("task_id = ? AND requester_id = ? AND status = ?", taskID, requesterID, models.RequestStatusPending).
		Count(&count).Error
	return count > 0, translate(err)
}

// Transition moves a PENDING request to a terminal status. It reports false
// when the request was no longer PENDING, so concurrent deciders cannot both
// win.
func (r *GormRequestRepository) Transition(ctx context.Context, id uuid.UUID, to models.RequestStatus, decidedBy uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.TaskRequest{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":        to,
			"decided_by_id": decidedBy,
			"decided_at":    at,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GormRequestRepository) DenyPendingForTask(ctx context.Context, taskID, exceptID, decidedBy uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.TaskRequest{}).
		Where("task_id = ? AND status = ? AND id <> ?", taskID, models.RequestStatusPending, exceptID).
		Updates(map[string]interface{}{
			"status":        models.RequestStatusDenied,
			"decided_by_id": decidedBy,
			"decided_at":    at,
		})
	return result.RowsAffected, translate(result.Error)
}

func (r *GormRequestRepository) DeleteByTask(ctx context.Context, taskID uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.TaskRequest{}).Error)
}
