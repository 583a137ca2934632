package repositories

import (
	"context"

	"taskmaker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error
	AssignIfAvailable(ctx context.Context, taskID, userID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskFilter narrows List. Zero value lists every task, newest first.
type TaskFilter struct {
	// ParticipantID keeps tasks the user created or is assigned to.
	ParticipantID  *uuid.UUID
	Status         *models.TaskStatus
	OnlyUnassigned bool
	SortBy         string
	Ascending      bool
	WithUsers      bool
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"deadline":  "deadline",
	"title":     "title",
}

func ValidSortField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

type GormTaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translate(r.db.WithContext(ctx).Omit("CreatedBy", "AssignedUser").Create(task).Error)
}

func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *GormTaskRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormTaskRepository) find(db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.ParticipantID != nil {
		query = query.Where("created_by_id = ? OR assigned_user_id = ?", *filter.ParticipantID, *filter.ParticipantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OnlyUnassigned {
		query = query.Where("assigned_user_id IS NULL")
	}
	if filter.WithUsers {
		query = query.Preload("CreatedBy").Preload("AssignedUser")
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := " DESC"
	if filter.Ascending {
		direction = " ASC"
	}
	query = query.Order(column + direction).Order("id")

	tasks := []models.Task{}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, translate(err)
	}
	return tasks, nil
}

func (r *GormTaskRepository) Update(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignIfAvailable sets the assignee only when the task is unassigned or
// already assigned to userID. It reports false when another user holds it.
func (r *GormTaskRepository) AssignIfAvailable(ctx context.Context, taskID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND (assigned_user_id IS NULL OR assigned_user_id = ?)", taskID, userID).
		Update("assigned_user_id", userID)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GormTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
