package repositories

import (
	"context"

	"taskmaker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.TaskMessage) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.TaskMessage, error)
	DeleteByTask(ctx context.Context, taskID uuid.UUID) error
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *models.TaskMessage) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(msg).Error; err != nil {
		return translate(err)
	}
	var author models.User
	if err := r.db.WithContext(ctx).Where("id = ?", msg.AuthorID).First(&author).Error; err == nil {
		msg.Author = &author
	}
	return nil
}

func (r *GormMessageRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.TaskMessage, error) {
	messages := []models.TaskMessage{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC").Order("id").
		Find(&messages).Error
	if err != nil {
		return nil, translate(err)
	}
	return messages, nil
}

func (r *GormMessageRepository) DeleteByTask(ctx context.Context, taskID uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.TaskMessage{}).Error)
}
