package services

import (
	"context"
	"strings"
	"unicode/utf8"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const MaxMessageLength = 4000

type MessageService interface {
	List(ctx context.Context, actor policy.Actor, taskID uuid.UUID) ([]models.TaskMessage, error)
	Post(ctx context.Context, actor policy.Actor, taskID uuid.UUID, body string) (*models.TaskMessage, error)
}

type MessageServiceImpl struct {
	store *repositories.Store
}

func NewMessageService(store *repositories.Store) *MessageServiceImpl {
	return &MessageServiceImpl{store: store}
}

func (s *MessageServiceImpl) List(ctx context.Context, actor policy.Actor, taskID uuid.UUID) ([]models.TaskMessage, error) {
	if err := s.authorize(ctx, actor, taskID); err != nil {
		return nil, err
	}
	messages, err := s.store.Messages.ListByTask(ctx, taskID)
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return messages, nil
}

func (s *MessageServiceImpl) Post(ctx context.Context, actor policy.Actor, taskID uuid.UUID, body string) (*models.TaskMessage, error) {
	if err := s.authorize(ctx, actor, taskID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.Validation("message cannot be empty")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, apperrors.Validation("message is too long")
	}

	msg := &models.TaskMessage{TaskID: taskID, AuthorID: actor.ID, Body: body}
	if err := s.store.Messages.Create(ctx, msg); err != nil {
		return nil, storageError(err, "task not found", "")
	}
	return msg, nil
}

func (s *MessageServiceImpl) authorize(ctx context.Context, actor policy.Actor, taskID uuid.UUID) error {
	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return storageError(err, "task not found", "")
	}
	return policy.Require(actor, policy.ActionComment, task)
}
