package services

import (
	"context"
	"strings"
	"time"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

type CreateTaskInput struct {
	Title         string
	Description   *string
	Deadline      *string
	AssigneeEmail *string
}

type TaskListFilter struct {
	Status string
	SortBy string
	Order  string
}

// TaskPatch is a partial update. Fields lists the keys present in the
// request body; a present key with a nil value clears the column.
type TaskPatch struct {
	Fields         []string
	Title          *string
	Description    *string
	Deadline       *string
	Status         *string
	AssignedUserID *string
	AssigneeEmail  *string
}

func (p TaskPatch) Has(field string) bool {
	for _, f := range p.Fields {
		if f == field {
			return true
		}
	}
	return false
}

type TaskService interface {
	Create(ctx context.Context, actor policy.Actor, input CreateTaskInput) (*models.Task, error)
	List(ctx context.Context, actor policy.Actor, filter TaskListFilter) ([]models.Task, error)
	Browse(ctx context.Context) ([]models.Task, error)
	ListAll(ctx context.Context, actor policy.Actor) ([]models.Task, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type TaskServiceImpl struct {
	store *repositories.Store
	log   logrus.FieldLogger
}

func NewTaskService(store *repositories.Store, log logrus.FieldLogger) *TaskServiceImpl {
	return &TaskServiceImpl{store: store, log: log}
}

func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.Validation("invalid deadline")
}

func (s *TaskServiceImpl) Create(ctx context.Context, actor policy.Actor, input CreateTaskInput) (*models.Task, error) {
	if err := policy.Require(actor, policy.ActionCreateTask, nil); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}

	task := &models.Task{
		Title:       title,
		Description: trimOptional(input.Description),
		Status:      models.TaskStatusPending,
		CreatedByID: actor.ID,
	}

	if input.Deadline != nil && strings.TrimSpace(*input.Deadline) != "" {
		deadline, err := ParseDeadline(*input.Deadline)
		if err != nil {
			return nil, err
		}
		task.Deadline = &deadline
	}

	if input.AssigneeEmail != nil && strings.TrimSpace(*input.AssigneeEmail) != "" {
		assignee, err := s.store.Users.FindByEmail(ctx, *input.AssigneeEmail)
		if err != nil {
			return nil, storageError(err, "assignee not found", "")
		}
		task.AssignedUserID = &assignee.ID
	}

	if err := s.store.Tasks.Create(ctx, task); err != nil {
		return nil, storageError(err, "", "")
	}

	s.log.WithFields(logrus.Fields{"task_id": task.ID, "actor_id": actor.ID}).Info("task created")
	return task, nil
}

func (s *TaskServiceImpl) List(ctx context.Context, actor policy.Actor, filter TaskListFilter) ([]models.Task, error) {
	repoFilter := repositories.TaskFilter{SortBy: filter.SortBy}

	if filter.Status != "" {
		status := models.TaskStatus(strings.ToUpper(filter.Status))
		if !status.Valid() {
			return nil, apperrors.Validation("invalid status")
		}
		repoFilter.Status = &status
	}
	if filter.SortBy != "" && !repositories.ValidSortField(filter.SortBy) {
		return nil, apperrors.Validation("sortBy must be one of createdAt, deadline, title")
	}
	switch strings.ToLower(filter.Order) {
	case "", "desc":
	case "asc":
		repoFilter.Ascending = true
	default:
		return nil, apperrors.Validation("order must be asc or desc")
	}

	if !actor.IsAdmin() {
		id := actor.ID
		repoFilter.ParticipantID = &id
	}

	tasks, err := s.store.Tasks.List(ctx, repoFilter)
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return tasks, nil
}

func (s *TaskServiceImpl) Browse(ctx context.Context) ([]models.Task, error) {
	status := models.TaskStatusPending
	tasks, err := s.store.Tasks.List(ctx, repositories.TaskFilter{
		Status:         &status,
		OnlyUnassigned: true,
	})
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return tasks, nil
}

func (s *TaskServiceImpl) ListAll(ctx context.Context, actor policy.Actor) ([]models.Task, error) {
	if err := policy.Require(actor, policy.ActionListAllTasks, nil); err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks.List(ctx, repositories.TaskFilter{WithUsers: true})
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return tasks, nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*models.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "task not found", "")
	}
	if err := policy.Require(actor, policy.ActionReadTask, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch TaskPatch) (*models.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "task not found", "")
	}
	if err := policy.CheckTaskUpdate(actor, task, patch.Fields); err != nil {
		return nil, err
	}

	changes, err := s.buildChanges(ctx, patch)
	if err != nil {
		return nil, err
	}

	if err := s.store.Tasks.Update(ctx, id, changes); err != nil {
		return nil, storageError(err, "task not found", "")
	}

	updated, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "task not found", "")
	}
	s.log.WithFields(logrus.Fields{
		"task_id":  id,
		"actor_id": actor.ID,
		"fields":   patch.Fields,
	}).Info("task updated")
	return updated, nil
}

func (s *TaskServiceImpl) buildChanges(ctx context.Context, patch TaskPatch) (map[string]interface{}, error) {
	changes := make(map[string]interface{}, len(patch.Fields))

	if patch.Has(policy.FieldTitle) {
		if patch.Title == nil || strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.Validation("title cannot be empty")
		}
		changes["title"] = strings.TrimSpace(*patch.Title)
	}

	if patch.Has(policy.FieldDescription) {
		if d := trimOptional(patch.Description); d != nil {
			changes["description"] = *d
		} else {
			changes["description"] = nil
		}
	}

	if patch.Has(policy.FieldDeadline) {
		if patch.Deadline == nil || strings.TrimSpace(*patch.Deadline) == "" {
			changes["deadline"] = nil
		} else {
			deadline, err := ParseDeadline(*patch.Deadline)
			if err != nil {
				return nil, err
			}
			changes["deadline"] = deadline
		}
	}

	if patch.Has(policy.FieldStatus) {
		if patch.Status == nil {
			return nil, apperrors.Validation("invalid status")
		}
		status := models.TaskStatus(strings.ToUpper(strings.TrimSpace(*patch.Status)))
		if !status.Valid() {
			return nil, apperrors.Validation("invalid status")
		}
		changes["status"] = status
	}

	byID, byEmail := patch.Has(policy.FieldAssignedUserID), patch.Has(policy.FieldAssigneeEmail)
	switch {
	case byID && byEmail:
		return nil, apperrors.Validation("provide either assignedUserId or assigneeEmail")
	case byID:
		assignee, err := s.resolveAssigneeByID(ctx, patch.AssignedUserID)
		if err != nil {
			return nil, err
		}
		changes["assigned_user_id"] = columnValue(assignee)
	case byEmail:
		assignee, err := s.resolveAssigneeByEmail(ctx, patch.AssigneeEmail)
		if err != nil {
			return nil, err
		}
		changes["assigned_user_id"] = columnValue(assignee)
	}

	return changes, nil
}

// columnValue turns a nil id into an untyped nil so the column is set NULL.
func columnValue(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// resolveAssigneeByID returns nil to unassign.
func (s *TaskServiceImpl) resolveAssigneeByID(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.FromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperrors.Validation("invalid assignedUserId")
	}
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "assignee not found", "")
	}
	return &user.ID, nil
}

func (s *TaskServiceImpl) resolveAssigneeByEmail(ctx context.Context, email *string) (*uuid.UUID, error) {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil, nil
	}
	user, err := s.store.Users.FindByEmail(ctx, *email)
	if err != nil {
		return nil, storageError(err, "assignee not found", "")
	}
	return &user.ID, nil
}

// Delete removes the task with its requests and messages in one
// transaction.
func (s *TaskServiceImpl) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := policy.Require(actor, policy.ActionDeleteTask, nil); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		task, err := tx.Tasks.FindByIDForUpdate(ctx, id)
		if err != nil {
			return storageError(err, "task not found", "")
		}
		if err := tx.Requests.DeleteByTask(ctx, task.ID); err != nil {
			return apperrors.Internal(err)
		}
		if err := tx.Messages.DeleteByTask(ctx, task.ID); err != nil {
			return apperrors.Internal(err)
		}
		if err := tx.Tasks.Delete(ctx, task.ID); err != nil {
			return storageError(err, "task not found", "")
		}
		return recordAudit(ctx, tx, actor.ID, models.AuditActionDeleteTask, "task", task.ID, "deleted", task.Title)
	})
	if err != nil {
		return storageError(err, "task not found", "")
	}

	s.log.WithFields(logrus.Fields{"task_id": id, "actor_id": actor.ID}).Info("task deleted")
	return nil
}
