package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrTaskAssigned     = apperrors.Conflict("task already assigned")
	ErrTaskCompleted    = apperrors.Conflict("task already completed")
	ErrDuplicateRequest = apperrors.Conflict("you already have a pending request for this task")
	ErrRequestDecided   = apperrors.Conflict("request already decided")
)

type RequestService interface {
	RequestTask(ctx context.Context, actor policy.Actor, taskID uuid.UUID) (*models.TaskRequest, error)
	Decide(ctx context.Context, actor policy.Actor, requestID uuid.UUID, action string) (*models.TaskRequest, error)
	ListPending(ctx context.Context, actor policy.Actor) ([]models.TaskRequest, error)
}

type RequestServiceImpl struct {
	store       *repositories.Store
	invalidator BrowseInvalidator
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewRequestService(store *repositories.Store, invalidator BrowseInvalidator, log logrus.FieldLogger) *RequestServiceImpl {
	return &RequestServiceImpl{
		store:       store,
		invalidator: invalidator,
		log:         log,
		now:         time.Now,
	}
}

// RequestTask files a PENDING request by actor to become the assignee.
func (s *RequestServiceImpl) RequestTask(ctx context.Context, actor policy.Actor, taskID uuid.UUID) (*models.TaskRequest, error) {
	if err := policy.Require(actor, policy.ActionRequestTask, nil); err != nil {
		return nil, err
	}

	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, storageError(err, "task not found", "")
	}
	if task.IsAssigned() {
		return nil, ErrTaskAssigned
	}
	if task.Status == models.TaskStatusCompleted {
		return nil, ErrTaskCompleted
	}

	pending, err := s.store.Requests.HasPending(ctx, taskID, actor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	req := &models.TaskRequest{
		TaskID:      taskID,
		RequesterID: actor.ID,
		Status:      models.RequestStatusPending,
	}
	if err := s.store.Requests.Create(ctx, req); err != nil {
		return nil, storageError(err, "task not found", ErrDuplicateRequest.Message)
	}

	s.log.WithFields(logrus.Fields{"request_id": req.ID, "task_id": taskID, "requester_id": actor.ID}).Info("task requested")
	return req, nil
}

func (s *RequestServiceImpl) ListPending(ctx context.Context, actor policy.Actor) ([]models.TaskRequest, error) {
	if err := policy.Require(actor, policy.ActionListRequests, nil); err != nil {
		return nil, err
	}
	requests, err := s.store.Requests.ListPending(ctx)
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return requests, nil
}

// Decide approves or denies a PENDING request. Approval assigns the task to
// the requester and denies every other pending request for it, all within
// one transaction.
func (s *RequestServiceImpl) Decide(ctx context.Context, actor policy.Actor, requestID uuid.UUID, action string) (*models.TaskRequest, error) {
	if err := policy.Require(actor, policy.ActionDecide, nil); err != nil {
		return nil, err
	}
	decision := models.DecisionAction(strings.ToUpper(strings.TrimSpace(action)))
	if !decision.Valid() {
		return nil, apperrors.Validation("action must be APPROVE or DENY")
	}

	var decided *models.TaskRequest
	var autoDenied int64
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		req, task, err := tx.LockRequestWithTask(ctx, requestID)
		if err != nil {
			return storageError(err, "request not found", "")
		}
		if req.Status != models.RequestStatusPending {
			return ErrRequestDecided
		}

		now := s.now().UTC()
		if decision == models.DecisionApprove {
			autoDenied, err = s.approve(ctx, tx, actor, req, task, now)
		} else {
			err = s.deny(ctx, tx, actor, req, now)
		}
		if err != nil {
			return err
		}

		decided, err = tx.Requests.FindByID(ctx, requestID)
		return storageError(err, "request not found", "")
	})
	if err != nil {
		return nil, storageError(err, "request not found", "")
	}

	if decision == models.DecisionApprove && s.invalidator != nil {
		s.invalidator.InvalidateBrowse(ctx)
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"actor_id":    actor.ID,
		"decision":    decision,
		"auto_denied": autoDenied,
	}).Info("task request decided")
	return decided, nil
}

func (s *RequestServiceImpl) approve(ctx context.Context, tx *repositories.Store, actor policy.Actor, req *models.TaskRequest, task *models.Task, now time.Time) (int64, error) {
	if task.IsAssigned() && !task.IsAssignedTo(req.RequesterID) {
		return 0, ErrTaskAssigned
	}

	assigned, err := tx.Tasks.AssignIfAvailable(ctx, task.ID, req.RequesterID)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if !assigned {
		return 0, ErrTaskAssigned
	}

	moved, err := tx.Requests.Transition(ctx, req.ID, models.RequestStatusApproved, actor.ID, now)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if !moved {
		return 0, ErrRequestDecided
	}

	denied, err := tx.Requests.DenyPendingForTask(ctx, task.ID, req.ID, actor.ID, now)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	reason := fmt.Sprintf("assigned to %s; %d other request(s) denied", req.RequesterID, denied)
	if err := recordAudit(ctx, tx, actor.ID, models.AuditActionDecideRequest, "task_request", req.ID, string(models.DecisionApprove), reason); err != nil {
		return 0, apperrors.Internal(err)
	}
	return denied, nil
}

func (s *RequestServiceImpl) deny(ctx context.Context, tx *repositories.Store, actor policy.Actor, req *models.TaskRequest, now time.Time) error {
	moved, err := tx.Requests.Transition(ctx, req.ID, models.RequestStatusDenied, actor.ID, now)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !moved {
		return ErrRequestDecided
	}
	if err := recordAudit(ctx, tx, actor.ID, models.AuditActionDecideRequest, "task_request", req.ID, string(models.DecisionDeny), ""); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}
