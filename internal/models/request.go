package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusDenied   RequestStatus = "DENIED"
)

type DecisionAction string

const (
	DecisionApprove DecisionAction = "APPROVE"
	DecisionDeny    DecisionAction = "DENY"
)

func (a DecisionAction) Valid() bool {
	return a == DecisionApprove || a == DecisionDeny
}

type TaskRequest struct {
	ID          uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID      uuid.UUID     `json:"taskId" gorm:"type:uuid;not null;index"`
	RequesterID uuid.UUID     `json:"requesterId" gorm:"type:uuid;not null;index"`
	Status      RequestStatus `json:"status" gorm:"type:varchar(16);not null;default:'PENDING'"`
	DecidedByID *uuid.UUID    `json:"decidedById,omitempty" gorm:"type:uuid"`
	DecidedAt   *time.Time    `json:"decidedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	Task      *Task `json:"task,omitempty" gorm:"foreignKey:TaskID"`
	Requester *User `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
}

func (r *TaskRequest) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	return assignID(&r.ID)
}

// IsTerminal reports whether an admin has already decided the request.
func (r *TaskRequest) IsTerminal() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusDenied
}

type TaskMessage struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID    uuid.UUID `json:"taskId" gorm:"type:uuid;not null;index"`
	AuthorID  uuid.UUID `json:"authorId" gorm:"type:uuid;not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`

	Author *User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

func (m *TaskMessage) BeforeCreate(tx *gorm.DB) error {
	return assignID(&m.ID)
}
