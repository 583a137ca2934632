package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

type Task struct {
	ID             uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	Title          string     `json:"title" gorm:"not null"`
	Description    *string    `json:"description"`
	Status         TaskStatus `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	Deadline       *time.Time `json:"deadline"`
	CreatedByID    uuid.UUID  `json:"createdById" gorm:"type:uuid;not null;index"`
	AssignedUserID *uuid.UUID `json:"assignedUserId" gorm:"type:uuid;index"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	CreatedBy    *User `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
	AssignedUser *User `json:"assignedUser,omitempty" gorm:"foreignKey:AssignedUserID"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	return assignID(&t.ID)
}

func (t *Task) IsAssigned() bool {
	return t.AssignedUserID != nil && *t.AssignedUserID != uuid.Nil
}

func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.IsAssigned() && *t.AssignedUserID == userID
}

// Browsable tasks are open for requests from any user.
func (t *Task) Browsable() bool {
	return t.Status == TaskStatusPending && !t.IsAssigned()
}
