package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	AuditActionDecideRequest = "decide_request"
	AuditActionChangeRole    = "change_role"
	AuditActionDeleteTask    = "delete_task"
)

type AuditLog struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ActorID      uuid.UUID `json:"actorId" gorm:"type:uuid;not null;index"`
	Action       string    `json:"action" gorm:"not null"`
	ResourceType string    `json:"resourceType" gorm:"not null"`
	ResourceID   uuid.UUID `json:"resourceId" gorm:"type:uuid"`
	Decision     string    `json:"decision"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	return assignID(&a.ID)
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Task{},
		&TaskRequest{},
		&TaskMessage{},
		&AuditLog{},
	}
}
