package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SelectionAction is the transition a selection event records
type SelectionAction string

const (
	SelectionActionLocked   SelectionAction = "locked"
	SelectionActionUnlocked SelectionAction = "unlocked"
)

// SelectionEventStatus tracks delivery of an event to the task generator
type SelectionEventStatus string

const (
	SelectionEventPending   SelectionEventStatus = "pending"
	SelectionEventDelivered SelectionEventStatus = "delivered"
	SelectionEventFailed    SelectionEventStatus = "failed"
)

// SelectionEvent is an outbox row written in the same transaction as a lock or unlock
type SelectionEvent struct {
	ID             uint                 `gorm:"primaryKey" json:"id"`
	StudentID      uint                 `gorm:"not null;index" json:"student_id"`
	UniversityID   uint                 `gorm:"not null" json:"university_id"`
	Action         SelectionAction      `gorm:"type:varchar(20);not null" json:"action"`
	IdempotencyKey string               `gorm:"type:varchar(120);not null;uniqueIndex" json:"idempotency_key"`
	Payload        datatypes.JSON       `gorm:"type:jsonb" json:"payload,omitempty"`
	Status         SelectionEventStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts       int                  `gorm:"not null;default:0" json:"attempts"`
	LastError      string               `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	DeliveredAt    *time.Time           `json:"delivered_at,omitempty"`
}

// TableName specifies the table name for SelectionEvent
func (SelectionEvent) TableName() string {
	return "selection_events"
}

// SelectionEventKey builds the idempotency key for a transition.
// version is the StudentSelection version after the transition, so a
// re-lock of the same university after an unlock gets a fresh key.
func SelectionEventKey(studentID, universityID uint, action SelectionAction, version int64) string {
	return fmt.Sprintf("%d:%d:%s:%d", studentID, universityID, action, version)
}
