package models

import (
	"time"
)

// ModerationAction is an immutable audit record. One row per moderation
// decision; never updated or deleted.
type ModerationAction struct {
	ID          uint64 `gorm:"primaryKey"`
	Action      string `gorm:"not null"`
	SubjectType string `gorm:"not null"`
	SubjectID   uint   `gorm:"not null"`
	Reason      string
	AdminID     uint      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

const (
	ActionApprove    = "APPROVE"
	ActionReject     = "REJECT"
	ActionSuspend    = "SUSPEND"
	ActionSetPending = "SET_PENDING"
)
