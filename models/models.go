package models

import (
	"time"

	"gorm.io/gorm"
)

type ApprovalStatus string

const (
	StatusPending   = ApprovalStatus("PENDING")
	StatusApproved  = ApprovalStatus("APPROVED")
	StatusRejected  = ApprovalStatus("REJECTED")
	StatusSuspended = ApprovalStatus("SUSPENDED")
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return true
	default:
		return false
	}
}

type Account struct {
	gorm.Model
	Username   string `gorm:"uniqueIndex"`
	Email      string `gorm:"uniqueIndex" json:"-"`
	Password   string `json:"-"`
	FirstName  string
	LastName   string
	Bio        string
	Avatar     string
	Status     ApprovalStatus `gorm:"default:PENDING"`
	IsApproved bool
	IsAdmin    bool
}

// CanWrite is the platform-wide write capability check. A nil account can
// never write.
func (a *Account) CanWrite() bool {
	return a != nil && a.Status == StatusApproved && a.IsApproved
}

// RemakerApplication is the structured record behind the "become a remaker"
// form. One row per submission; review happens through account status.
type RemakerApplication struct {
	gorm.Model
	AccountID          uint `gorm:"index"`
	ProjectDescription string
	Experience         string
	Motivation         string
	SubmittedAt        time.Time
}

// PasswordReset is a single-use reset token. Consumed rows are kept rather
// than deleted so reuse attempts stay visible.
type PasswordReset struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	AccountID uint   `gorm:"index"`
	Token     string `gorm:"uniqueIndex"`
	ExpiresAt time.Time
	UsedAt    *time.Time
}

type PhaseType string

const (
	PhaseMaterial    = PhaseType("material")
	PhaseProcess     = PhaseType("process")
	PhaseMasterpiece = PhaseType("masterpiece")
)

// Ordinal is the fixed lifecycle ordering. Unknown types sort below
// everything.
func (p PhaseType) Ordinal() int {
	switch p {
	case PhaseMaterial:
		return 0
	case PhaseProcess:
		return 1
	case PhaseMasterpiece:
		return 2
	default:
		return -1
	}
}

func (p PhaseType) Valid() bool {
	return p.Ordinal() >= 0
}

type Project struct {
	gorm.Model
	Title        string
	Description  string
	Public       bool
	CurrentPhase PhaseType `gorm:"default:material"`
	OwnerID      uint      `gorm:"index"`
}

type PhasePost struct {
	gorm.Model
	ProjectID   uint      `gorm:"index"`
	Type        PhaseType `gorm:"index"`
	Title       string
	Description string
	Images      []string `gorm:"serializer:json"`
	Public      bool
}

// ProjectLike and PostLike are two disjoint relations with identical
// semantics. No DeletedAt: unliking must hard-delete the row or the unique
// index would block the next like.
type ProjectLike struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	AccountID uint `gorm:"index:idx_project_like,unique"`
	ProjectID uint `gorm:"index:idx_project_like,unique"`
}

type PostLike struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	AccountID uint `gorm:"index:idx_post_like,unique"`
	PostID    uint `gorm:"index:idx_post_like,unique"`
}

type ProjectComment struct {
	gorm.Model
	Content   string
	AccountID uint
	ProjectID uint `gorm:"index"`
}

type PostComment struct {
	gorm.Model
	Content   string
	AccountID uint
	PostID    uint `gorm:"index"`
}
