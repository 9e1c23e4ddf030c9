// Package moderation owns the account-approval state machine and gates write
// access platform-wide. Ambiguity about an actor's capability always
// resolves to deny.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/prieelo/prieelo/models"
	"github.com/prieelo/prieelo/notifs"
)

var (
	ErrNotAdmin        = errors.New("admin access required")
	ErrInvalidStatus   = errors.New("invalid account status")
	ErrAccountNotFound = errors.New("account not found")

	// Capability errors returned from CheckWriter. Each maps to a distinct
	// machine-readable code so clients can render the right call-to-action.
	ErrAccountPending   = errors.New("account is pending approval")
	ErrAccountRejected  = errors.New("account application was rejected")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrNotApproved      = errors.New("account is not approved")
)

type Gate struct {
	db       *gorm.DB
	notifier notifs.Notifier

	log *slog.Logger
}

func NewGate(db *gorm.DB, notifier notifs.Notifier) *Gate {
	if notifier == nil {
		notifier = notifs.NullNotifier{}
	}
	return &Gate{
		db:       db,
		notifier: notifier,
		log:      slog.Default().With("system", "moderation"),
	}
}

func actionForStatus(status models.ApprovalStatus) string {
	switch status {
	case models.StatusApproved:
		return models.ActionApprove
	case models.StatusRejected:
		return models.ActionReject
	case models.StatusSuspended:
		return models.ActionSuspend
	default:
		return models.ActionSetPending
	}
}

func eventForStatus(status models.ApprovalStatus) (notifs.Event, bool) {
	switch status {
	case models.StatusApproved:
		return notifs.EventAccountApproved, true
	case models.StatusRejected:
		return notifs.EventAccountRejected, true
	case models.StatusSuspended:
		return notifs.EventAccountSuspended, true
	default:
		return "", false
	}
}

// SetStatus is the only transition function over an account's approval
// status. It updates the account and writes the audit row in one
// transaction, then notifies the affected account out of band.
func (g *Gate) SetStatus(ctx context.Context, admin *models.Account, accountID uint, status models.ApprovalStatus, reason string) (*models.Account, error) {
	if admin == nil || !admin.IsAdmin {
		return nil, ErrNotAdmin
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var account models.Account
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&account, "id = ?", accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		account.Status = status
		account.IsApproved = status == models.StatusApproved
		if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"status":      account.Status,
			"is_approved": account.IsApproved,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&models.ModerationAction{
			Action:      actionForStatus(status),
			SubjectType: "account",
			SubjectID:   account.ID,
			Reason:      reason,
			AdminID:     admin.ID,
			CreatedAt:   time.Now(),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("setting account status: %w", err)
	}

	moderationActionsTaken.WithLabelValues(string(status)).Inc()

	if evt, ok := eventForStatus(status); ok {
		if err := g.notifier.Notify(ctx, account.ID, evt, map[string]any{"reason": reason}); err != nil {
			g.log.Warn("status notification failed", "account", account.ID, "err", err)
		}
	}

	return &account, nil
}

// CheckWriter loads the account and returns nil only if it may write.
// Unknown accounts are denied, not reported as missing.
func (g *Gate) CheckWriter(ctx context.Context, accountID uint) (*models.Account, error) {
	var account models.Account
	if err := g.db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotApproved
		}
		return nil, err
	}

	if account.CanWrite() {
		return &account, nil
	}

	switch account.Status {
	case models.StatusPending:
		return nil, ErrAccountPending
	case models.StatusRejected:
		return nil, ErrAccountRejected
	case models.StatusSuspended:
		return nil, ErrAccountSuspended
	default:
		return nil, ErrNotApproved
	}
}
