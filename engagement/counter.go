// Package engagement owns the like toggle and comment append. Likes are a
// true atomic toggle: the insert either succeeds or trips the unique
// constraint, which is read as "already liked" and converted to a delete.
// Counts are always recomputed from rows, never kept as running counters.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/prieelo/prieelo/models"
	"github.com/prieelo/prieelo/moderation"
	"github.com/prieelo/prieelo/visibility"
)

type TargetKind string

const (
	KindProject = TargetKind("project")
	KindPost    = TargetKind("post")
)

var (
	ErrUnknownKind    = errors.New("unknown target kind")
	ErrTargetNotFound = errors.New("target not found")
	ErrNotVisible     = errors.New("target is not visible to this account")
	ErrEmptyComment   = errors.New("comment content is required")
)

type LikeState struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

type Comment struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	AccountID uint   `json:"accountId"`
	CreatedAt string `json:"createdAt"`
}

type Counter struct {
	db   *gorm.DB
	gate *moderation.Gate

	log *slog.Logger
}

func NewCounter(db *gorm.DB, gate *moderation.Gate) *Counter {
	return &Counter{
		db:   db,
		gate: gate,
		log:  slog.Default().With("system", "engagement"),
	}
}

// target is the hydrated context a visibility decision needs. For project
// targets the post is nil and the project-level predicate applies.
type target struct {
	post    *models.PhasePost
	project *models.Project
	owner   *models.Account
}

func (c *Counter) resolveTarget(ctx context.Context, kind TargetKind, targetID uint) (*target, error) {
	db := c.db.WithContext(ctx)
	var t target

	switch kind {
	case KindPost:
		var post models.PhasePost
		if err := db.First(&post, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTargetNotFound
			}
			return nil, err
		}
		t.post = &post

		var project models.Project
		if err := db.First(&project, "id = ?", post.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTargetNotFound
			}
			return nil, err
		}
		t.project = &project
	case KindProject:
		var project models.Project
		if err := db.First(&project, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTargetNotFound
			}
			return nil, err
		}
		t.project = &project
	default:
		return nil, ErrUnknownKind
	}

	var owner models.Account
	if err := db.First(&owner, "id = ?", t.project.OwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	t.owner = &owner

	return &t, nil
}

func (t *target) visibleTo(v visibility.Viewer) bool {
	if t.post != nil {
		return visibility.Visible(t.post, t.project, t.owner, v)
	}
	return visibility.ProjectVisible(t.project, t.owner, v)
}

// ToggleLike flips the actor's like on the target and returns the new state
// with a fresh count. The toggle leans on the unique index over
// (account, target): an insert that hits gorm.ErrDuplicatedKey means the
// like already existed, so it is removed instead. No check-then-insert race.
func (c *Counter) ToggleLike(ctx context.Context, actorID uint, kind TargetKind, targetID uint) (*LikeState, error) {
	if _, err := c.gate.CheckWriter(ctx, actorID); err != nil {
		return nil, err
	}

	t, err := c.resolveTarget(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}
	if !t.visibleTo(visibility.Authenticated(actorID)) {
		return nil, ErrNotVisible
	}

	db := c.db.WithContext(ctx)
	liked := true

	switch kind {
	case KindPost:
		err = db.Create(&models.PostLike{AccountID: actorID, PostID: targetID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			liked = false
			err = db.Delete(&models.PostLike{}, "account_id = ? AND post_id = ?", actorID, targetID).Error
		}
	case KindProject:
		err = db.Create(&models.ProjectLike{AccountID: actorID, ProjectID: targetID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			liked = false
			err = db.Delete(&models.ProjectLike{}, "account_id = ? AND project_id = ?", actorID, targetID).Error
		}
	}
	if err != nil {
		return nil, fmt.Errorf("toggling like: %w", err)
	}

	count, err := c.LikeCount(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	likesToggled.WithLabelValues(string(kind)).Inc()

	return &LikeState{Liked: liked, Count: count}, nil
}

// AddComment appends a comment after the same gate and visibility checks as
// the like path. Content must be non-empty after trimming.
func (c *Counter) AddComment(ctx context.Context, actorID uint, kind TargetKind, targetID uint, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	if _, err := c.gate.CheckWriter(ctx, actorID); err != nil {
		return nil, err
	}

	t, err := c.resolveTarget(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}
	if !t.visibleTo(visibility.Authenticated(actorID)) {
		return nil, ErrNotVisible
	}

	db := c.db.WithContext(ctx)
	out := &Comment{Content: content, AccountID: actorID}

	switch kind {
	case KindPost:
		row := models.PostComment{Content: content, AccountID: actorID, PostID: targetID}
		if err := db.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("creating comment: %w", err)
		}
		out.ID = row.ID
		out.CreatedAt = row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	case KindProject:
		row := models.ProjectComment{Content: content, AccountID: actorID, ProjectID: targetID}
		if err := db.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("creating comment: %w", err)
		}
		out.ID = row.ID
		out.CreatedAt = row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	commentsCreated.WithLabelValues(string(kind)).Inc()

	return out, nil
}

// LikeCount is a fresh count over like rows, never an in-memory adjustment.
func (c *Counter) LikeCount(ctx context.Context, kind TargetKind, targetID uint) (int64, error) {
	var count int64
	var err error
	switch kind {
	case KindPost:
		err = c.db.WithContext(ctx).Model(&models.PostLike{}).Where("post_id = ?", targetID).Count(&count).Error
	case KindProject:
		err = c.db.WithContext(ctx).Model(&models.ProjectLike{}).Where("project_id = ?", targetID).Count(&count).Error
	default:
		err = ErrUnknownKind
	}
	return count, err
}

func (c *Counter) CommentCount(ctx context.Context, kind TargetKind, targetID uint) (int64, error) {
	var count int64
	var err error
	switch kind {
	case KindPost:
		err = c.db.WithContext(ctx).Model(&models.PostComment{}).Where("post_id = ?", targetID).Count(&count).Error
	case KindProject:
		err = c.db.WithContext(ctx).Model(&models.ProjectComment{}).Where("project_id = ?", targetID).Count(&count).Error
	default:
		err = ErrUnknownKind
	}
	return count, err
}

// Liked reports whether the account currently likes the target.
func (c *Counter) Liked(ctx context.Context, accountID uint, kind TargetKind, targetID uint) (bool, error) {
	var count int64
	var err error
	switch kind {
	case KindPost:
		err = c.db.WithContext(ctx).Model(&models.PostLike{}).
			Where("account_id = ? AND post_id = ?", accountID, targetID).Count(&count).Error
	case KindProject:
		err = c.db.WithContext(ctx).Model(&models.ProjectLike{}).
			Where("account_id = ? AND project_id = ?", accountID, targetID).Count(&count).Error
	default:
		err = ErrUnknownKind
	}
	return count > 0, err
}
