// Package phases enforces the material -> process -> masterpiece creation
// order and owns the only code path that advances a project's current phase.
package phases

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/prieelo/prieelo/models"
)

var ErrInvalidPhaseType = errors.New("invalid phase type")

// MissingPrerequisiteError names the first phase that must exist before the
// requested one may be created, checked in material -> process order.
type MissingPrerequisiteError struct {
	Requested models.PhaseType
	Missing   models.PhaseType
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("cannot add a %q post before a %q post exists", e.Requested, e.Missing)
}

// Validate is the pure ordering check over the set of phase types already
// present on a project.
func Validate(existing []models.PhaseType, requested models.PhaseType) error {
	if !requested.Valid() {
		return ErrInvalidPhaseType
	}

	has := make(map[models.PhaseType]bool, len(existing))
	for _, t := range existing {
		has[t] = true
	}

	switch requested {
	case models.PhaseProcess:
		if !has[models.PhaseMaterial] {
			return &MissingPrerequisiteError{Requested: requested, Missing: models.PhaseMaterial}
		}
	case models.PhaseMasterpiece:
		if !has[models.PhaseMaterial] {
			return &MissingPrerequisiteError{Requested: requested, Missing: models.PhaseMaterial}
		}
		if !has[models.PhaseProcess] {
			return &MissingPrerequisiteError{Requested: requested, Missing: models.PhaseProcess}
		}
	}

	return nil
}

type CreatePostRequest struct {
	Type        models.PhaseType
	Title       string
	Description string
	Images      []string
	Public      bool
}

// CreatePost validates ordering and persists the post together with the
// current-phase advance in one transaction, so a failure mid-sequence leaves
// no orphaned post with a stale phase. Callers must have already checked the
// moderation gate and project ownership.
//
// The phase only ever moves forward: adding a lower-ordinal post later never
// regresses it, and deleting posts does not revisit it.
func CreatePost(ctx context.Context, db *gorm.DB, project *models.Project, req CreatePostRequest) (*models.PhasePost, error) {
	var existing []models.PhaseType
	if err := db.WithContext(ctx).Model(&models.PhasePost{}).
		Distinct("type").
		Where("project_id = ?", project.ID).
		Pluck("type", &existing).Error; err != nil {
		return nil, fmt.Errorf("loading existing phases: %w", err)
	}

	if err := Validate(existing, req.Type); err != nil {
		return nil, err
	}

	post := &models.PhasePost{
		ProjectID:   project.ID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Images:      req.Images,
		Public:      req.Public,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}

		if req.Type.Ordinal() > project.CurrentPhase.Ordinal() {
			if err := tx.Model(&models.Project{}).
				Where("id = ?", project.ID).
				Update("current_phase", req.Type).Error; err != nil {
				return err
			}
			project.CurrentPhase = req.Type
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating phase post: %w", err)
	}

	return post, nil
}
