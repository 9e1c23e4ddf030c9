// Package visibility holds the one predicate that decides whether a viewer
// may see a piece of content. Every read path applies it twice: once as a
// gorm scope shaping the query, once over the fetched rows. The two forms
// must never diverge.
package visibility

import (
	"gorm.io/gorm"

	"github.com/prieelo/prieelo/models"
)

// Viewer is the resolved request identity: either anonymous or a concrete
// account id. It carries no capability information; approval gating is the
// moderation package's concern.
type Viewer struct {
	AccountID     uint
	Authenticated bool
}

func Anonymous() Viewer {
	return Viewer{}
}

func Authenticated(accountID uint) Viewer {
	return Viewer{AccountID: accountID, Authenticated: true}
}

// Owns reports whether the viewer owns the project. Anonymous viewers own
// nothing.
func (v Viewer) Owns(project *models.Project) bool {
	return v.Authenticated && project != nil && v.AccountID == project.OwnerID
}

func ownerInGoodStanding(owner *models.Account) bool {
	return owner != nil && owner.Status == models.StatusApproved && owner.IsApproved
}

// Visible reports whether the viewer may see the given post. The owner must
// be approved; beyond that, owners see everything they own and everyone else
// needs both the post and the project to be public.
func Visible(post *models.PhasePost, project *models.Project, owner *models.Account, v Viewer) bool {
	if post == nil || project == nil {
		return false
	}
	if !ownerInGoodStanding(owner) {
		return false
	}
	if v.Owns(project) {
		return true
	}
	return post.Public && project.Public
}

// ProjectVisible is the project-level form of Visible: a bare project has no
// post-level flag, so that term is taken as true.
func ProjectVisible(project *models.Project, owner *models.Account, v Viewer) bool {
	if project == nil {
		return false
	}
	if !ownerInGoodStanding(owner) {
		return false
	}
	if v.Owns(project) {
		return true
	}
	return project.Public
}

// PostScope shapes a phase_posts query to the same result set Visible would
// admit. Joined tables don't get gorm's automatic soft-delete clause, so the
// deleted_at checks are spelled out.
func PostScope(v Viewer) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.
			Joins("JOIN projects ON projects.id = phase_posts.project_id AND projects.deleted_at IS NULL").
			Joins("JOIN accounts ON accounts.id = projects.owner_id AND accounts.deleted_at IS NULL").
			Where("accounts.status = ? AND accounts.is_approved = ?", models.StatusApproved, true)
		if v.Authenticated {
			return db.Where("(phase_posts.public = ? AND projects.public = ?) OR projects.owner_id = ?", true, true, v.AccountID)
		}
		return db.Where("phase_posts.public = ? AND projects.public = ?", true, true)
	}
}

// ProjectScope is the project-level counterpart of PostScope.
func ProjectScope(v Viewer) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.
			Joins("JOIN accounts ON accounts.id = projects.owner_id AND accounts.deleted_at IS NULL").
			Where("accounts.status = ? AND accounts.is_approved = ?", models.StatusApproved, true)
		if v.Authenticated {
			return db.Where("projects.public = ? OR projects.owner_id = ?", true, v.AccountID)
		}
		return db.Where("projects.public = ?", true)
	}
}
