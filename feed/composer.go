// Package feed builds the three read shapes of the platform. Every mode
// queries with a visibility scope and then re-checks each row against the
// same predicate before it may leave the composer; an item whose owner
// cannot be resolved is dropped, not reported.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/prieelo/prieelo/engagement"
	"github.com/prieelo/prieelo/models"
	"github.com/prieelo/prieelo/visibility"
)

// pageSize bounds the global feed modes.
const pageSize = 50

// Item is one enriched feed entry. Owner is resolved exactly once when the
// item enters the composer and never re-derived downstream. ViewerLiked is
// nil for anonymous viewers.
type Item struct {
	Post         *models.PhasePost `json:"post"`
	Project      *models.Project   `json:"project"`
	Owner        *models.Account   `json:"owner"`
	LikeCount    int64             `json:"likeCount"`
	CommentCount int64             `json:"commentCount"`
	ViewerLiked  *bool             `json:"viewerLiked,omitempty"`
}

type Composer struct {
	db      *gorm.DB
	counter *engagement.Counter

	log *slog.Logger
}

func NewComposer(db *gorm.DB, counter *engagement.Counter) *Composer {
	return &Composer{
		db:      db,
		counter: counter,
		log:     slog.Default().With("system", "feed"),
	}
}

// projectContext caches project+owner lookups for the duration of one
// compose call.
type projectContext struct {
	project *models.Project
	owner   *models.Account
}

func (c *Composer) loadProjectContext(ctx context.Context, cache map[uint]*projectContext, projectID uint) (*projectContext, error) {
	if pc, ok := cache[projectID]; ok {
		return pc, nil
	}

	db := c.db.WithContext(ctx)

	var project models.Project
	if err := db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cache[projectID] = nil
			return nil, nil
		}
		return nil, err
	}

	var owner models.Account
	if err := db.First(&owner, "id = ?", project.OwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cache[projectID] = nil
			return nil, nil
		}
		return nil, err
	}

	pc := &projectContext{project: &project, owner: &owner}
	cache[projectID] = pc
	return pc, nil
}

// hydrate attaches counts and the per-viewer like state to one post that has
// already passed the visibility re-check.
func (c *Composer) hydrate(ctx context.Context, post *models.PhasePost, pc *projectContext, viewer visibility.Viewer) (*Item, error) {
	likeCount, err := c.counter.LikeCount(ctx, engagement.KindPost, post.ID)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	commentCount, err := c.counter.CommentCount(ctx, engagement.KindPost, post.ID)
	if err != nil {
		return nil, fmt.Errorf("counting comments: %w", err)
	}

	item := &Item{
		Post:         post,
		Project:      pc.project,
		Owner:        pc.owner,
		LikeCount:    likeCount,
		CommentCount: commentCount,
	}

	if viewer.Authenticated {
		liked, err := c.counter.Liked(ctx, viewer.AccountID, engagement.KindPost, post.ID)
		if err != nil {
			return nil, err
		}
		item.ViewerLiked = &liked
	}

	return item, nil
}

// compose runs the mandatory post-fetch pipeline over queried rows: resolve
// the project context, re-apply the visibility predicate, then enrich.
func (c *Composer) compose(ctx context.Context, posts []*models.PhasePost, viewer visibility.Viewer) ([]*Item, error) {
	cache := make(map[uint]*projectContext)
	out := make([]*Item, 0, len(posts))

	for _, post := range posts {
		pc, err := c.loadProjectContext(ctx, cache, post.ProjectID)
		if err != nil {
			return nil, err
		}
		if pc == nil {
			// Unresolvable owner or project: degrade by exclusion.
			continue
		}
		if !visibility.Visible(post, pc.project, pc.owner, viewer) {
			continue
		}

		item, err := c.hydrate(ctx, post, pc, viewer)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	return out, nil
}

// ProjectFeed returns all visible posts of one project in creation order,
// ascending by default or descending for reverse-chronological listings.
func (c *Composer) ProjectFeed(ctx context.Context, viewer visibility.Viewer, projectID uint, newestFirst bool) ([]*Item, error) {
	order := "phase_posts.created_at asc"
	if newestFirst {
		order = "phase_posts.created_at desc"
	}

	var posts []*models.PhasePost
	if err := c.db.WithContext(ctx).Model(&models.PhasePost{}).
		Scopes(visibility.PostScope(viewer)).
		Where("phase_posts.project_id = ?", projectID).
		Order(order).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("querying project feed: %w", err)
	}

	feedRequests.WithLabelValues("project").Inc()
	return c.compose(ctx, posts, viewer)
}

// AllPosts is the global activity stream: visible posts across all projects,
// newest first, capped at one page. phase restricts the stream to a single
// phase type when non-nil.
func (c *Composer) AllPosts(ctx context.Context, viewer visibility.Viewer, phase *models.PhaseType) ([]*Item, error) {
	q := c.db.WithContext(ctx).Model(&models.PhasePost{}).
		Scopes(visibility.PostScope(viewer))
	if phase != nil {
		q = q.Where("phase_posts.type = ?", *phase)
	}

	var posts []*models.PhasePost
	if err := q.Order("phase_posts.created_at desc").Limit(pageSize).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("querying all-posts feed: %w", err)
	}

	feedRequests.WithLabelValues("all-posts").Inc()
	return c.compose(ctx, posts, viewer)
}

// LatestPerProject returns one representative post per project: the most
// recently updated visible post matching the optional phase filter. Projects
// with no matching post are excluded. Ordered by project update time,
// newest first.
func (c *Composer) LatestPerProject(ctx context.Context, viewer visibility.Viewer, phase *models.PhaseType) ([]*Item, error) {
	var projects []*models.Project
	if err := c.db.WithContext(ctx).Model(&models.Project{}).
		Scopes(visibility.ProjectScope(viewer)).
		Order("projects.updated_at desc").
		Limit(pageSize).
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}

	cache := make(map[uint]*projectContext)
	out := make([]*Item, 0, len(projects))

	for _, project := range projects {
		pc, err := c.loadProjectContext(ctx, cache, project.ID)
		if err != nil {
			return nil, err
		}
		if pc == nil || !visibility.ProjectVisible(pc.project, pc.owner, viewer) {
			continue
		}

		q := c.db.WithContext(ctx).Model(&models.PhasePost{}).
			Where("project_id = ?", project.ID)
		if phase != nil {
			q = q.Where("type = ?", *phase)
		}

		var candidates []*models.PhasePost
		if err := q.Order("updated_at desc").Find(&candidates).Error; err != nil {
			return nil, fmt.Errorf("querying representative post: %w", err)
		}

		var representative *models.PhasePost
		for _, post := range candidates {
			if visibility.Visible(post, pc.project, pc.owner, viewer) {
				representative = post
				break
			}
		}
		if representative == nil {
			continue
		}

		item, err := c.hydrate(ctx, representative, pc, viewer)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	feedRequests.WithLabelValues("all-projects").Inc()
	return out, nil
}
