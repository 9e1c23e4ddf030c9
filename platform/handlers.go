package platform

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/prieelo/prieelo/engagement"
	"github.com/prieelo/prieelo/models"
	"github.com/prieelo/prieelo/moderation"
	"github.com/prieelo/prieelo/notifs"
	"github.com/prieelo/prieelo/phases"
	"github.com/prieelo/prieelo/visibility"
)

// accountView is the public shape of an account. Email is only exposed on
// admin listings.
type accountView struct {
	ID         uint                  `json:"id"`
	Username   string                `json:"username"`
	FirstName  string                `json:"firstName,omitempty"`
	LastName   string                `json:"lastName,omitempty"`
	Avatar     string                `json:"avatar,omitempty"`
	Status     models.ApprovalStatus `json:"status"`
	IsApproved bool                  `json:"isApproved"`
	IsAdmin    bool                  `json:"isAdmin"`
	CreatedAt  time.Time             `json:"createdAt"`
	Email      string                `json:"email,omitempty"`
}

func newAccountView(a *models.Account) accountView {
	return accountView{
		ID:         a.ID,
		Username:   a.Username,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Avatar:     a.Avatar,
		Status:     a.Status,
		IsApproved: a.IsApproved,
		IsAdmin:    a.IsAdmin,
		CreatedAt:  a.CreatedAt,
	}
}

func (s *Server) getAccount(c echo.Context) (*models.Account, error) {
	v, err := requireViewer(c)
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := s.db.WithContext(c.Request().Context()).First(&account, "id = ?", v.AccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthRequired
		}
		return nil, err
	}

	return &account, nil
}

type signupRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=40"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type authResponse struct {
	Account   accountView `json:"account"`
	AccessJwt string      `json:"accessJwt"`
}

func (s *Server) handleSignup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hashed, err := encodePassword(req.Password)
	if err != nil {
		return err
	}

	account := models.Account{
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashed,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Status:    models.StatusPending,
	}
	if err := s.db.WithContext(c.Request().Context()).Create(&account).Error; err != nil {
		return err
	}

	tok, err := s.createAuthTokenForAccount(account.ID)
	if err != nil {
		return err
	}

	signupsCreated.Inc()

	return c.JSON(http.StatusCreated, authResponse{Account: newAccountView(&account), AccessJwt: tok})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var account models.Account
	err := s.db.WithContext(c.Request().Context()).
		First(&account, "username = ? OR email = ?", req.Identifier, req.Identifier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := verifyPassword(account.Password, req.Password); err != nil {
		return err
	}

	tok, err := s.createAuthTokenForAccount(account.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{Account: newAccountView(&account), AccessJwt: tok})
}

type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Bio       *string `json:"bio"`
	Avatar    *string `json:"avatar"`
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	account, err := s.getAccount(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
		account.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
		account.LastName = *req.LastName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
		account.Bio = *req.Bio
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
		account.Avatar = *req.Avatar
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(c.Request().Context()).Model(&models.Account{}).
			Where("id = ?", account.ID).Updates(updates).Error; err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"account": newAccountView(account)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func (s *Server) handleChangePassword(c echo.Context) error {
	account, err := s.getAccount(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := verifyPassword(account.Password, req.CurrentPassword); err != nil {
		return err
	}

	hashed, err := encodePassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(c.Request().Context()).Model(&models.Account{}).
		Where("id = ?", account.ID).Update("password", hashed).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"message": "password updated"})
}

// passwordResetTTL is how long a reset token stays redeemable.
const passwordResetTTL = time.Hour

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) handleForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// The response never discloses whether the email exists.
	resp := map[string]any{"message": "If that email is registered, a reset link is on its way."}

	ctx := c.Request().Context()
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "email = ?", req.Email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, resp)
		}
		return err
	}

	reset := models.PasswordReset{
		AccountID: account.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(passwordResetTTL),
	}
	if err := s.db.WithContext(ctx).Create(&reset).Error; err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, account.ID, notifs.EventPasswordReset, map[string]any{
		"token": reset.Token,
	}); err != nil {
		s.log.Warn("password reset notification failed", "account", account.ID, "err", err)
	}

	return c.JSON(http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (s *Server) handleResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var reset models.PasswordReset
	if err := s.db.WithContext(ctx).First(&reset, "token = ?", req.Token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		return ErrInvalidResetToken
	}

	hashed, err := encodePassword(req.NewPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Account{}).
			Where("id = ?", reset.AccountID).Update("password", hashed).Error; err != nil {
			return err
		}
		return tx.Model(&models.PasswordReset{}).
			Where("id = ?", reset.ID).Update("used_at", &now).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"message": "password updated"})
}

type applicationRequest struct {
	ProjectDescription string `json:"projectDescription" validate:"required"`
	Experience         string `json:"experience" validate:"required"`
	Motivation         string `json:"motivation" validate:"required"`
}

func (s *Server) handleSubmitApplication(c echo.Context) error {
	account, err := s.getAccount(c)
	if err != nil {
		return err
	}

	var req applicationRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	app := models.RemakerApplication{
		AccountID:          account.ID,
		ProjectDescription: req.ProjectDescription,
		Experience:         req.Experience,
		Motivation:         req.Motivation,
		SubmittedAt:        time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
		return err
	}

	applicationsSubmitted.Inc()

	// Admins are told out of band; a notification failure never fails the
	// submission.
	var admins []models.Account
	if err := s.db.WithContext(ctx).Find(&admins, "is_admin = ?", true).Error; err != nil {
		s.log.Warn("listing admins for notification", "err", err)
	}
	for _, admin := range admins {
		if err := s.notifier.Notify(ctx, admin.ID, notifs.EventApplicationSubmitted, map[string]any{
			"applicant": account.Username,
		}); err != nil {
			s.log.Warn("application notification failed", "admin", admin.ID, "err", err)
		}
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"message": "Application submitted. Our team will review it soon.",
	})
}

func (s *Server) handleAccountStatus(c echo.Context) error {
	account, err := s.getAccount(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":     account.Status,
		"isApproved": account.IsApproved,
	})
}

type createProjectRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Public      *bool  `json:"public"`
}

func (s *Server) handleCreateProject(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	account, err := s.gate.CheckWriter(ctx, v.AccountID)
	if err != nil {
		return err
	}

	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	project := models.Project{
		Title:        req.Title,
		Description:  req.Description,
		Public:       public,
		CurrentPhase: models.PhaseMaterial,
		OwnerID:      account.ID,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return err
	}

	projectsCreated.Inc()

	return c.JSON(http.StatusCreated, map[string]any{"project": project})
}

type commentView struct {
	ID        uint        `json:"id"`
	Content   string      `json:"content"`
	Author    accountView `json:"author"`
	CreatedAt time.Time   `json:"createdAt"`
}

type projectDetail struct {
	Project      *models.Project     `json:"project"`
	Owner        accountView         `json:"owner"`
	Posts        []*models.PhasePost `json:"posts"`
	Comments     []commentView       `json:"comments"`
	LikeCount    int64               `json:"likeCount"`
	CommentCount int64               `json:"commentCount"`
	ViewerLiked  *bool               `json:"viewerLiked,omitempty"`
}

func (s *Server) lookupProject(c echo.Context, param string) (*models.Project, *models.Account, error) {
	var id uint
	if err := echo.PathParamsBinder(c).Uint(param, &id).BindError(); err != nil {
		return nil, nil, ErrProjectNotFound
	}

	ctx := c.Request().Context()

	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, err
	}

	var owner models.Account
	if err := s.db.WithContext(ctx).First(&owner, "id = ?", project.OwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, err
	}

	return &project, &owner, nil
}

func (s *Server) handleGetProject(c echo.Context) error {
	project, owner, err := s.lookupProject(c, "id")
	if err != nil {
		return err
	}

	v := getViewer(c.Request().Context())
	if !visibility.ProjectVisible(project, owner, v) {
		return engagement.ErrNotVisible
	}

	ctx := c.Request().Context()

	// Chronological transformation story: posts oldest first, queried through
	// the visibility scope and still re-checked row by row.
	var posts []*models.PhasePost
	if err := s.db.WithContext(ctx).Model(&models.PhasePost{}).
		Scopes(visibility.PostScope(v)).
		Where("phase_posts.project_id = ?", project.ID).
		Order("phase_posts.created_at asc").
		Find(&posts).Error; err != nil {
		return err
	}
	visiblePosts := make([]*models.PhasePost, 0, len(posts))
	for _, post := range posts {
		if visibility.Visible(post, project, owner, v) {
			visiblePosts = append(visiblePosts, post)
		}
	}

	var comments []models.ProjectComment
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", project.ID).
		Order("created_at desc").
		Find(&comments).Error; err != nil {
		return err
	}

	commentViews := make([]commentView, 0, len(comments))
	for _, comment := range comments {
		var author models.Account
		if err := s.db.WithContext(ctx).First(&author, "id = ?", comment.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		commentViews = append(commentViews, commentView{
			ID:        comment.ID,
			Content:   comment.Content,
			Author:    newAccountView(&author),
			CreatedAt: comment.CreatedAt,
		})
	}

	likeCount, err := s.counter.LikeCount(ctx, engagement.KindProject, project.ID)
	if err != nil {
		return err
	}
	commentCount, err := s.counter.CommentCount(ctx, engagement.KindProject, project.ID)
	if err != nil {
		return err
	}

	detail := projectDetail{
		Project:      project,
		Owner:        newAccountView(owner),
		Posts:        visiblePosts,
		Comments:     commentViews,
		LikeCount:    likeCount,
		CommentCount: commentCount,
	}

	if v.Authenticated {
		liked, err := s.counter.Liked(ctx, v.AccountID, engagement.KindProject, project.ID)
		if err != nil {
			return err
		}
		detail.ViewerLiked = &liked
	}

	return c.JSON(http.StatusOK, detail)
}

type updateProjectRequest struct {
	Public *bool `json:"public" validate:"required"`
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}
	if _, err := s.gate.CheckWriter(c.Request().Context(), v.AccountID); err != nil {
		return err
	}

	project, _, err := s.lookupProject(c, "id")
	if err != nil {
		return err
	}
	if project.OwnerID != v.AccountID {
		return ErrNotOwner
	}

	var req updateProjectRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := s.db.WithContext(c.Request().Context()).
		Model(&models.Project{}).
		Where("id = ?", project.ID).
		Update("public", *req.Public).Error; err != nil {
		return err
	}
	project.Public = *req.Public

	return c.JSON(http.StatusOK, map[string]any{"project": project})
}

type createPostRequest struct {
	ProjectID   uint     `json:"projectId" validate:"required"`
	Type        string   `json:"phaseType" validate:"required"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Public      *bool    `json:"public"`
}

func (s *Server) handleCreatePost(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	account, err := s.gate.CheckWriter(ctx, v.AccountID)
	if err != nil {
		return err
	}

	var req createPostRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	if project.OwnerID != account.ID {
		return ErrNotOwner
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	post, err := phases.CreatePost(ctx, s.db, &project, phases.CreatePostRequest{
		Type:        models.PhaseType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Images:      req.Images,
		Public:      public,
	})
	if err != nil {
		return err
	}

	phasePostsCreated.WithLabelValues(string(post.Type)).Inc()

	return c.JSON(http.StatusCreated, map[string]any{"post": post})
}

func (s *Server) lookupOwnedPost(c echo.Context, v visibility.Viewer) (*models.PhasePost, error) {
	var id uint
	if err := echo.PathParamsBinder(c).Uint("id", &id).BindError(); err != nil {
		return nil, ErrPostNotFound
	}

	ctx := c.Request().Context()

	var post models.PhasePost
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", post.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if project.OwnerID != v.AccountID {
		return nil, ErrNotOwner
	}

	return &post, nil
}

type updatePostRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Images      *[]string `json:"images"`
	Public      *bool     `json:"public"`
}

func (s *Server) handleUpdatePost(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}
	if _, err := s.gate.CheckWriter(c.Request().Context(), v.AccountID); err != nil {
		return err
	}

	post, err := s.lookupOwnedPost(c, v)
	if err != nil {
		return err
	}

	var req updatePostRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
		post.Title = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
		post.Description = *req.Description
	}
	if req.Images != nil {
		post.Images = *req.Images
	}
	if req.Public != nil {
		updates["public"] = *req.Public
		post.Public = *req.Public
	}

	ctx := c.Request().Context()
	if req.Images != nil {
		// Serialized column; easiest done through Save of the full model.
		if err := s.db.WithContext(ctx).Save(post).Error; err != nil {
			return err
		}
	} else if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.PhasePost{}).
			Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"post": post})
}

func (s *Server) handleDeletePost(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}
	if _, err := s.gate.CheckWriter(c.Request().Context(), v.AccountID); err != nil {
		return err
	}

	post, err := s.lookupOwnedPost(c, v)
	if err != nil {
		return err
	}

	// Deletion is outside the lifecycle contract: the project's current
	// phase is intentionally not revalidated or regressed.
	if err := s.db.WithContext(c.Request().Context()).Delete(post).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"deleted": post.ID})
}

func phaseFilterParam(c echo.Context) (*models.PhaseType, error) {
	raw := c.QueryParam("phase")
	if raw == "" {
		return nil, nil
	}
	phase := models.PhaseType(raw)
	if !phase.Valid() {
		return nil, phases.ErrInvalidPhaseType
	}
	return &phase, nil
}

func (s *Server) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	v := getViewer(ctx)

	if raw := c.QueryParam("project"); raw != "" {
		var id uint
		if err := echo.QueryParamsBinder(c).Uint("project", &id).BindError(); err != nil {
			return ErrProjectNotFound
		}
		newestFirst := c.QueryParam("order") != "asc"
		items, err := s.composer.ProjectFeed(ctx, v, id, newestFirst)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"items": items})
	}

	phase, err := phaseFilterParam(c)
	if err != nil {
		return err
	}

	switch mode := c.QueryParam("mode"); mode {
	case "", "all-projects":
		items, err := s.composer.LatestPerProject(ctx, v, phase)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"items": items})
	case "all-posts":
		items, err := s.composer.AllPosts(ctx, v, phase)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"items": items})
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown feed mode %q", mode))
	}
}

type likeRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=project post"`
	TargetID uint   `json:"targetId" validate:"required"`
}

func (s *Server) handleToggleLike(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}

	var req likeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	state, err := s.counter.ToggleLike(c.Request().Context(), v.AccountID, engagement.TargetKind(req.Kind), req.TargetID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, state)
}

type commentRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=project post"`
	TargetID uint   `json:"targetId" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

func (s *Server) handleAddComment(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := s.counter.AddComment(c.Request().Context(), v.AccountID, engagement.TargetKind(req.Kind), req.TargetID, req.Content)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{"comment": comment})
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

func (s *Server) handleAdminSetStatus(c echo.Context) error {
	admin, err := s.getAccount(c)
	if err != nil {
		return err
	}

	var id uint
	if err := echo.PathParamsBinder(c).Uint("id", &id).BindError(); err != nil {
		return moderation.ErrAccountNotFound
	}

	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	account, err := s.gate.SetStatus(c.Request().Context(), admin, id, models.ApprovalStatus(req.Status), req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"account": newAccountView(account)})
}

func (s *Server) requireAdmin(c echo.Context) (*models.Account, error) {
	account, err := s.getAccount(c)
	if err != nil {
		return nil, err
	}
	if !account.IsAdmin {
		return nil, moderation.ErrNotAdmin
	}
	return account, nil
}

func (s *Server) handleAdminListAccounts(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}

	var accounts []models.Account
	if err := s.db.WithContext(c.Request().Context()).
		Order("CASE WHEN status = 'PENDING' THEN 0 ELSE 1 END, created_at DESC").
		Find(&accounts).Error; err != nil {
		return err
	}

	views := make([]accountView, 0, len(accounts))
	for i := range accounts {
		view := newAccountView(&accounts[i])
		view.Email = accounts[i].Email
		views = append(views, view)
	}

	return c.JSON(http.StatusOK, map[string]any{"accounts": views})
}

func (s *Server) handleAdminStats(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}

	ctx := c.Request().Context()
	db := s.db.WithContext(ctx)

	stats := map[string]int64{}
	for _, status := range []models.ApprovalStatus{models.StatusPending, models.StatusApproved, models.StatusRejected, models.StatusSuspended} {
		var n int64
		if err := db.Model(&models.Account{}).Where("status = ?", status).Count(&n).Error; err != nil {
			return err
		}
		stats["accounts_"+string(status)] = n
	}

	counts := []struct {
		name string
		mdl  any
	}{
		{"projects", &models.Project{}},
		{"posts", &models.PhasePost{}},
		{"applications", &models.RemakerApplication{}},
		{"moderation_actions", &models.ModerationAction{}},
	}
	for _, ct := range counts {
		var n int64
		if err := db.Model(ct.mdl).Count(&n).Error; err != nil {
			return err
		}
		stats[ct.name] = n
	}

	return c.JSON(http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleUpload(c echo.Context) error {
	v, err := requireViewer(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := s.gate.CheckWriter(ctx, v.AccountID); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ref, err := s.blobs.Put(ctx, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}

	url, err := s.blobs.URL(ctx, ref)
	if err != nil {
		return err
	}

	blobsUploaded.Inc()

	return c.JSON(http.StatusCreated, map[string]any{"ref": ref, "url": url})
}

func (s *Server) handleResolveImage(c echo.Context) error {
	ref := c.Param("ref")
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ref is required")
	}

	url, err := s.blobs.URL(c.Request().Context(), ref)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no such image")
	}

	return c.Redirect(http.StatusFound, url)
}
