// Package platform is the HTTP surface of the remake platform: an echo
// server wiring the moderation gate, phase lifecycle, visibility-aware feeds
// and engagement counters to JSON endpoints.
package platform

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/gorm"

	"github.com/prieelo/prieelo/blobstore"
	"github.com/prieelo/prieelo/engagement"
	"github.com/prieelo/prieelo/feed"
	"github.com/prieelo/prieelo/models"
	"github.com/prieelo/prieelo/moderation"
	"github.com/prieelo/prieelo/notifs"
)

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrPostNotFound      = errors.New("post not found")
	ErrNotOwner          = errors.New("not the owner of this content")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

type Server struct {
	db       *gorm.DB
	gate     *moderation.Gate
	counter  *engagement.Counter
	composer *feed.Composer
	blobs    blobstore.Store
	notifier notifs.Notifier
	echo     *echo.Echo

	jwtSigningKey []byte

	log *slog.Logger
}

// serverListenerBootTimeout is how long to wait for the requested server
// socket to become available for use.
const serverListenerBootTimeout = 5 * time.Second

func NewServer(db *gorm.DB, blobs blobstore.Store, notifier notifs.Notifier, jwtkey []byte) (*Server, error) {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.PasswordReset{},
		&models.RemakerApplication{},
		&models.Project{},
		&models.PhasePost{},
		&models.ProjectLike{},
		&models.PostLike{},
		&models.ProjectComment{},
		&models.PostComment{},
		&models.ModerationAction{},
	); err != nil {
		return nil, err
	}

	if notifier == nil {
		notifier = notifs.NullNotifier{}
	}
	if blobs == nil {
		blobs = blobstore.NewMemoryStore()
	}

	gate := moderation.NewGate(db, notifier)
	counter := engagement.NewCounter(db, gate)

	s := &Server{
		db:            db,
		gate:          gate,
		counter:       counter,
		composer:      feed.NewComposer(db, counter),
		blobs:         blobs,
		notifier:      notifier,
		jwtSigningKey: jwtkey,

		log: slog.Default().With("system", "platform"),
	}

	return s, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) RunAPI(addr string) error {
	var lc net.ListenConfig
	ctx, cancel := context.WithTimeout(context.Background(), serverListenerBootTimeout)
	defer cancel()

	li, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.RunAPIWithListener(li)
}

func (s *Server) RunAPIWithListener(listen net.Listener) error {
	e := echo.New()
	s.echo = e
	e.HideBanner = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(slogecho.New(s.log))
	e.Use(middleware.Recover())
	e.Use(s.viewerMiddleware)

	e.POST("/signup", s.handleSignup)
	e.POST("/login", s.handleLogin)
	e.POST("/forgot-password", s.handleForgotPassword)
	e.POST("/reset-password", s.handleResetPassword)
	e.POST("/applications", s.handleSubmitApplication)
	e.GET("/status", s.handleAccountStatus)
	e.PUT("/profile", s.handleUpdateProfile)
	e.POST("/change-password", s.handleChangePassword)

	e.POST("/projects", s.handleCreateProject)
	e.GET("/projects/:id", s.handleGetProject)
	e.PUT("/projects/:id", s.handleUpdateProject)

	e.POST("/posts", s.handleCreatePost)
	e.PUT("/posts/:id", s.handleUpdatePost)
	e.DELETE("/posts/:id", s.handleDeletePost)

	e.GET("/feed", s.handleFeed)
	e.POST("/likes", s.handleToggleLike)
	e.POST("/comments", s.handleAddComment)

	e.POST("/admin/accounts/:id/status", s.handleAdminSetStatus)
	e.GET("/admin/accounts", s.handleAdminListAccounts)
	e.GET("/admin/stats", s.handleAdminStats)

	e.POST("/upload", s.handleUpload)
	e.GET("/images/:ref", s.handleResolveImage)

	e.GET("/healthz", s.HandleHealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// In order to support booting on random ports in tests, we need to tell
	// the Echo instance it's already got a port, and then use its StartServer
	// method to re-use that listener.
	e.Listener = listen
	srv := &http.Server{}
	return e.StartServer(srv)
}

type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	if err := s.db.Exec("SELECT 1").Error; err != nil {
		s.log.Error("healthcheck can't connect to database", "err", err)
		return c.JSON(500, HealthStatus{Status: "error", Message: "can't connect to database"})
	}
	return c.JSON(200, HealthStatus{Status: "ok"})
}
