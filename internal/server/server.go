package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "workhub/docs"
	"workhub/internal/audit"
	"workhub/internal/auth"
	"workhub/internal/config"
	"workhub/internal/database"
	"workhub/internal/handler"
	"workhub/internal/lock"
	"workhub/internal/middleware"
	"workhub/internal/notify"
	"workhub/internal/repository"
	"workhub/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config

	logger   *slog.Logger
	notifier *notify.Dispatcher
	closers  []func() error
}

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Users       *handler.UserHandler
	Workspaces  *handler.WorkspaceHandler
	Projects    *handler.ProjectHandler
	Sprints     *handler.SprintHandler
	Activities  *handler.ActivityHandler
	Invitations *handler.InvitationHandler
}

func Init(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if cfg.RunMigrations {
		if err := database.Migrate(cfg.MigrationURL(), logger); err != nil {
			return nil, err
		}
	}

	s := &Server{DB: db, Config: cfg, logger: logger}
	if sqlDB, err := db.DB(); err == nil {
		s.closers = append(s.closers, sqlDB.Close)
	}

	locker, err := s.newLocker()
	if err != nil {
		return nil, err
	}
	s.notifier = notify.NewDispatcher(s.newSender(), logger)

	repos := repository.New(db)
	deps := service.Deps{
		Repos:             repos,
		Locker:            locker,
		Audit:             audit.NewRecorder(repos.History, logger),
		Notifier:          s.notifier,
		Grants:            auth.NewGrantSigner([]byte(cfg.GrantSecret), time.Now),
		Logger:            logger,
		LockWait:          cfg.LockWait,
		DeleteParallelism: cfg.DeleteParallelism,
	}
	cascade := service.NewCascade(deps)

	s.Engine = NewRouter(Handlers{
		Users:       handler.NewUserHandler(service.NewUserService(deps), logger),
		Workspaces:  handler.NewWorkspaceHandler(service.NewWorkspaceService(deps), cascade, logger),
		Projects:    handler.NewProjectHandler(service.NewProjectService(deps), cascade, logger),
		Sprints:     handler.NewSprintHandler(service.NewScheduler(deps), logger),
		Activities:  handler.NewActivityHandler(service.NewActivityService(deps), logger),
		Invitations: handler.NewInvitationHandler(service.NewInvitationService(deps), logger),
	}, repos.Ping, cfg.JWTSecret)

	return s, nil
}

// newLocker picks the Redis lease store when REDIS_URL is set and the
// in-process one otherwise.
func (s *Server) newLocker() (lock.Locker, error) {
	if s.Config.RedisURL == "" {
		s.logger.Warn("REDIS_URL not set; using in-process locks (single instance only)")
		return lock.NewMemoryLocker(), nil
	}
	locker, err := lock.NewRedisLocker(s.Config.RedisURL, s.Config.LockTTL, s.logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, locker.Close)
	s.logger.Info("using redis locks")
	return locker, nil
}

func (s *Server) newSender() notify.Sender {
	if !s.Config.SMTPConfigured() {
		s.logger.Warn("SMTP not configured; notifications are written to the log")
		return notify.NewLogSender(s.logger)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     s.Config.SMTPHost,
		Port:     s.Config.SMTPPort,
		Username: s.Config.SMTPUsername,
		Password: s.Config.SMTPPassword,
		From:     s.Config.SMTPFrom,
		FromName: s.Config.SMTPFromName,
	})
}

// NewRouter mounts every route. Path parameters that share a position use
// the same name, which gin requires.
func NewRouter(h Handlers, health func(ctx context.Context) error, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(jwtSecret))
	{
		authorized.GET("/me", h.Users.Me)

		// Workspace routes
		authorized.POST("/workspaces", h.Workspaces.Create)
		authorized.GET("/workspaces", h.Workspaces.List)
		authorized.GET("/workspaces/:id", h.Workspaces.Get)
		authorized.PUT("/workspaces/:id", h.Workspaces.Update)
		authorized.DELETE("/workspaces/:id", h.Workspaces.Delete)
		authorized.POST("/workspaces/:id/transfer-ownership", h.Workspaces.TransferOwnership)
		authorized.PUT("/workspaces/:id/members/:userId", h.Workspaces.UpdateMemberRole)
		authorized.DELETE("/workspaces/:id/members/:userId", h.Workspaces.RemoveMember)
		authorized.POST("/workspaces/:id/leave", h.Workspaces.Leave)
		authorized.GET("/workspaces/:id/history", h.Workspaces.History)

		// Invitation and join request routes
		authorized.POST("/workspaces/:id/invite-member", h.Invitations.Invite)
		authorized.GET("/workspaces/:id/invitations", h.Invitations.ListInvitations)
		authorized.DELETE("/workspaces/:id/invitations/:invitationId", h.Invitations.RevokeInvite)
		authorized.POST("/workspaces/accept-invite-token", h.Invitations.AcceptInvite)
		authorized.POST("/workspaces/decline-invite-token", h.Invitations.DeclineInvite)
		authorized.POST("/workspaces/:id/join-request", h.Invitations.RequestJoin)
		authorized.GET("/workspaces/:id/join-requests", h.Invitations.ListJoinRequests)
		authorized.POST("/workspaces/:id/join-requests/:requestId/accept", h.Invitations.AcceptJoinRequest)
		authorized.POST("/workspaces/:id/join-requests/:requestId/reject", h.Invitations.RejectJoinRequest)
		authorized.POST("/workspaces/accept-join-request-token", h.Invitations.AcceptJoinRequestToken)
		authorized.POST("/workspaces/reject-join-request-token", h.Invitations.RejectJoinRequestToken)

		// Project routes; create-project takes the workspace id
		authorized.POST("/projects/:id/create-project", h.Projects.Create)
		authorized.GET("/projects/:id", h.Projects.Get)
		authorized.PUT("/projects/:id", h.Projects.Update)
		authorized.POST("/projects/:id/members", h.Projects.AddMember)
		authorized.DELETE("/projects/:id/members/:userId", h.Projects.RemoveMember)
		authorized.GET("/projects/:id/backlog/activities", h.Projects.Backlog)
		authorized.POST("/projects/:id/backlog/activities", h.Activities.Create)
		authorized.POST("/projects/:id/backlog/return-activity/:activityId", h.Sprints.ReturnActivity)
		authorized.DELETE("/projects/:id/backlog/delete-project", h.Projects.Delete)

		// Sprint routes; create-sprint takes the project id
		authorized.POST("/sprints/:id/backlog/create-sprint", h.Sprints.Create)
		authorized.GET("/sprints/:id", h.Sprints.Get)
		authorized.PUT("/sprints/:id", h.Sprints.Start)
		authorized.POST("/sprints/:id/add-activity/:activityId", h.Sprints.AddActivity)
		authorized.POST("/sprints/:id/achieved", h.Sprints.Archive)
		authorized.POST("/sprints/:id/finished", h.Sprints.Finish)

		// Activity routes
		authorized.GET("/activities/:id", h.Activities.Get)
		authorized.PUT("/activities/:id", h.Activities.Update)
		authorized.DELETE("/activities/:id", h.Activities.Delete)
		authorized.POST("/activities/:id/archive", h.Activities.ToggleArchive)
		authorized.POST("/activities/:id/subtasks", h.Activities.AddSubtask)
		authorized.PUT("/activities/:id/subtasks/:index", h.Activities.ToggleSubtask)
		authorized.POST("/activities/:id/comments", h.Activities.AddComment)
		authorized.DELETE("/activities/:id/comments/:commentId", h.Activities.DeleteComment)
	}
	return r
}

// Run serves until SIGINT or SIGTERM, then drains requests and pending
// notifications.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              ":" + s.Config.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("server running", "port", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-quit:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("forced shutdown", "error", err)
	}
	s.notifier.Wait()
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}

	s.logger.Info("server exited properly")
	return nil
}
