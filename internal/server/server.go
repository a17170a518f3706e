// Package server exposes the dashboard collectors as a JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/database"
	"github.com/vfa-khuongdv/opsboard/internal/scheduler"
	"github.com/vfa-khuongdv/opsboard/internal/server/apierror"
	"github.com/vfa-khuongdv/opsboard/internal/source"
)

// Dashboard provides the data behind every card
type Dashboard interface {
	Agents(ctx context.Context) (*source.Agents, error)
	CronJobs(ctx context.Context) ([]source.CronJob, error)
	CronHealth(ctx context.Context) (*source.CronHealth, error)
	Kanban(ctx context.Context) (*source.Kanban, error)
	Repos(ctx context.Context) ([]source.Repo, error)
	Comms(ctx context.Context) ([]source.Channel, error)
	Content(ctx context.Context) ([]source.ContentItem, error)
	Knowledge(ctx context.Context) ([]source.KnowledgeDoc, error)
	Reports(ctx context.Context) ([]source.Report, error)
	Revenue(ctx context.Context) (*source.Revenue, error)
	Sessions(ctx context.Context) ([]source.Session, error)
	RecentActivity(ctx context.Context) ([]source.Activity, error)
	SystemState(ctx context.Context) (*source.SystemState, error)
}

// HistoryStore serves stored job snapshots and archive runs
type HistoryStore interface {
	GetSnapshotHistory(jobID string, limit int) ([]database.JobSnapshot, error)
	GetArchiveHistory(limit, offset int) ([]database.ArchiveHistory, error)
}

// Scheduler lists and triggers the background jobs
type Scheduler interface {
	GetScheduledJobs() []scheduler.JobInfo
	RunNow(ctx context.Context, name string) error
}

// Server is the dashboard HTTP API
type Server struct {
	cfg       config.ServerConfig
	dashboard Dashboard
	history   HistoryStore
	scheduler Scheduler
	logger    *zap.Logger
	router    *mux.Router
	started   time.Time
	now       func() time.Time
}

// Option customizes the server
type Option func(*Server)

// WithHistory enables the history routes
func WithHistory(store HistoryStore) Option {
	return func(s *Server) { s.history = store }
}

// WithScheduler enables the scheduler routes
func WithScheduler(sched Scheduler) Option {
	return func(s *Server) { s.scheduler = sched }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates the server and registers its routes
func New(cfg config.ServerConfig, dashboard Dashboard, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		dashboard: dashboard,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.logRequests, s.recoverPanics)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/agents", s.handleAgents).Methods(http.MethodGet)
	api.HandleFunc("/cron-jobs", s.handleCronJobs).Methods(http.MethodGet)
	api.HandleFunc("/cron-health", s.handleCronHealth).Methods(http.MethodGet)
	api.HandleFunc("/kanban", s.handleKanban).Methods(http.MethodGet)
	api.HandleFunc("/code", s.handleCode).Methods(http.MethodGet)
	api.HandleFunc("/comms", s.handleComms).Methods(http.MethodGet)
	api.HandleFunc("/content", s.handleContent).Methods(http.MethodGet)
	api.HandleFunc("/knowledge", s.handleKnowledge).Methods(http.MethodGet)
	api.HandleFunc("/reports", s.handleReports).Methods(http.MethodGet)
	api.HandleFunc("/revenue", s.handleRevenue).Methods(http.MethodGet)
	api.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	api.HandleFunc("/activity", s.handleActivity).Methods(http.MethodGet)
	api.HandleFunc("/system-state", s.handleSystemState).Methods(http.MethodGet)

	if s.history != nil {
		api.HandleFunc("/history/{jobID}", s.handleJobHistory).Methods(http.MethodGet)
		api.HandleFunc("/archives", s.handleArchives).Methods(http.MethodGet)
	}
	if s.scheduler != nil {
		api.HandleFunc("/scheduler/jobs", s.handleScheduledJobs).Methods(http.MethodGet)
		api.HandleFunc("/scheduler/jobs/{name}/run", s.handleRunJob).Methods(http.MethodPost)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		apierror.New(http.StatusNotFound, "route not found").WithRequest(req).Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		apierror.FromStatus(http.StatusMethodNotAllowed).WithRequest(req).Write(w)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server forced to shutdown: %w", err)
	}
	return nil
}
