// Package opsboard wires the dashboard collectors, the job monitor, the
// snapshot archive and the HTTP API into one Manager.
package opsboard

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/archive"
	"github.com/vfa-khuongdv/opsboard/internal/auth"
	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/database"
	"github.com/vfa-khuongdv/opsboard/internal/notification"
	"github.com/vfa-khuongdv/opsboard/internal/runner"
	"github.com/vfa-khuongdv/opsboard/internal/scheduler"
	"github.com/vfa-khuongdv/opsboard/internal/server"
	"github.com/vfa-khuongdv/opsboard/internal/source"
	"github.com/vfa-khuongdv/opsboard/pkg/gdrive"
)

// Manager owns every long-lived service of the ops board
type Manager struct {
	config    *config.Config
	logger    *zap.Logger
	db        *database.Service
	workspace *source.Workspace
	auth      *auth.Service
	drive     *gdrive.Service
	notifier  *notification.Manager
	archiver  *archive.Archiver
	scheduler *scheduler.Service
	server    *server.Server

	startOnce sync.Once
	started   bool
}

type options struct {
	runner        runner.Runner
	sourceOptions []source.Option
	authOptions   []auth.Option
}

// Option customizes a Manager
type Option func(*options)

// WithRunner replaces the command runner used by the collectors
func WithRunner(r runner.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithSourceOptions passes options to the workspace collectors
func WithSourceOptions(opts ...source.Option) Option {
	return func(o *options) { o.sourceOptions = append(o.sourceOptions, opts...) }
}

// WithAuthOptions passes options to the Drive OAuth service
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *options) { o.authOptions = append(o.authOptions, opts...) }
}

// New opens the store and builds every service. Nothing runs until
// Initialize or Run is called.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{runner: runner.NewExecRunner(cfg.Commands.Timeout)}
	for _, opt := range opts {
		opt(o)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	workspace := source.NewWorkspace(cfg, o.runner, logger.Named("source"), o.sourceOptions...)
	notifier := notification.NewManager(db, logger.Named("notification"))
	authService := auth.NewService(cfg.Archive.OAuth, db, o.authOptions...)
	driveService := gdrive.NewService(authService)
	archiver := archive.New(cfg.Archive, workspace, driveService, db, notifier, logger.Named("archive"))
	schedulerService := scheduler.NewService(cfg, workspace, db, notifier, logger.Named("scheduler"),
		scheduler.WithArchiver(archiver))
	srv := server.New(cfg.Server, workspace, logger.Named("http"),
		server.WithHistory(db),
		server.WithScheduler(schedulerService))

	return &Manager{
		config:    cfg,
		logger:    logger,
		db:        db,
		workspace: workspace,
		auth:      authService,
		drive:     driveService,
		notifier:  notifier,
		archiver:  archiver,
		scheduler: schedulerService,
		server:    srv,
	}, nil
}

// Initialize syncs the configured notification channels and starts the
// scheduler. Calling it again is a no-op.
func (m *Manager) Initialize() error {
	var err error
	m.startOnce.Do(func() {
		m.logger.Info("Initializing ops board")

		if err = m.db.SyncNotificationConfigs(m.config.Notifications); err != nil {
			err = fmt.Errorf("failed to sync notification configs: %w", err)
			return
		}
		if err = m.scheduler.Start(); err != nil {
			err = fmt.Errorf("failed to start scheduler: %w", err)
			return
		}
		m.started = true
	})
	return err
}

// Run initializes the manager and serves the HTTP API until ctx is done
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Initialize(); err != nil {
		return err
	}
	return m.server.Run(ctx)
}

// Close stops the scheduler and closes the store
func (m *Manager) Close() error {
	m.logger.Info("Shutting down ops board")

	if m.started {
		m.scheduler.Stop()
	}
	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database service: %w", err)
	}
	return nil
}

// Handler returns the HTTP API handler
func (m *Manager) Handler() http.Handler {
	return m.server.Handler()
}

// Workspace returns the dashboard collectors
func (m *Manager) Workspace() *source.Workspace {
	return m.workspace
}

// Auth Methods

// GetAuthURL returns the OAuth2 authorization URL for Drive access
func (m *Manager) GetAuthURL() string {
	return m.auth.GetAuthURL()
}

// SetAuthCode exchanges the authorization code for tokens
func (m *Manager) SetAuthCode(ctx context.Context, authCode string) error {
	return m.auth.ExchangeToken(ctx, authCode)
}

// GetTokenInfo returns information about the stored Drive token
func (m *Manager) GetTokenInfo() *auth.TokenInfo {
	return m.auth.GetTokenInfo()
}

// Monitor and Archive Methods

// PollNow polls the job listing immediately
func (m *Manager) PollNow(ctx context.Context) (*scheduler.PollResult, error) {
	return m.scheduler.Poll(ctx)
}

// ArchiveNow uploads a dashboard snapshot immediately
func (m *Manager) ArchiveNow(ctx context.Context) (*database.ArchiveHistory, error) {
	return m.archiver.Run(ctx)
}

// GetArchiveHistory returns archive runs, newest first
func (m *Manager) GetArchiveHistory(limit, offset int) ([]database.ArchiveHistory, error) {
	return m.db.GetArchiveHistory(limit, offset)
}

// ListArchivedSnapshots lists the snapshots stored in the Drive folder
func (m *Manager) ListArchivedSnapshots(ctx context.Context, maxResults int64) ([]gdrive.File, error) {
	folder, err := m.drive.FindFolder(ctx, m.config.Archive.FolderName, "")
	if err != nil {
		return nil, fmt.Errorf("folder not found: %w", err)
	}
	return m.drive.ListFiles(ctx, folder.ID, maxResults)
}

// GetScheduledJobs returns information about currently scheduled jobs
func (m *Manager) GetScheduledJobs() []scheduler.JobInfo {
	return m.scheduler.GetScheduledJobs()
}

// GetNextRunTimes returns the next N run times for a cron expression
func (m *Manager) GetNextRunTimes(cronExpr string, count int) ([]time.Time, error) {
	return scheduler.GetNextRunTimes(cronExpr, count)
}

// Notification Methods

// GetNotificationConfigs returns all stored notification channels
func (m *Manager) GetNotificationConfigs() ([]database.NotificationConfig, error) {
	return m.db.GetNotificationConfigs()
}

// TestNotification sends a test notification to a specific channel
func (m *Manager) TestNotification(ctx context.Context, configName string) error {
	return m.notifier.TestNotification(ctx, configName)
}
