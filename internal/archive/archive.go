// Package archive exports dashboard snapshots to Google Drive.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/database"
	"github.com/vfa-khuongdv/opsboard/internal/notification"
	"github.com/vfa-khuongdv/opsboard/internal/source"
	"github.com/vfa-khuongdv/opsboard/pkg/gdrive"
)

const (
	snapshotMimeType = "application/json"
	filePrefix       = "opsboard_snapshot_"
	fileTimeFormat   = "20060102_150405"

	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// Source provides the dashboard data written into a snapshot
type Source interface {
	CronJobs(ctx context.Context) ([]source.CronJob, error)
	SystemState(ctx context.Context) (*source.SystemState, error)
}

// Drive is the subset of gdrive.Service used by the archiver
type Drive interface {
	GetOrCreateFolder(ctx context.Context, name, parentID string) (*gdrive.File, error)
	UploadFile(ctx context.Context, filePath, mimeType, folderID string) (*gdrive.UploadResult, error)
	ListFiles(ctx context.Context, folderID string, maxResults int64) ([]gdrive.File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// HistoryStore records archive runs
type HistoryStore interface {
	SaveArchiveHistory(history *database.ArchiveHistory) error
	UpdateArchiveHistory(history *database.ArchiveHistory) error
}

// Notifier reports finished archive runs
type Notifier interface {
	NotifyArchive(ctx context.Context, event *notification.ArchiveEvent) []notification.NotificationResult
}

// Snapshot is the JSON document uploaded to Drive
type Snapshot struct {
	GeneratedAt time.Time           `json:"generatedAt"`
	CronJobs    []source.CronJob    `json:"cronJobs"`
	SystemState *source.SystemState `json:"systemState,omitempty"`
	Errors      []string            `json:"errors,omitempty"`
}

// Archiver writes snapshots and uploads them
type Archiver struct {
	cfg      config.ArchiveConfig
	source   Source
	drive    Drive
	store    HistoryStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes an Archiver
type Option func(*Archiver)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// New creates an archiver. An empty TempDir falls back to a directory under
// os.TempDir.
func New(cfg config.ArchiveConfig, src Source, drive Drive, store HistoryStore, notifier Notifier, logger *zap.Logger, opts ...Option) *Archiver {
	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "opsboard-snapshots")
	}
	a := &Archiver{
		cfg:      cfg,
		source:   src,
		drive:    drive,
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FileName returns the snapshot file name for t
func FileName(t time.Time) string {
	return fmt.Sprintf("%s%s.json", filePrefix, t.UTC().Format(fileTimeFormat))
}

// Collect gathers a snapshot. Collector errors are recorded in the snapshot
// instead of failing it.
func (a *Archiver) Collect(ctx context.Context) *Snapshot {
	snap := &Snapshot{GeneratedAt: a.now().UTC()}

	jobs, err := a.source.CronJobs(ctx)
	if err != nil {
		snap.Errors = append(snap.Errors, fmt.Sprintf("cron jobs: %v", err))
	}
	snap.CronJobs = jobs
	if snap.CronJobs == nil {
		snap.CronJobs = []source.CronJob{}
	}

	state, err := a.source.SystemState(ctx)
	if err != nil {
		snap.Errors = append(snap.Errors, fmt.Sprintf("system state: %v", err))
	}
	snap.SystemState = state

	return snap
}

// WriteSnapshot collects a snapshot and writes it into the temp directory
func (a *Archiver) WriteSnapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(a.cfg.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	snap := a.Collect(ctx)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(a.cfg.TempDir, FileName(snap.GeneratedAt))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// Run writes a snapshot, uploads it to the configured Drive folder and
// records the outcome. The returned history is never nil once the run was
// recorded.
func (a *Archiver) Run(ctx context.Context) (*database.ArchiveHistory, error) {
	started := a.now()
	history := &database.ArchiveHistory{
		FileName:  FileName(started),
		Status:    StatusInProgress,
		StartedAt: started,
	}
	if err := a.store.SaveArchiveHistory(history); err != nil {
		return nil, fmt.Errorf("failed to save archive history: %w", err)
	}

	a.logger.Info("Starting snapshot archive", zap.String("file", history.FileName))

	path, err := a.WriteSnapshot(ctx)
	if err != nil {
		return history, a.fail(ctx, history, "", err)
	}
	defer a.cleanup(path)
	history.FileName = filepath.Base(path)

	folder, err := a.drive.GetOrCreateFolder(ctx, a.cfg.FolderName, "")
	if err != nil {
		return history, a.fail(ctx, history, path, fmt.Errorf("failed to get Drive folder: %w", err))
	}

	result, err := a.drive.UploadFile(ctx, path, snapshotMimeType, folder.ID)
	if err != nil {
		return history, a.fail(ctx, history, path, fmt.Errorf("failed to upload to Drive: %w", err))
	}

	completed := a.now()
	history.Status = StatusSuccess
	history.FileName = result.FileName
	history.FileID = result.FileID
	history.FileSize = result.Size
	history.CompletedAt = &completed
	if err := a.store.UpdateArchiveHistory(history); err != nil {
		a.logger.Warn("Failed to update archive history", zap.Error(err))
	}

	a.notifier.NotifyArchive(ctx, &notification.ArchiveEvent{
		FileName:    result.FileName,
		FileID:      result.FileID,
		FileSize:    result.Size,
		WebViewLink: result.WebViewLink,
		StartedAt:   started,
		CompletedAt: completed,
	})

	a.logger.Info("Snapshot archived",
		zap.String("file", result.FileName),
		zap.String("file_id", result.FileID),
		zap.Int64("size", result.Size))

	a.prune(ctx, folder.ID)
	return history, nil
}

// fail records a failed run and notifies failure subscribers
func (a *Archiver) fail(ctx context.Context, history *database.ArchiveHistory, path string, cause error) error {
	completed := a.now()
	history.Status = StatusFailed
	history.ErrorMsg = cause.Error()
	history.CompletedAt = &completed
	if path != "" {
		if info, err := os.Stat(path); err == nil {
			history.FileSize = info.Size()
		}
	}

	if err := a.store.UpdateArchiveHistory(history); err != nil {
		a.logger.Warn("Failed to update archive history", zap.Error(err))
	}

	a.notifier.NotifyArchive(ctx, &notification.ArchiveEvent{
		FileName:     history.FileName,
		FileSize:     history.FileSize,
		ErrorMessage: cause.Error(),
		StartedAt:    history.StartedAt,
		CompletedAt:  completed,
	})

	a.logger.Error("Snapshot archive failed", zap.String("file", history.FileName), zap.Error(cause))
	return cause
}

// prune deletes the oldest snapshots beyond cfg.Keep. Other files in the
// folder are left alone.
func (a *Archiver) prune(ctx context.Context, folderID string) {
	if a.cfg.Keep <= 0 {
		return
	}

	files, err := a.drive.ListFiles(ctx, folderID, 0)
	if err != nil {
		a.logger.Warn("Failed to list archived snapshots", zap.Error(err))
		return
	}

	snapshots := make([]gdrive.File, 0, len(files))
	for _, f := range files {
		if strings.HasPrefix(f.Name, filePrefix) {
			snapshots = append(snapshots, f)
		}
	}
	if len(snapshots) <= a.cfg.Keep {
		return
	}

	for _, f := range snapshots[a.cfg.Keep:] {
		if err := a.drive.DeleteFile(ctx, f.ID); err != nil {
			a.logger.Warn("Failed to delete old snapshot", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		a.logger.Debug("Deleted old snapshot", zap.String("file", f.Name))
	}
}

func (a *Archiver) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		a.logger.Warn("Failed to remove temporary file", zap.String("path", path), zap.Error(err))
	}
}
