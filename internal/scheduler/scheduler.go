package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/database"
	"github.com/vfa-khuongdv/opsboard/internal/notification"
	"github.com/vfa-khuongdv/opsboard/internal/source"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// JobSource lists the scheduler's jobs
type JobSource interface {
	CronJobs(ctx context.Context) ([]source.CronJob, error)
}

// SnapshotStore persists polled job rows
type SnapshotStore interface {
	SaveSnapshots(snapshots []database.JobSnapshot) error
	LatestSnapshots() (map[string]database.JobSnapshot, error)
	PruneSnapshots(cutoff time.Time) (int64, error)
}

// Alerter sends job status notifications
type Alerter interface {
	NotifyJobFailure(ctx context.Context, event *notification.JobEvent) []notification.NotificationResult
	NotifyJobRecovery(ctx context.Context, event *notification.JobEvent) []notification.NotificationResult
}

// Archiver uploads a dashboard snapshot
type Archiver interface {
	Run(ctx context.Context) (*database.ArchiveHistory, error)
}

type entry struct {
	id       cron.EntryID
	schedule string
}

// Service polls the job listing and runs snapshot archives on cron schedules
type Service struct {
	cron     *cron.Cron
	monitor  config.MonitorConfig
	archive  config.ArchiveConfig
	jobs     JobSource
	store    SnapshotStore
	alerts   Alerter
	archiver Archiver
	logger   *zap.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mutex   sync.RWMutex
	entries map[string]entry

	// serializes polls started by cron and by RunNow
	pollMu sync.Mutex
}

// Option customizes the scheduler
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithArchiver enables the archive job
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, jobs JobSource, store SnapshotStore, alerts Alerter, logger *zap.Logger, opts ...Option) *Service {
	cronLog := cronLogger{logger.Sugar()}
	s := &Service{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		monitor: cfg.Monitor,
		archive: cfg.Archive,
		jobs:    jobs,
		store:   store,
		alerts:  alerts,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the enabled jobs and starts the cron runner
func (s *Service) Start() error {
	if s.monitor.Enabled {
		if err := s.AddJob(JobPoll, s.monitor.PollSchedule); err != nil {
			return err
		}
	}
	if s.archive.Enabled && s.archiver != nil {
		if err := s.AddJob(JobArchive, s.archive.Schedule); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.GetScheduledJobs())))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// AddJob schedules a named job, replacing an existing entry of the same name
func (s *Service) AddJob(name, schedule string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if existing, ok := s.entries[name]; ok {
		s.cron.Remove(existing.id)
		delete(s.entries, name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(s.ctx, name); err != nil {
			s.logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job %q: %w", name, err)
	}

	s.entries[name] = entry{id: id, schedule: schedule}
	s.logger.Info("Added scheduled job", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// RemoveJob removes a scheduled job
func (s *Service) RemoveJob(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if existing, ok := s.entries[name]; ok {
		s.cron.Remove(existing.id)
		delete(s.entries, name)
		s.logger.Info("Removed scheduled job", zap.String("job", name))
	}
}

// GetScheduledJobs returns information about currently scheduled jobs,
// sorted by name
func (s *Service) GetScheduledJobs() []JobInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		cronEntry := s.cron.Entry(e.id)
		jobs = append(jobs, JobInfo{
			Name:     name,
			Schedule: e.schedule,
			EntryID:  e.id,
			Next:     cronEntry.Next,
			Previous: cronEntry.Prev,
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// RunNow runs a job synchronously
func (s *Service) RunNow(ctx context.Context, name string) error {
	switch name {
	case JobPoll:
		_, err := s.Poll(ctx)
		return err
	case JobArchive:
		if s.archiver == nil {
			return fmt.Errorf("archive is not configured")
		}
		_, err := s.archiver.Run(ctx)
		return err
	default:
		return fmt.Errorf("unknown job: %s", name)
	}
}

// Poll lists the jobs, stores a snapshot per job and alerts on status
// transitions against the previous snapshot. A job seen for the first time
// has no transition.
func (s *Service) Poll(ctx context.Context) (*PollResult, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	jobs, err := s.jobs.CronJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to poll cron jobs: %w", err)
	}

	previous, err := s.store.LatestSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to load previous snapshots: %w", err)
	}

	result := &PollResult{PolledAt: s.now(), Jobs: len(jobs)}
	snapshots := make([]database.JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, database.JobSnapshot{
			JobID:    job.ID,
			Name:     job.Name,
			Next:     job.Next,
			Last:     job.Last,
			Status:   job.Status,
			PolledAt: result.PolledAt,
		})

		prev, seen := previous[job.ID]
		if !seen {
			continue
		}
		event := notification.JobEvent{
			JobID:          job.ID,
			JobName:        job.Name,
			PreviousStatus: prev.Status,
			Status:         job.Status,
			Last:           job.Last,
			Next:           job.Next,
			DetectedAt:     result.PolledAt,
		}
		switch {
		case isStatus(job.Status, statusError) && !isStatus(prev.Status, statusError):
			result.Failures = append(result.Failures, event)
		case isStatus(prev.Status, statusError) && isStatus(job.Status, statusOK):
			result.Recoveries = append(result.Recoveries, event)
		}
	}

	if err := s.store.SaveSnapshots(snapshots); err != nil {
		return nil, fmt.Errorf("failed to save snapshots: %w", err)
	}

	for i := range result.Failures {
		s.logger.Warn("Job entered error state",
			zap.String("job_id", result.Failures[i].JobID),
			zap.String("name", result.Failures[i].JobName))
		s.alerts.NotifyJobFailure(ctx, &result.Failures[i])
	}
	for i := range result.Recoveries {
		s.logger.Info("Job recovered",
			zap.String("job_id", result.Recoveries[i].JobID),
			zap.String("name", result.Recoveries[i].JobName))
		s.alerts.NotifyJobRecovery(ctx, &result.Recoveries[i])
	}

	if s.monitor.Retention > 0 {
		pruned, err := s.store.PruneSnapshots(result.PolledAt.Add(-s.monitor.Retention))
		if err != nil {
			s.logger.Warn("Failed to prune snapshots", zap.Error(err))
		}
		result.Pruned = pruned
	}

	s.logger.Debug("Polled cron jobs",
		zap.Int("jobs", result.Jobs),
		zap.Int("failures", len(result.Failures)),
		zap.Int("recoveries", len(result.Recoveries)),
		zap.Int64("pruned", result.Pruned))
	return result, nil
}

func isStatus(status, want string) bool {
	return strings.EqualFold(strings.TrimSpace(status), want)
}

// ValidateCronExpression validates a cron expression
func ValidateCronExpression(expr string) error {
	_, err := parser.Parse(expr)
	return err
}

// GetNextRunTimes returns the next N run times for a cron expression
func GetNextRunTimes(cronExpr string, count int) ([]time.Time, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, 0, count)
	next := time.Now()
	for i := 0; i < count; i++ {
		next = schedule.Next(next)
		times = append(times, next)
	}

	return times, nil
}

// cronLogger routes robfig/cron logs to zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
