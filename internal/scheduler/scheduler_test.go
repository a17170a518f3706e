package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/database"
	"github.com/vfa-khuongdv/opsboard/internal/notification"
	"github.com/vfa-khuongdv/opsboard/internal/source"
	"github.com/vfa-khuongdv/opsboard/pkg/jobtable"
)

type fakeJobs struct {
	jobs []source.CronJob
	err  error
}

func (f *fakeJobs) CronJobs(ctx context.Context) ([]source.CronJob, error) {
	return f.jobs, f.err
}

func (f *fakeJobs) set(statuses ...string) {
	f.jobs = nil
	for i, status := range statuses {
		id := []string{"job-a", "job-b", "job-c"}[i]
		f.jobs = append(f.jobs, source.CronJob{JobRecord: jobtable.JobRecord{
			ID: id, Name: "Job " + id, Next: "in 5m", Last: "1m ago", Status: status,
		}})
	}
}

type recordingAlerter struct {
	failures   []notification.JobEvent
	recoveries []notification.JobEvent
}

func (r *recordingAlerter) NotifyJobFailure(ctx context.Context, event *notification.JobEvent) []notification.NotificationResult {
	r.failures = append(r.failures, *event)
	return nil
}

func (r *recordingAlerter) NotifyJobRecovery(ctx context.Context, event *notification.JobEvent) []notification.NotificationResult {
	r.recoveries = append(r.recoveries, *event)
	return nil
}

type fakeArchiver struct {
	runs int
	err  error
}

func (f *fakeArchiver) Run(ctx context.Context) (*database.ArchiveHistory, error) {
	f.runs++
	return &database.ArchiveHistory{Status: "success"}, f.err
}

type SchedulerTestSuite struct {
	suite.Suite
	db      *database.Service
	jobs    *fakeJobs
	alerts  *recordingAlerter
	cfg     *config.Config
	service *Service
	now     time.Time
}

func (suite *SchedulerTestSuite) SetupTest() {
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	suite.Require().NoError(err)
	suite.db = db

	suite.now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	suite.jobs = &fakeJobs{}
	suite.alerts = &recordingAlerter{}
	suite.cfg = config.Default()
	suite.cfg.Monitor.Retention = 24 * time.Hour
	suite.service = suite.newService()
}

func (suite *SchedulerTestSuite) newService(opts ...Option) *Service {
	opts = append(opts, WithClock(func() time.Time { return suite.now }))
	return NewService(suite.cfg, suite.jobs, suite.db, suite.alerts, zap.NewNop(), opts...)
}

func (suite *SchedulerTestSuite) TearDownTest() {
	suite.db.Close()
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (suite *SchedulerTestSuite) TestPoll_FirstSightingHasNoTransition() {
	suite.jobs.set("ok", "error")

	result, err := suite.service.Poll(context.Background())
	suite.Require().NoError(err)
	suite.Equal(2, result.Jobs)
	suite.Empty(result.Failures)
	suite.Empty(result.Recoveries)
	suite.Empty(suite.alerts.failures)

	latest, err := suite.db.LatestSnapshots()
	suite.Require().NoError(err)
	suite.Len(latest, 2)
	suite.Equal("error", latest["job-b"].Status)
}

func (suite *SchedulerTestSuite) TestPoll_FailureAndRecovery() {
	ctx := context.Background()

	suite.jobs.set("ok", "ok")
	_, err := suite.service.Poll(ctx)
	suite.Require().NoError(err)

	suite.now = suite.now.Add(5 * time.Minute)
	suite.jobs.set("error", "ok")
	result, err := suite.service.Poll(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(result.Failures, 1)
	suite.Equal("job-a", result.Failures[0].JobID)
	suite.Equal("ok", result.Failures[0].PreviousStatus)
	suite.Equal("error", result.Failures[0].Status)
	suite.Require().Len(suite.alerts.failures, 1)
	suite.Equal("Job job-a", suite.alerts.failures[0].JobName)

	// Still failing: no repeated alert
	suite.now = suite.now.Add(5 * time.Minute)
	result, err = suite.service.Poll(ctx)
	suite.Require().NoError(err)
	suite.Empty(result.Failures)
	suite.Len(suite.alerts.failures, 1)

	suite.now = suite.now.Add(5 * time.Minute)
	suite.jobs.set("ok", "ok")
	result, err = suite.service.Poll(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(result.Recoveries, 1)
	suite.Equal("job-a", result.Recoveries[0].JobID)
	suite.Len(suite.alerts.recoveries, 1)

	history, err := suite.db.GetSnapshotHistory("job-a", 10)
	suite.Require().NoError(err)
	suite.Len(history, 4)
	suite.Equal("ok", history[0].Status)
}

func (suite *SchedulerTestSuite) TestPoll_StatusCaseInsensitive() {
	suite.jobs.set("OK")
	_, err := suite.service.Poll(context.Background())
	suite.Require().NoError(err)

	suite.jobs.set("Error")
	result, err := suite.service.Poll(context.Background())
	suite.Require().NoError(err)
	suite.Len(result.Failures, 1)
}

func (suite *SchedulerTestSuite) TestPoll_IdleToOKIsNotRecovery() {
	suite.jobs.set("idle")
	_, err := suite.service.Poll(context.Background())
	suite.Require().NoError(err)

	suite.jobs.set("ok")
	result, err := suite.service.Poll(context.Background())
	suite.Require().NoError(err)
	suite.Empty(result.Recoveries)
}

func (suite *SchedulerTestSuite) TestPoll_CommandFailure() {
	suite.jobs.err = errors.New("exit status 1")

	result, err := suite.service.Poll(context.Background())
	suite.Error(err)
	suite.Nil(result)
	suite.Contains(err.Error(), "failed to poll cron jobs")

	latest, err := suite.db.LatestSnapshots()
	suite.Require().NoError(err)
	suite.Empty(latest)
}

func (suite *SchedulerTestSuite) TestPoll_PrunesOldSnapshots() {
	old := database.JobSnapshot{JobID: "job-old", Status: "ok", PolledAt: suite.now.Add(-48 * time.Hour)}
	suite.Require().NoError(suite.db.SaveSnapshots([]database.JobSnapshot{old}))

	suite.jobs.set("ok")
	result, err := suite.service.Poll(context.Background())
	suite.Require().NoError(err)
	suite.Equal(int64(1), result.Pruned)

	latest, err := suite.db.LatestSnapshots()
	suite.Require().NoError(err)
	suite.NotContains(latest, "job-old")
	suite.Contains(latest, "job-a")
}

func (suite *SchedulerTestSuite) TestRunNow() {
	ctx := context.Background()
	suite.jobs.set("ok")

	suite.NoError(suite.service.RunNow(ctx, JobPoll))

	err := suite.service.RunNow(ctx, JobArchive)
	suite.Error(err)
	suite.Contains(err.Error(), "archive is not configured")

	err = suite.service.RunNow(ctx, "reboot")
	suite.Error(err)
	suite.Equal("unknown job: reboot", err.Error())

	archiver := &fakeArchiver{err: errors.New("upload failed")}
	service := suite.newService(WithArchiver(archiver))
	suite.EqualError(service.RunNow(ctx, JobArchive), "upload failed")
	suite.Equal(1, archiver.runs)
}

func (suite *SchedulerTestSuite) TestStartStop() {
	suite.cfg.Archive.Enabled = true
	service := suite.newService(WithArchiver(&fakeArchiver{}))

	suite.Require().NoError(service.Start())
	defer service.Stop()

	jobs := service.GetScheduledJobs()
	suite.Require().Len(jobs, 2)
	suite.Equal(JobArchive, jobs[0].Name)
	suite.Equal("0 0 3 * * *", jobs[0].Schedule)
	suite.Equal(JobPoll, jobs[1].Name)
	suite.Equal("0 */5 * * * *", jobs[1].Schedule)
	suite.False(jobs[1].Next.IsZero())

	service.RemoveJob(JobArchive)
	suite.Len(service.GetScheduledJobs(), 1)
}

func (suite *SchedulerTestSuite) TestStart_MonitorDisabled() {
	suite.cfg.Monitor.Enabled = false
	service := suite.newService()

	suite.Require().NoError(service.Start())
	defer service.Stop()
	suite.Empty(service.GetScheduledJobs())
}

func (suite *SchedulerTestSuite) TestAddJob_InvalidSchedule() {
	err := suite.service.AddJob(JobPoll, "every five minutes")
	suite.Error(err)
	suite.Contains(err.Error(), "failed to add cron job")
	suite.Empty(suite.service.GetScheduledJobs())
}

func (suite *SchedulerTestSuite) TestAddJob_Replaces() {
	suite.Require().NoError(suite.service.AddJob(JobPoll, "0 */5 * * * *"))
	suite.Require().NoError(suite.service.AddJob(JobPoll, "0 */10 * * * *"))

	jobs := suite.service.GetScheduledJobs()
	suite.Require().Len(jobs, 1)
	suite.Equal("0 */10 * * * *", jobs[0].Schedule)
}

func TestValidateCronExpression(t *testing.T) {
	assert.NoError(t, ValidateCronExpression("0 */5 * * * *"))
	assert.NoError(t, ValidateCronExpression("@every 1h"))
	assert.Error(t, ValidateCronExpression("*/5 * * * *"), "seconds field is required")
	assert.Error(t, ValidateCronExpression("not a schedule"))
}

func TestGetNextRunTimes(t *testing.T) {
	times, err := GetNextRunTimes("@every 1h", 3)
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.True(t, times[0].After(time.Now()))
	assert.Equal(t, time.Hour, times[1].Sub(times[0]))
	assert.Equal(t, time.Hour, times[2].Sub(times[1]))

	_, err = GetNextRunTimes("bogus", 1)
	assert.Error(t, err)
}
