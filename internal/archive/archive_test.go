package archive

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/database"
	"github.com/vfa-khuongdv/opsboard/internal/notification"
	"github.com/vfa-khuongdv/opsboard/internal/source"
	"github.com/vfa-khuongdv/opsboard/pkg/gdrive"
	"github.com/vfa-khuongdv/opsboard/pkg/jobtable"
)

type fakeSource struct {
	jobs     []source.CronJob
	jobsErr  error
	state    *source.SystemState
	stateErr error
}

func (f *fakeSource) CronJobs(ctx context.Context) ([]source.CronJob, error) {
	return f.jobs, f.jobsErr
}

func (f *fakeSource) SystemState(ctx context.Context) (*source.SystemState, error) {
	return f.state, f.stateErr
}

// MockDrive is a mock implementation of Drive
type MockDrive struct {
	mock.Mock
}

func (m *MockDrive) GetOrCreateFolder(ctx context.Context, name, parentID string) (*gdrive.File, error) {
	args := m.Called(ctx, name, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gdrive.File), args.Error(1)
}

func (m *MockDrive) UploadFile(ctx context.Context, filePath, mimeType, folderID string) (*gdrive.UploadResult, error) {
	args := m.Called(ctx, filePath, mimeType, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gdrive.UploadResult), args.Error(1)
}

func (m *MockDrive) ListFiles(ctx context.Context, folderID string, maxResults int64) ([]gdrive.File, error) {
	args := m.Called(ctx, folderID, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gdrive.File), args.Error(1)
}

func (m *MockDrive) DeleteFile(ctx context.Context, fileID string) error {
	return m.Called(ctx, fileID).Error(0)
}

type recordingNotifier struct {
	events []*notification.ArchiveEvent
}

func (r *recordingNotifier) NotifyArchive(ctx context.Context, event *notification.ArchiveEvent) []notification.NotificationResult {
	r.events = append(r.events, event)
	return nil
}

type ArchiverTestSuite struct {
	suite.Suite
	db       *database.Service
	src      *fakeSource
	drive    *MockDrive
	notifier *recordingNotifier
	archiver *Archiver
	tempDir  string
	now      time.Time
}

func (suite *ArchiverTestSuite) SetupTest() {
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	suite.Require().NoError(err)
	suite.db = db

	suite.now = time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC)
	suite.tempDir = suite.T().TempDir()
	suite.src = &fakeSource{
		jobs: []source.CronJob{{JobRecord: jobtable.JobRecord{ID: "job-1", Name: "OpenClaw Backup", Status: "ok"}}},
		state: &source.SystemState{
			Servers: []source.ServerStatus{{Name: "Dashboard Server", Status: "up", Port: 18787}},
		},
	}
	suite.drive = &MockDrive{}
	suite.notifier = &recordingNotifier{}
	suite.archiver = New(config.ArchiveConfig{
		FolderName: "Snapshots",
		TempDir:    suite.tempDir,
		Keep:       2,
	}, suite.src, suite.drive, suite.db, suite.notifier, zap.NewNop(), WithClock(func() time.Time { return suite.now }))
}

func (suite *ArchiverTestSuite) TearDownTest() {
	suite.db.Close()
}

func TestArchiverTestSuite(t *testing.T) {
	suite.Run(t, new(ArchiverTestSuite))
}

func (suite *ArchiverTestSuite) TestFileName() {
	local := time.Date(2026, 1, 10, 12, 30, 5, 0, time.FixedZone("PST", -8*3600))
	suite.Equal("opsboard_snapshot_20260110_203005.json", FileName(local))
}

func (suite *ArchiverTestSuite) TestWriteSnapshot() {
	path, err := suite.archiver.WriteSnapshot(context.Background())
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.tempDir, "opsboard_snapshot_20260110_030000.json"), path)

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var snap Snapshot
	suite.Require().NoError(json.Unmarshal(data, &snap))
	suite.Require().Len(snap.CronJobs, 1)
	suite.Equal("job-1", snap.CronJobs[0].ID)
	suite.Equal("up", snap.SystemState.Servers[0].Status)
	suite.Empty(snap.Errors)
}

func (suite *ArchiverTestSuite) TestCollect_RecordsErrors() {
	suite.src.jobs = nil
	suite.src.jobsErr = errors.New("openclaw not found")

	snap := suite.archiver.Collect(context.Background())
	suite.NotNil(snap.CronJobs)
	suite.Empty(snap.CronJobs)
	suite.Equal([]string{"cron jobs: openclaw not found"}, snap.Errors)
}

func (suite *ArchiverTestSuite) TestRun_Success() {
	folder := &gdrive.File{ID: "folder-1", Name: "Snapshots"}
	suite.drive.On("GetOrCreateFolder", mock.Anything, "Snapshots", "").Return(folder, nil)
	suite.drive.On("UploadFile", mock.Anything, mock.AnythingOfType("string"), "application/json", "folder-1").
		Return(&gdrive.UploadResult{FileID: "file-9", FileName: "opsboard_snapshot_20260110_030000.json", Size: 321, WebViewLink: "https://drive/file-9"}, nil)
	suite.drive.On("ListFiles", mock.Anything, "folder-1", int64(0)).Return([]gdrive.File{
		{ID: "file-9", Name: "opsboard_snapshot_20260110_030000.json"},
		{ID: "notes", Name: "README.txt"},
		{ID: "file-8", Name: "opsboard_snapshot_20260109_030000.json"},
		{ID: "file-7", Name: "opsboard_snapshot_20260108_030000.json"},
		{ID: "file-6", Name: "opsboard_snapshot_20260107_030000.json"},
	}, nil)
	suite.drive.On("DeleteFile", mock.Anything, "file-7").Return(nil)
	suite.drive.On("DeleteFile", mock.Anything, "file-6").Return(errors.New("forbidden"))

	history, err := suite.archiver.Run(context.Background())
	suite.Require().NoError(err)
	suite.Equal(StatusSuccess, history.Status)
	suite.Equal("file-9", history.FileID)
	suite.Equal(int64(321), history.FileSize)
	suite.NotNil(history.CompletedAt)

	stored, err := suite.db.GetArchiveHistory(10, 0)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	suite.Equal(StatusSuccess, stored[0].Status)
	suite.Equal("file-9", stored[0].FileID)

	suite.Require().Len(suite.notifier.events, 1)
	suite.Empty(suite.notifier.events[0].ErrorMessage)
	suite.Equal("https://drive/file-9", suite.notifier.events[0].WebViewLink)

	entries, err := os.ReadDir(suite.tempDir)
	suite.Require().NoError(err)
	suite.Empty(entries, "temporary snapshot is removed")

	suite.drive.AssertExpectations(suite.T())
	suite.drive.AssertNotCalled(suite.T(), "DeleteFile", mock.Anything, "notes")
}

func (suite *ArchiverTestSuite) TestRun_UploadFails() {
	suite.drive.On("GetOrCreateFolder", mock.Anything, "Snapshots", "").Return(&gdrive.File{ID: "folder-1"}, nil)
	suite.drive.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	history, err := suite.archiver.Run(context.Background())
	suite.Error(err)
	suite.Contains(err.Error(), "failed to upload to Drive")
	suite.Equal(StatusFailed, history.Status)
	suite.Contains(history.ErrorMsg, "quota exceeded")
	suite.Greater(history.FileSize, int64(0))

	stored, err := suite.db.GetArchiveHistory(10, 0)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	suite.Equal(StatusFailed, stored[0].Status)

	suite.Require().Len(suite.notifier.events, 1)
	suite.Contains(suite.notifier.events[0].ErrorMessage, "quota exceeded")

	entries, err := os.ReadDir(suite.tempDir)
	suite.Require().NoError(err)
	suite.Empty(entries)

	suite.drive.AssertNotCalled(suite.T(), "ListFiles", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ArchiverTestSuite) TestRun_FolderFails() {
	suite.drive.On("GetOrCreateFolder", mock.Anything, "Snapshots", "").Return(nil, errors.New("no token"))

	history, err := suite.archiver.Run(context.Background())
	suite.Error(err)
	suite.Contains(err.Error(), "failed to get Drive folder")
	suite.Equal(StatusFailed, history.Status)
	suite.drive.AssertNotCalled(suite.T(), "UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ArchiverTestSuite) TestRun_KeepAll() {
	suite.archiver.cfg.Keep = 0
	suite.drive.On("GetOrCreateFolder", mock.Anything, "Snapshots", "").Return(&gdrive.File{ID: "folder-1"}, nil)
	suite.drive.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&gdrive.UploadResult{FileID: "file-1", FileName: "snap.json", Size: 10}, nil)

	_, err := suite.archiver.Run(context.Background())
	suite.NoError(err)
	suite.drive.AssertNotCalled(suite.T(), "ListFiles", mock.Anything, mock.Anything, mock.Anything)
}
