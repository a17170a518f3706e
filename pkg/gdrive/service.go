// Package gdrive wraps the Google Drive v3 API calls used to archive
// dashboard snapshots.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// ErrFolderNotFound is returned by FindFolder when no folder matches
var ErrFolderNotFound = errors.New("folder not found")

// ClientProvider returns an HTTP client authorized for Drive
type ClientProvider interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}

// Service handles Google Drive operations
type Service struct {
	auth ClientProvider
	opts []option.ClientOption
}

// NewService creates a new Google Drive service. Extra client options are
// passed to every drive.NewService call.
func NewService(auth ClientProvider, opts ...option.ClientOption) *Service {
	return &Service{
		auth: auth,
		opts: opts,
	}
}

func (s *Service) newDrive(ctx context.Context) (*drive.Service, error) {
	client, err := s.auth.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, s.opts...)
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return driveService, nil
}

// UploadFile uploads a local file, optionally into folderID
func (s *Service) UploadFile(ctx context.Context, filePath, mimeType, folderID string) (*UploadResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	driveService, err := s.newDrive(ctx)
	if err != nil {
		return nil, err
	}

	driveFile := &drive.File{
		Name:        filepath.Base(filePath),
		Description: "OpenClaw dashboard snapshot",
	}
	if folderID != "" {
		driveFile.Parents = []string{folderID}
	}

	res, err := driveService.Files.Create(driveFile).
		Media(file, googleapi.ContentType(mimeType)).
		Fields("id,name,webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to drive: %w", err)
	}

	return &UploadResult{
		FileID:      res.Id,
		FileName:    res.Name,
		Size:        fileInfo.Size(),
		WebViewLink: res.WebViewLink,
	}, nil
}

// CreateFolder creates a folder, optionally inside parentID
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (*File, error) {
	driveService, err := s.newDrive(ctx)
	if err != nil {
		return nil, err
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	res, err := driveService.Files.Create(folder).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return fromDrive(res), nil
}

// FindFolder finds a folder by name. It returns ErrFolderNotFound when there
// is none.
func (s *Service) FindFolder(ctx context.Context, name, parentID string) (*File, error) {
	driveService, err := s.newDrive(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		query = fmt.Sprintf("%s and '%s' in parents", query, escapeQuery(parentID))
	}

	res, err := driveService.Files.List().Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search for folder: %w", err)
	}
	if len(res.Files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, name)
	}
	return fromDrive(res.Files[0]), nil
}

// GetOrCreateFolder gets an existing folder or creates a new one
func (s *Service) GetOrCreateFolder(ctx context.Context, name, parentID string) (*File, error) {
	folder, err := s.FindFolder(ctx, name, parentID)
	if err == nil {
		return folder, nil
	}
	if !errors.Is(err, ErrFolderNotFound) {
		return nil, err
	}
	return s.CreateFolder(ctx, name, parentID)
}

// ListFiles lists the files of a folder, newest first. A positive maxResults
// returns at most one page of that size; otherwise every page is read.
func (s *Service) ListFiles(ctx context.Context, folderID string, maxResults int64) ([]File, error) {
	driveService, err := s.newDrive(ctx)
	if err != nil {
		return nil, err
	}

	call := driveService.Files.List().
		Fields("nextPageToken", "files(id,name,size,createdTime,webViewLink)").
		OrderBy("createdTime desc")
	if folderID != "" {
		call = call.Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID)))
	}

	files := make([]File, 0)
	collect := func(res *drive.FileList) error {
		for _, f := range res.Files {
			files = append(files, *fromDrive(f))
		}
		return nil
	}

	if maxResults > 0 {
		res, err := call.PageSize(maxResults).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		collect(res)
		return files, nil
	}

	if err := call.Pages(ctx, collect); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// DeleteFile deletes a file from Google Drive
func (s *Service) DeleteFile(ctx context.Context, fileID string) error {
	driveService, err := s.newDrive(ctx)
	if err != nil {
		return err
	}

	if err := driveService.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
