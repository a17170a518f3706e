package gdrive

import "google.golang.org/api/drive/v3"

// File represents a simplified Google Drive file
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	CreatedTime string `json:"created_time"`
	WebViewLink string `json:"web_view_link"`
}

// UploadResult contains information about the uploaded file
type UploadResult struct {
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	WebViewLink string `json:"web_view_link"`
}

func fromDrive(f *drive.File) *File {
	return &File{
		ID:          f.Id,
		Name:        f.Name,
		Size:        f.Size,
		CreatedTime: f.CreatedTime,
		WebViewLink: f.WebViewLink,
	}
}
