package database

import (
	"time"

	"gorm.io/gorm"
)

// TokenConfig stores Google OAuth2 tokens for Drive API access
type TokenConfig struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	ClientID     string    `json:"client_id" gorm:"not null"`
	ClientSecret string    `json:"client_secret" gorm:"not null"`
	AccessToken  string    `json:"access_token" gorm:"not null"`
	RefreshToken string    `json:"refresh_token" gorm:"not null"`
	TokenType    string    `json:"token_type" gorm:"default:Bearer"`
	Expiry       time.Time `json:"expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// JobSnapshot is one job listing row captured by the monitor
type JobSnapshot struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	JobID     string    `json:"job_id" gorm:"not null;index"`
	Name      string    `json:"name"`
	Next      string    `json:"next"`
	Last      string    `json:"last"`
	Status    string    `json:"status"`
	PolledAt  time.Time `json:"polled_at" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

// ArchiveHistory keeps track of snapshot uploads
type ArchiveHistory struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	FileName    string     `json:"file_name" gorm:"not null"`
	FileID      string     `json:"file_id"`   // Google Drive file ID
	FileSize    int64      `json:"file_size"` // File size in bytes
	Status      string     `json:"status"`    // success, failed, in_progress
	ErrorMsg    string     `json:"error_msg"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NotificationConfig stores notification channel configurations
type NotificationConfig struct {
	ID               uint                   `json:"id" gorm:"primarykey"`
	Name             string                 `json:"name" gorm:"not null;unique"`
	Channel          string                 `json:"channel" gorm:"not null"`
	Enabled          bool                   `json:"enabled"`
	Config           map[string]interface{} `json:"config" gorm:"serializer:json"`
	NotifyOnFailure  bool                   `json:"notify_on_failure"`
	NotifyOnRecovery bool                   `json:"notify_on_recovery"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func (TokenConfig) TableName() string {
	return "opsboard_token_configs"
}

func (JobSnapshot) TableName() string {
	return "opsboard_job_snapshots"
}

func (ArchiveHistory) TableName() string {
	return "opsboard_archive_histories"
}

func (NotificationConfig) TableName() string {
	return "opsboard_notification_configs"
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&TokenConfig{},
		&JobSnapshot{},
		&ArchiveHistory{},
		&NotificationConfig{},
	)
}
