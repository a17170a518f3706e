package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vfa-khuongdv/opsboard/internal/config"
)

type Service struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates it
func Open(cfg *config.DatabaseConfig) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.MySQL.DSN()
		}
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
		}
	default:
		dsn := cfg.DSN
		if dsn == "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			dsn = cfg.Path
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// sqlite allows a single writer, and every :memory: connection is a
		// separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return NewWithDB(db)
}

// NewWithDB wraps an open gorm connection and migrates it
func NewWithDB(db *gorm.DB) (*Service, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Service{db: db}, nil
}

// GetDB returns the database instance
func (s *Service) GetDB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveTokenConfig saves or updates token configuration
func (s *Service) SaveTokenConfig(config *TokenConfig) error {
	var existing TokenConfig
	if err := s.db.First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.db.Create(config).Error
		}
		return err
	}

	config.ID = existing.ID
	config.CreatedAt = existing.CreatedAt
	return s.db.Save(config).Error
}

// GetTokenConfig retrieves the token configuration
func (s *Service) GetTokenConfig() (*TokenConfig, error) {
	var config TokenConfig
	if err := s.db.First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveSnapshots stores one poll worth of job rows
func (s *Service) SaveSnapshots(snapshots []JobSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return s.db.Create(&snapshots).Error
}

// LatestSnapshots returns the most recent snapshot of every job keyed by job ID
func (s *Service) LatestSnapshots() (map[string]JobSnapshot, error) {
	latest := s.db.Model(&JobSnapshot{}).Select("MAX(id)").Group("job_id")

	var snapshots []JobSnapshot
	if err := s.db.Where("id IN (?)", latest).Find(&snapshots).Error; err != nil {
		return nil, err
	}

	byJob := make(map[string]JobSnapshot, len(snapshots))
	for _, snap := range snapshots {
		byJob[snap.JobID] = snap
	}
	return byJob, nil
}

// GetSnapshotHistory returns the snapshots of a job, newest first
func (s *Service) GetSnapshotHistory(jobID string, limit int) ([]JobSnapshot, error) {
	var history []JobSnapshot
	err := s.db.Where("job_id = ?", jobID).Order("id DESC").Limit(limit).Find(&history).Error
	return history, err
}

// PruneSnapshots deletes snapshots polled before cutoff and returns how many
// were removed
func (s *Service) PruneSnapshots(cutoff time.Time) (int64, error) {
	result := s.db.Where("polled_at < ?", cutoff).Delete(&JobSnapshot{})
	return result.RowsAffected, result.Error
}

// SaveArchiveHistory saves archive history record
func (s *Service) SaveArchiveHistory(history *ArchiveHistory) error {
	return s.db.Create(history).Error
}

// UpdateArchiveHistory updates archive history record
func (s *Service) UpdateArchiveHistory(history *ArchiveHistory) error {
	return s.db.Save(history).Error
}

// GetArchiveHistory retrieves archive history with pagination
func (s *Service) GetArchiveHistory(limit, offset int) ([]ArchiveHistory, error) {
	var history []ArchiveHistory
	err := s.db.Order("id DESC").Limit(limit).Offset(offset).Find(&history).Error
	return history, err
}

// SaveNotificationConfig creates or updates a notification configuration by name
func (s *Service) SaveNotificationConfig(config *NotificationConfig) error {
	var existing NotificationConfig
	if err := s.db.Where("name = ?", config.Name).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.db.Create(config).Error
		}
		return err
	}

	config.ID = existing.ID
	config.CreatedAt = existing.CreatedAt
	return s.db.Save(config).Error
}

// SyncNotificationConfigs upserts the channels declared in the config file
func (s *Service) SyncNotificationConfigs(configs []config.NotificationConfig) error {
	for _, c := range configs {
		record := &NotificationConfig{
			Name:             c.Name,
			Channel:          c.Channel,
			Enabled:          c.Enabled,
			Config:           c.Config,
			NotifyOnFailure:  c.NotifyOnFailure,
			NotifyOnRecovery: c.NotifyOnRecovery,
		}
		if err := s.SaveNotificationConfig(record); err != nil {
			return fmt.Errorf("failed to save notification config %s: %w", c.Name, err)
		}
	}
	return nil
}

// GetNotificationConfigs retrieves all notification configurations
func (s *Service) GetNotificationConfigs() ([]NotificationConfig, error) {
	var configs []NotificationConfig
	err := s.db.Find(&configs).Error
	return configs, err
}

// GetEnabledNotificationConfigs retrieves enabled notification configurations
func (s *Service) GetEnabledNotificationConfigs() ([]NotificationConfig, error) {
	var configs []NotificationConfig
	err := s.db.Where("enabled = ?", true).Find(&configs).Error
	return configs, err
}

// GetNotificationConfigByName retrieves notification configuration by name
func (s *Service) GetNotificationConfigByName(name string) (*NotificationConfig, error) {
	var config NotificationConfig
	err := s.db.Where("name = ?", name).First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// DeleteNotificationConfig deletes notification configuration by name
func (s *Service) DeleteNotificationConfig(name string) error {
	return s.db.Where("name = ?", name).Delete(&NotificationConfig{}).Error
}
