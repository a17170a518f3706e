package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vfa-khuongdv/opsboard/pkg/jobtable"
)

// Config holds all opsboard configuration
type Config struct {
	// HTTP listener
	Server ServerConfig `yaml:"server"`

	// Local data sources polled by the dashboard
	Workspace WorkspaceConfig `yaml:"workspace"`

	// External commands and how their output is parsed
	Commands CommandsConfig `yaml:"commands"`

	// Store for job snapshots, OAuth tokens and notification channels
	Database DatabaseConfig `yaml:"database"`

	// Scheduled polling of the job listing
	Monitor MonitorConfig `yaml:"monitor"`

	// Scheduled snapshot export to Google Drive
	Archive ArchiveConfig `yaml:"archive"`

	// Channels alerted on job failures and recoveries
	Notifications []NotificationConfig `yaml:"notifications"`

	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WorkspaceConfig points at the files and repositories the dashboard reads
type WorkspaceConfig struct {
	Root         string        `yaml:"root"`
	SessionFiles []string      `yaml:"session_files"`
	Projects     []string      `yaml:"projects"`
	GitHubOwner  string        `yaml:"github_owner"`
	Servers      []ServerProbe `yaml:"servers"`
	MainAgent    AgentConfig   `yaml:"main_agent"`
}

// ServerProbe describes a local service shown on the system state card
type ServerProbe struct {
	Name string `yaml:"name" json:"name"`
	Host string `yaml:"host" json:"host,omitempty"`
	Port int    `yaml:"port" json:"port"`
	// Kind is "tcp" (default) or "mysql"
	Kind string `yaml:"kind" json:"kind,omitempty"`
	// DSN is used by mysql probes
	DSN string `yaml:"dsn" json:"-"`
}

// AgentConfig describes the main agent card
type AgentConfig struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Role  string `yaml:"role" json:"role"`
	Model string `yaml:"model" json:"model"`
	Level string `yaml:"level" json:"level"`
}

// CommandsConfig holds the external CLI invocations
type CommandsConfig struct {
	CronList       []string         `yaml:"cron_list"`
	ChannelsStatus []string         `yaml:"channels_status"`
	GitHub         string           `yaml:"github"`
	Git            string           `yaml:"git"`
	Timeout        time.Duration    `yaml:"timeout"`
	JobTable       jobtable.Options `yaml:"job_table"`
}

// DatabaseConfig selects the gorm driver. DSN overrides every other field
// when set.
type DatabaseConfig struct {
	Driver string      `yaml:"driver"` // sqlite, mysql
	DSN    string      `yaml:"dsn"`
	Path   string      `yaml:"path"`
	MySQL  MySQLConfig `yaml:"mysql"`
}

// MySQLConfig represents MySQL database configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MonitorConfig configures the job poller
type MonitorConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollSchedule string        `yaml:"poll_schedule"`
	Retention    time.Duration `yaml:"retention"`
}

// ArchiveConfig configures snapshot uploads to Google Drive
type ArchiveConfig struct {
	Enabled    bool        `yaml:"enabled"`
	Schedule   string      `yaml:"schedule"`
	FolderName string      `yaml:"folder_name"`
	TempDir    string      `yaml:"temp_dir"`
	Keep       int         `yaml:"keep"` // snapshots kept in the Drive folder, 0 keeps all
	OAuth      OAuthConfig `yaml:"oauth"`
}

// OAuthConfig holds Google OAuth2 client credentials
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// NotificationConfig describes one alert channel
type NotificationConfig struct {
	Name             string                 `yaml:"name"`
	Channel          string                 `yaml:"channel"`
	Config           map[string]interface{} `yaml:"config"`
	NotifyOnFailure  bool                   `yaml:"notify_on_failure"`
	NotifyOnRecovery bool                   `yaml:"notify_on_recovery"`
	Enabled          bool                   `yaml:"enabled"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// Default returns a configuration matching a stock OpenClaw install
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	openclaw := filepath.Join(home, ".openclaw")

	return &Config{
		Server: ServerConfig{
			Addr:            ":18787",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Workspace: WorkspaceConfig{
			Root: filepath.Join(openclaw, "workspace"),
			SessionFiles: []string{
				filepath.Join(openclaw, "agents", "main", "sessions", "sessions.json"),
				filepath.Join(openclaw, "agents", "config", "sessions", "sessions.json"),
			},
			Projects:    []string{"apexform", "hamono", "shootrebook", "stitchai"},
			GitHubOwner: "krobinsonca",
			Servers: []ServerProbe{
				{Name: "OpenClaw Gateway", Port: 18789},
				{Name: "Dashboard Server", Port: 18787},
				{Name: "Local LLM Server", Port: 1234},
			},
			MainAgent: AgentConfig{
				ID:    "main",
				Name:  "Legion",
				Role:  "Main Agent",
				Model: "minimax/minimax-m2.5",
				Level: "L3",
			},
		},
		Commands: CommandsConfig{
			CronList:       []string{"openclaw", "cron", "list"},
			ChannelsStatus: []string{"openclaw", "channels", "status", "--json"},
			GitHub:         "gh",
			Git:            "git",
			Timeout:        10 * time.Second,
			JobTable:       jobtable.DefaultOptions(),
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(openclaw, "opsboard.db"),
		},
		Monitor: MonitorConfig{
			Enabled:      true,
			PollSchedule: "0 */5 * * * *",
			Retention:    7 * 24 * time.Hour,
		},
		Archive: ArchiveConfig{
			Schedule:   "0 0 3 * * *",
			FolderName: "OpenClaw Dashboard Snapshots",
			Keep:       30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides fields from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENCLAW_WORKSPACE"); v != "" {
		c.Workspace.Root = v
	}
	if v := os.Getenv("OPSBOARD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("OPSBOARD_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace root is required")
	}
	if len(c.Commands.CronList) == 0 {
		return fmt.Errorf("cron list command is required")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Monitor.Enabled && c.Monitor.PollSchedule == "" {
		return fmt.Errorf("monitor poll schedule is required when monitor is enabled")
	}
	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	for _, n := range c.Notifications {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("notification %q: %w", n.Name, err)
		}
	}
	return nil
}

// Validate validates the database configuration
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.DSN == "" && c.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "mysql":
		if c.DSN == "" {
			return c.MySQL.Validate()
		}
	default:
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	}
	return nil
}

// Validate validates the MySQL configuration
func (c *MySQLConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// DSN returns the go-sql-driver connection string
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Validate validates the archive configuration
func (c *ArchiveConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Schedule == "" {
		return fmt.Errorf("schedule is required")
	}
	if c.Keep < 0 {
		return fmt.Errorf("keep must not be negative")
	}
	if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" || c.OAuth.RedirectURL == "" {
		return fmt.Errorf("OAuth configuration must include ClientID, ClientSecret, and RedirectURL")
	}
	return nil
}

// Validate validates a notification channel
func (c *NotificationConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch c.Channel {
	case "slack", "discord", "chatwork":
	default:
		return fmt.Errorf("unsupported channel: %s", c.Channel)
	}
	return nil
}
