package notification

import (
	"context"
	"time"
)

// NotificationChannel represents the type of notification channel
type NotificationChannel string

const (
	ChannelChatwork NotificationChannel = "chatwork"
	ChannelDiscord  NotificationChannel = "discord"
	ChannelSlack    NotificationChannel = "slack"
)

// MessageType represents the type of notification message
type MessageType string

const (
	MessageTypeSuccess MessageType = "success"
	MessageTypeError   MessageType = "error"
	MessageTypeInfo    MessageType = "info"
	MessageTypeWarning MessageType = "warning"
)

const (
	userAgent = "OpsBoard/1.0"
	footer    = "OpenClaw Ops Board"
)

// Field is one labelled value of a message. Fields keep their order.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message represents a notification message to be sent
type Message struct {
	Type      MessageType `json:"type"`
	Title     string      `json:"title"`
	Text      string      `json:"text"`
	Fields    []Field     `json:"fields,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	JobID     string      `json:"job_id,omitempty"`
}

// JobEvent is a status transition of a scheduled job
type JobEvent struct {
	JobID          string    `json:"job_id"`
	JobName        string    `json:"job_name"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	Last           string    `json:"last,omitempty"`
	Next           string    `json:"next,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
}

// ArchiveEvent describes a finished snapshot upload
type ArchiveEvent struct {
	FileName     string    `json:"file_name"`
	FileID       string    `json:"file_id,omitempty"`
	FileSize     int64     `json:"file_size"`
	WebViewLink  string    `json:"web_view_link,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Notifier interface defines the methods that all notification implementations must provide
type Notifier interface {
	// Send delivers a message
	Send(ctx context.Context, message *Message) error

	// GetChannelType returns the notification channel type
	GetChannelType() NotificationChannel
}

// ChatworkConfig holds Chatwork-specific configuration
type ChatworkConfig struct {
	APIToken string `json:"api_token"`
	RoomID   string `json:"room_id"`
	BaseURL  string `json:"base_url,omitempty"`
}

// DiscordConfig holds Discord-specific configuration
type DiscordConfig struct {
	WebhookURL string `json:"webhook_url"`
	Username   string `json:"username,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// SlackConfig holds Slack-specific configuration
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
	IconEmoji  string `json:"icon_emoji,omitempty"`
}

// NotificationResult represents the result of sending a notification
type NotificationResult struct {
	ConfigName string              `json:"config_name"`
	Channel    NotificationChannel `json:"channel"`
	Success    bool                `json:"success"`
	Error      string              `json:"error,omitempty"`
	SentAt     time.Time           `json:"sent_at"`
}
