package notification

import (
	"fmt"
	"time"
)

// style holds the channel-specific decorations of a message
type style struct {
	bold       func(string) string
	link       func(url string) string
	failIcon   string
	okIcon     string
	fieldIcons bool
}

func styleFor(channel NotificationChannel) style {
	switch channel {
	case ChannelSlack:
		return style{
			bold:     func(s string) string { return "*" + s + "*" },
			link:     func(u string) string { return fmt.Sprintf("<%s|View File>", u) },
			failIcon: ":x: ",
			okIcon:   ":white_check_mark: ",
		}
	case ChannelDiscord:
		return style{
			bold:       func(s string) string { return "**" + s + "**" },
			link:       func(u string) string { return fmt.Sprintf("[View File](%s)", u) },
			failIcon:   "❌ ",
			okIcon:     "✅ ",
			fieldIcons: true,
		}
	default:
		return style{
			bold: func(s string) string { return s },
			link: func(u string) string { return u },
		}
	}
}

func (s style) field(icon, name, value string) Field {
	if s.fieldIcons {
		name = icon + " " + name
	}
	return Field{Name: name, Value: value}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func jobName(event *JobEvent) string {
	if event.JobName != "" {
		return event.JobName
	}
	return event.JobID
}

// NewJobFailureMessage builds the alert sent when a job starts failing
func NewJobFailureMessage(channel NotificationChannel, event *JobEvent) *Message {
	s := styleFor(channel)
	name := jobName(event)

	return &Message{
		Type:  MessageTypeError,
		Title: fmt.Sprintf("%sJob Failed: %s", s.failIcon, name),
		Text:  fmt.Sprintf("Scheduled job %s reported status %s", s.bold(name), s.bold(event.Status)),
		Fields: []Field{
			s.field("🆔", "Job ID", event.JobID),
			s.field("📉", "Previous Status", orDash(event.PreviousStatus)),
			s.field("⏮️", "Last Run", orDash(event.Last)),
			s.field("⏭️", "Next Run", orDash(event.Next)),
		},
		Timestamp: event.DetectedAt,
		JobID:     event.JobID,
	}
}

// NewJobRecoveryMessage builds the message sent when a failing job is ok again
func NewJobRecoveryMessage(channel NotificationChannel, event *JobEvent) *Message {
	s := styleFor(channel)
	name := jobName(event)

	return &Message{
		Type:  MessageTypeSuccess,
		Title: fmt.Sprintf("%sJob Recovered: %s", s.okIcon, name),
		Text:  fmt.Sprintf("Scheduled job %s is back to %s", s.bold(name), s.bold(event.Status)),
		Fields: []Field{
			s.field("🆔", "Job ID", event.JobID),
			s.field("⏮️", "Last Run", orDash(event.Last)),
			s.field("⏭️", "Next Run", orDash(event.Next)),
		},
		Timestamp: event.DetectedAt,
		JobID:     event.JobID,
	}
}

// NewArchiveFailureMessage builds the alert sent when a snapshot upload fails
func NewArchiveFailureMessage(channel NotificationChannel, event *ArchiveEvent) *Message {
	s := styleFor(channel)

	completedAt := event.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	return &Message{
		Type:  MessageTypeError,
		Title: fmt.Sprintf("%sSnapshot Archive Failed", s.failIcon),
		Text:  fmt.Sprintf("Uploading %s to Google Drive failed", s.bold(event.FileName)),
		Fields: []Field{
			s.field("⏱️", "Duration", completedAt.Sub(event.StartedAt).Round(time.Second).String()),
			s.field("❌", "Error", orDash(event.ErrorMessage)),
		},
		Timestamp: completedAt,
	}
}

// NewArchiveSuccessMessage builds the message sent after a snapshot upload
func NewArchiveSuccessMessage(channel NotificationChannel, event *ArchiveEvent) *Message {
	s := styleFor(channel)

	fields := []Field{
		s.field("📁", "File Name", event.FileName),
		s.field("📊", "File Size", formatFileSize(event.FileSize)),
		s.field("⏱️", "Duration", event.CompletedAt.Sub(event.StartedAt).Round(time.Second).String()),
	}
	if event.WebViewLink != "" {
		fields = append(fields, s.field("🔗", "Google Drive", s.link(event.WebViewLink)))
	}

	return &Message{
		Type:      MessageTypeSuccess,
		Title:     fmt.Sprintf("%sSnapshot Archived", s.okIcon),
		Text:      fmt.Sprintf("Dashboard snapshot %s uploaded to Google Drive", s.bold(event.FileName)),
		Fields:    fields,
		Timestamp: event.CompletedAt,
	}
}

// formatFileSize formats a file size in bytes to a human-readable string
func formatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
