package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// SlackNotifier implements the Notifier interface for Slack
type SlackNotifier struct {
	config SlackConfig
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
	}
}

// SlackWebhookPayload represents the payload structure for Slack webhooks
type SlackWebhookPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents an attachment in Slack message
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in Slack attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Send posts a message to the Slack webhook
func (s *SlackNotifier) Send(ctx context.Context, message *Message) error {
	status, err := postJSON(ctx, s.config.WebhookURL, s.createPayload(message))
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", status)
	}
	return nil
}

// GetChannelType returns the notification channel type
func (s *SlackNotifier) GetChannelType() NotificationChannel {
	return ChannelSlack
}

func (s *SlackNotifier) createPayload(message *Message) *SlackWebhookPayload {
	attachment := SlackAttachment{
		Color:     slackColor(message.Type),
		Title:     message.Title,
		Text:      message.Text,
		Footer:    footer,
		Timestamp: message.Timestamp.Unix(),
	}
	for _, f := range message.Fields {
		attachment.Fields = append(attachment.Fields, SlackField{Title: f.Name, Value: f.Value, Short: true})
	}

	return &SlackWebhookPayload{
		Channel:     s.config.Channel,
		Username:    s.config.Username,
		IconEmoji:   s.config.IconEmoji,
		Attachments: []SlackAttachment{attachment},
	}
}

func slackColor(msgType MessageType) string {
	switch msgType {
	case MessageTypeSuccess:
		return "good"
	case MessageTypeError:
		return "danger"
	case MessageTypeWarning:
		return "warning"
	case MessageTypeInfo:
		return "#36a64f"
	default:
		return "#808080"
	}
}

// postJSON sends payload as a JSON POST and returns the response status
func postJSON(ctx context.Context, url string, payload interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
