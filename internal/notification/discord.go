package notification

import (
	"context"
	"fmt"
	"time"
)

// DiscordNotifier implements the Notifier interface for Discord
type DiscordNotifier struct {
	config DiscordConfig
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
	}
}

// DiscordWebhookPayload represents the payload structure for Discord webhooks
type DiscordWebhookPayload struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents an embed in Discord message
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField represents a field in Discord embed
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordEmbedFooter represents footer in Discord embed
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// Send posts a message to the Discord webhook
func (d *DiscordNotifier) Send(ctx context.Context, message *Message) error {
	status, err := postJSON(ctx, d.config.WebhookURL, d.createPayload(message))
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	// Discord answers 204 No Content unless ?wait=true is set
	if status < 200 || status >= 300 {
		return fmt.Errorf("discord webhook returned status %d", status)
	}
	return nil
}

// GetChannelType returns the notification channel type
func (d *DiscordNotifier) GetChannelType() NotificationChannel {
	return ChannelDiscord
}

func (d *DiscordNotifier) createPayload(message *Message) *DiscordWebhookPayload {
	embed := DiscordEmbed{
		Title:       message.Title,
		Description: message.Text,
		Color:       discordColor(message.Type),
		Timestamp:   message.Timestamp.Format(time.RFC3339),
		Footer:      &DiscordEmbedFooter{Text: footer},
	}
	for _, f := range message.Fields {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}

	return &DiscordWebhookPayload{
		Username:  d.config.Username,
		AvatarURL: d.config.AvatarURL,
		Embeds:    []DiscordEmbed{embed},
	}
}

func discordColor(msgType MessageType) int {
	switch msgType {
	case MessageTypeSuccess:
		return 0x00FF00
	case MessageTypeError:
		return 0xFF0000
	case MessageTypeWarning:
		return 0xFFFF00
	default:
		return 0x0099FF
	}
}
