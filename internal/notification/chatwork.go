package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const chatworkAPI = "https://api.chatwork.com/v2"

// ChatworkNotifier implements the Notifier interface for Chatwork
type ChatworkNotifier struct {
	config ChatworkConfig
}

// NewChatworkNotifier creates a new Chatwork notifier
func NewChatworkNotifier(config ChatworkConfig) *ChatworkNotifier {
	if config.BaseURL == "" {
		config.BaseURL = chatworkAPI
	}
	return &ChatworkNotifier{
		config: config,
	}
}

// Send posts a message to the Chatwork room
func (c *ChatworkNotifier) Send(ctx context.Context, message *Message) error {
	form := url.Values{}
	form.Set("body", c.formatMessage(message))
	form.Set("self_unread", "0")

	apiURL := fmt.Sprintf("%s/rooms/%s/messages", strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(c.config.RoomID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-ChatWorkToken", c.config.APIToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chatwork: failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chatwork API returned status %d", resp.StatusCode)
	}
	return nil
}

// GetChannelType returns the notification channel type
func (c *ChatworkNotifier) GetChannelType() NotificationChannel {
	return ChannelChatwork
}

// formatMessage renders a message with Chatwork's info/title/hr markup
func (c *ChatworkNotifier) formatMessage(message *Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[info][title]%s %s[/title]\n", chatworkEmoji(message.Type), message.Title)
	fmt.Fprintf(&b, "⏰ Time: %s\n", message.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteString("[hr]\n")

	if message.Text != "" {
		fmt.Fprintf(&b, "📝 %s\n", message.Text)
	}
	if len(message.Fields) > 0 {
		b.WriteString("\n📌 Details:\n")
		for _, f := range message.Fields {
			fmt.Fprintf(&b, "• %s: %s\n", f.Name, f.Value)
		}
	}

	b.WriteString("[hr]\n")
	b.WriteString(footer + "\n")
	b.WriteString("[/info]")

	return b.String()
}

func chatworkEmoji(msgType MessageType) string {
	switch msgType {
	case MessageTypeSuccess:
		return "✅"
	case MessageTypeError:
		return "❌"
	case MessageTypeWarning:
		return "⚠️"
	case MessageTypeInfo:
		return "ℹ️"
	default:
		return "📝"
	}
}
