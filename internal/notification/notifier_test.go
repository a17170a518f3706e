package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() *Message {
	return &Message{
		Type:  MessageTypeError,
		Title: "Job Failed: backup",
		Text:  "Scheduled job backup reported status error",
		Fields: []Field{
			{Name: "Job ID", Value: "job-1"},
			{Name: "Last Run", Value: "5m"},
		},
		Timestamp: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	var payload SlackWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(SlackConfig{WebhookURL: server.URL, Channel: "#ops", Username: "opsboard"})
	require.NoError(t, notifier.Send(context.Background(), testMessage()))

	assert.Equal(t, "#ops", payload.Channel)
	assert.Equal(t, "opsboard", payload.Username)
	require.Len(t, payload.Attachments, 1)
	attachment := payload.Attachments[0]
	assert.Equal(t, "danger", attachment.Color)
	assert.Equal(t, "Job Failed: backup", attachment.Title)
	assert.Equal(t, footer, attachment.Footer)
	assert.Equal(t, int64(1768046400), attachment.Timestamp)
	assert.Equal(t, []SlackField{
		{Title: "Job ID", Value: "job-1", Short: true},
		{Title: "Last Run", Value: "5m", Short: true},
	}, attachment.Fields)
}

func TestSlackNotifier_SendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(SlackConfig{WebhookURL: server.URL})
	err := notifier.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, "slack webhook returned status 403", err.Error())
}

func TestSlackNotifier_SendInvalidURL(t *testing.T) {
	notifier := NewSlackNotifier(SlackConfig{WebhookURL: "://bad"})
	err := notifier.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create request")
}

func TestSlackNotifier_SendCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSlackNotifier(SlackConfig{WebhookURL: server.URL}).Send(ctx, testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send request")
}

func TestSlackColor(t *testing.T) {
	assert.Equal(t, "good", slackColor(MessageTypeSuccess))
	assert.Equal(t, "danger", slackColor(MessageTypeError))
	assert.Equal(t, "warning", slackColor(MessageTypeWarning))
	assert.Equal(t, "#36a64f", slackColor(MessageTypeInfo))
	assert.Equal(t, "#808080", slackColor("other"))
}

func TestDiscordNotifier_Send(t *testing.T) {
	var payload DiscordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL, Username: "opsboard"})
	require.NoError(t, notifier.Send(context.Background(), testMessage()))

	assert.Equal(t, "opsboard", payload.Username)
	require.Len(t, payload.Embeds, 1)
	embed := payload.Embeds[0]
	assert.Equal(t, 0xFF0000, embed.Color)
	assert.Equal(t, "2026-01-10T12:00:00Z", embed.Timestamp)
	assert.Equal(t, footer, embed.Footer.Text)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Job ID", embed.Fields[0].Name)
	assert.True(t, embed.Fields[0].Inline)
}

func TestDiscordNotifier_SendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL}).Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, "discord webhook returned status 400", err.Error())
}

func TestDiscordNotifier_GetChannelType(t *testing.T) {
	assert.Equal(t, ChannelDiscord, NewDiscordNotifier(DiscordConfig{}).GetChannelType())
	assert.Equal(t, ChannelSlack, NewSlackNotifier(SlackConfig{}).GetChannelType())
	assert.Equal(t, ChannelChatwork, NewChatworkNotifier(ChatworkConfig{}).GetChannelType())
}

func TestChatworkNotifier_Send(t *testing.T) {
	var (
		path  string
		token string
		form  url.Values
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		token = r.Header.Get("X-ChatWorkToken")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		form, err = url.ParseQuery(string(body))
		assert.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewChatworkNotifier(ChatworkConfig{APIToken: "secret", RoomID: "42", BaseURL: server.URL + "/"})
	require.NoError(t, notifier.Send(context.Background(), testMessage()))

	assert.Equal(t, "/rooms/42/messages", path)
	assert.Equal(t, "secret", token)
	assert.Equal(t, "0", form.Get("self_unread"))

	body := form.Get("body")
	assert.True(t, strings.HasPrefix(body, "[info][title]❌ Job Failed: backup[/title]\n"))
	assert.Contains(t, body, "⏰ Time: 2026-01-10 12:00:00")
	assert.Contains(t, body, "• Job ID: job-1\n• Last Run: 5m\n")
	assert.True(t, strings.HasSuffix(body, "[/info]"))
}

func TestChatworkNotifier_DefaultBaseURL(t *testing.T) {
	notifier := NewChatworkNotifier(ChatworkConfig{APIToken: "t", RoomID: "1"})
	assert.Equal(t, chatworkAPI, notifier.config.BaseURL)
}

func TestChatworkNotifier_SendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	notifier := NewChatworkNotifier(ChatworkConfig{APIToken: "bad", RoomID: "1", BaseURL: server.URL})
	err := notifier.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, "chatwork API returned status 401", err.Error())
}

func TestChatworkEmoji(t *testing.T) {
	assert.Equal(t, "✅", chatworkEmoji(MessageTypeSuccess))
	assert.Equal(t, "❌", chatworkEmoji(MessageTypeError))
	assert.Equal(t, "⚠️", chatworkEmoji(MessageTypeWarning))
	assert.Equal(t, "ℹ️", chatworkEmoji(MessageTypeInfo))
	assert.Equal(t, "📝", chatworkEmoji("other"))
}
