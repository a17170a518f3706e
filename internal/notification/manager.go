package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/database"
)

// ConfigStore provides the stored notification channels
type ConfigStore interface {
	GetEnabledNotificationConfigs() ([]database.NotificationConfig, error)
	GetNotificationConfigByName(name string) (*database.NotificationConfig, error)
}

// Manager builds channel-specific messages and sends them to every enabled
// channel that subscribed to the event
type Manager struct {
	store  ConfigStore
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a new notification manager
func NewManager(store ConfigStore, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// NotifyJobFailure alerts channels with notify_on_failure set
func (m *Manager) NotifyJobFailure(ctx context.Context, event *JobEvent) []NotificationResult {
	return m.dispatch(ctx, "job failure",
		func(c *database.NotificationConfig) bool { return c.NotifyOnFailure },
		func(ch NotificationChannel) *Message { return NewJobFailureMessage(ch, event) },
	)
}

// NotifyJobRecovery informs channels with notify_on_recovery set
func (m *Manager) NotifyJobRecovery(ctx context.Context, event *JobEvent) []NotificationResult {
	return m.dispatch(ctx, "job recovery",
		func(c *database.NotificationConfig) bool { return c.NotifyOnRecovery },
		func(ch NotificationChannel) *Message { return NewJobRecoveryMessage(ch, event) },
	)
}

// NotifyArchive reports an archive run. Failures go to failure subscribers and
// successes to recovery subscribers.
func (m *Manager) NotifyArchive(ctx context.Context, event *ArchiveEvent) []NotificationResult {
	if event.ErrorMessage != "" {
		return m.dispatch(ctx, "archive failure",
			func(c *database.NotificationConfig) bool { return c.NotifyOnFailure },
			func(ch NotificationChannel) *Message { return NewArchiveFailureMessage(ch, event) },
		)
	}
	return m.dispatch(ctx, "archive success",
		func(c *database.NotificationConfig) bool { return c.NotifyOnRecovery },
		func(ch NotificationChannel) *Message { return NewArchiveSuccessMessage(ch, event) },
	)
}

func (m *Manager) dispatch(
	ctx context.Context,
	kind string,
	subscribed func(*database.NotificationConfig) bool,
	build func(NotificationChannel) *Message,
) []NotificationResult {
	configs, err := m.store.GetEnabledNotificationConfigs()
	if err != nil {
		m.logger.Error("Failed to get notification configs", zap.Error(err))
		return nil
	}

	var results []NotificationResult
	for i := range configs {
		config := &configs[i]
		if !subscribed(config) {
			continue
		}

		notifier, err := CreateNotifier(config)
		if err != nil {
			m.logger.Warn("Failed to create notifier", zap.String("config", config.Name), zap.Error(err))
			continue
		}

		result := NotificationResult{
			ConfigName: config.Name,
			Channel:    notifier.GetChannelType(),
			SentAt:     m.now(),
		}
		if err := notifier.Send(ctx, build(notifier.GetChannelType())); err != nil {
			result.Error = err.Error()
			m.logger.Warn("Failed to send notification",
				zap.String("kind", kind),
				zap.String("channel", config.Channel),
				zap.String("config", config.Name),
				zap.Error(err))
		} else {
			result.Success = true
			m.logger.Info("Sent notification",
				zap.String("kind", kind),
				zap.String("channel", config.Channel),
				zap.String("config", config.Name))
		}
		results = append(results, result)
	}

	return results
}

// TestNotification sends a test notification to a specific channel
func (m *Manager) TestNotification(ctx context.Context, configName string) error {
	config, err := m.store.GetNotificationConfigByName(configName)
	if err != nil {
		return fmt.Errorf("failed to get notification config: %w", err)
	}

	notifier, err := CreateNotifier(config)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	message := &Message{
		Type:      MessageTypeInfo,
		Title:     "Test Notification",
		Text:      fmt.Sprintf("This is a test notification from the OpenClaw ops board via %s", config.Channel),
		Timestamp: m.now(),
		Fields: []Field{
			{Name: "Channel", Value: config.Channel},
			{Name: "Configuration", Value: configName},
		},
	}

	return notifier.Send(ctx, message)
}

// CreateNotifier builds the notifier for a stored channel configuration
func CreateNotifier(config *database.NotificationConfig) (Notifier, error) {
	switch NotificationChannel(config.Channel) {
	case ChannelChatwork:
		var cfg ChatworkConfig
		if err := decodeConfig(config.Config, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse Chatwork config: %w", err)
		}
		if cfg.APIToken == "" || cfg.RoomID == "" {
			return nil, fmt.Errorf("api_token and room_id are required for Chatwork")
		}
		return NewChatworkNotifier(cfg), nil

	case ChannelDiscord:
		var cfg DiscordConfig
		if err := decodeConfig(config.Config, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse Discord config: %w", err)
		}
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook_url is required for Discord")
		}
		return NewDiscordNotifier(cfg), nil

	case ChannelSlack:
		var cfg SlackConfig
		if err := decodeConfig(config.Config, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse Slack config: %w", err)
		}
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook_url is required for Slack")
		}
		return NewSlackNotifier(cfg), nil

	default:
		return nil, fmt.Errorf("unsupported notification channel: %s", config.Channel)
	}
}

// decodeConfig converts a stored config map into a typed struct
func decodeConfig(raw map[string]interface{}, v interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
