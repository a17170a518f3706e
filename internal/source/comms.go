package source

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// defaultChannels is reported when the channel status command is unavailable
var defaultChannels = []Channel{
	{Name: "Telegram", Type: "T", Status: "connected", Count: 2, Label: "conversations"},
}

// channelStatus is one element of `openclaw channels status --json`
type channelStatus struct {
	Name          string `json:"name"`
	Channel       string `json:"channel"`
	Status        string `json:"status"`
	Connected     bool   `json:"connected"`
	Conversations int    `json:"conversations"`
	Sessions      int    `json:"sessions"`
}

// Comms returns the communication channels. Command or decoding failures fall
// back to the default channel list.
func (w *Workspace) Comms(ctx context.Context) ([]Channel, error) {
	argv := w.cfg.Commands.ChannelsStatus
	if len(argv) == 0 {
		return append([]Channel(nil), defaultChannels...), nil
	}

	output, err := w.runner.Run(ctx, "", argv[0], argv[1:]...)
	if err != nil {
		w.logger.Debug("Channel status unavailable", zap.Error(err))
		return append([]Channel(nil), defaultChannels...), nil
	}

	var raw json.RawMessage
	if err := json.Unmarshal(output, &raw); err != nil {
		w.logger.Debug("Channel status is not JSON", zap.Error(err))
		return append([]Channel(nil), defaultChannels...), nil
	}

	var statuses []channelStatus
	if err := json.Unmarshal(raw, &statuses); err != nil {
		// valid JSON that is not a list of channels
		return []Channel{}, nil
	}

	channels := make([]Channel, 0, len(statuses))
	for _, s := range statuses {
		channels = append(channels, toChannel(s))
	}
	return channels, nil
}

func toChannel(s channelStatus) Channel {
	ch := Channel{
		Name:   s.Name,
		Type:   "?",
		Status: "disconnected",
	}
	if ch.Name == "" {
		ch.Name = s.Channel
	}
	if ch.Name == "" {
		ch.Name = "Unknown"
	}
	if s.Channel != "" {
		ch.Type = strings.ToUpper(string([]rune(s.Channel)[:1]))
	}
	if s.Connected || s.Status == "connected" {
		ch.Status = "connected"
	}

	switch {
	case s.Conversations > 0:
		ch.Count, ch.Label = s.Conversations, "conversations"
	case s.Sessions > 0:
		ch.Count, ch.Label = s.Sessions, "sessions"
	}
	return ch
}
