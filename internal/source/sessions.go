package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxSessions     = 20
	maxActivity     = 5
	activeWindow    = 5 * time.Minute
	sessionMsgRunes = 60
	activityRunes   = 80
)

// sessionEntry is one value of sessions.json
type sessionEntry struct {
	UpdatedAt      int64  `json:"updatedAt"`
	AbortedLastRun *bool  `json:"abortedLastRun"`
	LastInput      string `json:"lastInput"`
	LastMessage    string `json:"lastMessage"`
}

// readSessions loads the first session file that exists. found is false when
// none do.
func (w *Workspace) readSessions() (map[string]sessionEntry, bool, error) {
	for _, path := range w.cfg.Workspace.SessionFiles {
		data := map[string]sessionEntry{}
		found, err := readJSONFile(path, &data)
		if err != nil {
			return nil, false, err
		}
		if found {
			return data, true, nil
		}
	}
	return nil, false, nil
}

// Sessions returns the most recently active sessions, newest first
func (w *Workspace) Sessions(ctx context.Context) ([]Session, error) {
	data, found, err := w.readSessions()
	if err != nil {
		return []Session{}, err
	}
	if !found {
		return []Session{}, nil
	}

	now := w.now()
	sessions := make([]Session, 0, len(data))
	for key, s := range data {
		kind, name := classifySession(key)

		updatedAt := s.UpdatedAt
		if updatedAt == 0 {
			updatedAt = now.UnixMilli()
		}

		status := formatTimeAgo(now, updatedAt)
		if s.AbortedLastRun != nil && !*s.AbortedLastRun && now.UnixMilli()-s.UpdatedAt < activeWindow.Milliseconds() {
			status = "Active"
		}

		sessions = append(sessions, Session{
			ID:         key,
			Name:       name,
			Type:       kind,
			Status:     status,
			Message:    sessionMessage(s, sessionMsgRunes, "No recent messages"),
			Time:       time.UnixMilli(updatedAt).In(now.Location()).Format("3:04 PM"),
			LastActive: s.UpdatedAt,
		})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].LastActive != sessions[j].LastActive {
			return sessions[i].LastActive > sessions[j].LastActive
		}
		return sessions[i].ID < sessions[j].ID
	})

	if len(sessions) > maxSessions {
		sessions = sessions[:maxSessions]
	}
	return sessions, nil
}

// RecentActivity returns the latest main-agent conversations, skipping cron
// runs
func (w *Workspace) RecentActivity(ctx context.Context) ([]Activity, error) {
	data, _, err := w.readSessions()
	if err != nil {
		return []Activity{}, err
	}

	activity := make([]Activity, 0)
	for key, s := range data {
		if !strings.HasPrefix(key, "agent:main:") || strings.Contains(key, ":cron:") || strings.Contains(key, ":run:") {
			continue
		}
		lastActive := s.UpdatedAt
		if lastActive == 0 {
			lastActive = w.nowMillis()
		}
		activity = append(activity, Activity{
			ID:          key,
			LastMessage: sessionMessage(s, activityRunes, "No messages"),
			LastActive:  lastActive,
		})
	}

	sort.SliceStable(activity, func(i, j int) bool {
		if activity[i].LastActive != activity[j].LastActive {
			return activity[i].LastActive > activity[j].LastActive
		}
		return activity[i].ID < activity[j].ID
	})

	if len(activity) > maxActivity {
		activity = activity[:maxActivity]
	}
	return activity, nil
}

// Agents returns the agent cards, the session count and the cron jobs
func (w *Workspace) Agents(ctx context.Context) (*Agents, error) {
	main := w.cfg.Workspace.MainAgent
	agents := &Agents{
		Agents: []Agent{{
			AgentConfig: main,
			Status:      "active",
			Persona:     w.personas.Lookup(main.Name),
		}},
		SessionCount: 1,
	}

	data, found, err := w.readSessions()
	if err != nil {
		w.logger.Warn("Failed to read sessions", zap.Error(err))
	}
	if found {
		agents.SessionCount = countSessions(data)
	}

	crons, err := w.CronJobs(ctx)
	if err != nil {
		w.logger.Warn("Failed to list cron jobs", zap.Error(err))
	}
	agents.Crons = crons

	return agents, nil
}

// countSessions counts agent and session keys, falling back to all keys
func countSessions(data map[string]sessionEntry) int {
	count := 0
	for key := range data {
		if strings.HasPrefix(key, "agent:") || strings.HasPrefix(key, "session:") {
			count++
		}
	}
	if count == 0 {
		count = len(data)
	}
	if count == 0 {
		count = 1
	}
	return count
}

// classifySession derives the session type and display name from its key
func classifySession(key string) (kind, name string) {
	switch {
	case strings.Contains(key, "telegram:group:"):
		return "Telegram Group", "Telegram Group"
	case strings.Contains(key, "telegram:"):
		return "Telegram", "Telegram"
	case strings.Contains(key, "cron:"):
		if strings.Contains(key, ":run:") {
			return "Cron", "Cron Job Run"
		}
		return "Cron", "Cron Job"
	case strings.Contains(key, "subagent:"):
		return "Subagent", "Subagent"
	case strings.HasPrefix(key, "agent:main:"):
		return "Main", "Main Session"
	default:
		return "unknown", key
	}
}

func sessionMessage(s sessionEntry, n int, fallback string) string {
	if s.LastInput != "" {
		return truncate(s.LastInput, n)
	}
	if s.LastMessage != "" {
		return truncate(s.LastMessage, n)
	}
	return fallback
}

// formatTimeAgo renders the age of a millisecond timestamp
func formatTimeAgo(now time.Time, millis int64) string {
	seconds := (now.UnixMilli() - millis) / 1000
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}
