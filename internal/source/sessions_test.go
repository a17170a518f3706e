package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSessions(t *testing.T, root string) {
	t.Helper()
	ms := func(d time.Duration) int64 { return fixedNow.Add(-d).UnixMilli() }

	writeFile(t, filepath.Join(root, "sessions.json"), fmt.Sprintf(`{
		"agent:main:main": {"updatedAt": %d, "abortedLastRun": false, "lastInput": "hello there"},
		"agent:main:telegram:group:-100": {"updatedAt": %d, "abortedLastRun": false, "lastMessage": "group chat"},
		"agent:main:cron:abc:run:xyz": {"updatedAt": %d},
		"agent:main:subagent:1": {"updatedAt": %d, "lastMessage": "%s"}
	}`, ms(time.Minute), ms(2*time.Hour), ms(72*time.Hour), ms(30*time.Second), strings.Repeat("x", 100)))
}

func TestSessions(t *testing.T) {
	cfg := testConfig(t)
	writeSessions(t, cfg.Workspace.Root)
	w := newTestWorkspace(t, cfg, newFakeRunner())

	sessions, err := w.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 4)

	sub := sessions[0]
	assert.Equal(t, "agent:main:subagent:1", sub.ID)
	assert.Equal(t, "Subagent", sub.Type)
	assert.Equal(t, "just now", sub.Status)
	assert.Equal(t, strings.Repeat("x", 60), sub.Message)

	main := sessions[1]
	assert.Equal(t, "Main", main.Type)
	assert.Equal(t, "Main Session", main.Name)
	assert.Equal(t, "Active", main.Status)
	assert.Equal(t, "hello there", main.Message)
	assert.Equal(t, "11:59 AM", main.Time)

	group := sessions[2]
	assert.Equal(t, "Telegram Group", group.Type)
	assert.Equal(t, "2h ago", group.Status)

	cron := sessions[3]
	assert.Equal(t, "Cron", cron.Type)
	assert.Equal(t, "Cron Job Run", cron.Name)
	assert.Equal(t, "3d ago", cron.Status)
	assert.Equal(t, "No recent messages", cron.Message)
}

func TestSessions_MissingFile(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), newFakeRunner())

	sessions, err := w.Sessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestSessions_Limit(t *testing.T) {
	cfg := testConfig(t)
	var entries []string
	for i := 0; i < 25; i++ {
		entries = append(entries, fmt.Sprintf(`"session:%02d": {"updatedAt": %d}`, i, fixedNow.Add(-time.Duration(i)*time.Hour).UnixMilli()))
	}
	writeFile(t, filepath.Join(cfg.Workspace.Root, "sessions.json"), "{"+strings.Join(entries, ",")+"}")
	w := newTestWorkspace(t, cfg, newFakeRunner())

	sessions, err := w.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 20)
	assert.Equal(t, "session:00", sessions[0].ID)
	assert.Equal(t, "session:19", sessions[19].ID)
	assert.Equal(t, "unknown", sessions[0].Type)
}

func TestRecentActivity(t *testing.T) {
	cfg := testConfig(t)
	writeSessions(t, cfg.Workspace.Root)
	w := newTestWorkspace(t, cfg, newFakeRunner())

	activity, err := w.RecentActivity(context.Background())
	require.NoError(t, err)
	require.Len(t, activity, 3)

	assert.Equal(t, "agent:main:subagent:1", activity[0].ID)
	assert.Equal(t, strings.Repeat("x", 80), activity[0].LastMessage)
	assert.Equal(t, "agent:main:main", activity[1].ID)
	assert.Equal(t, "agent:main:telegram:group:-100", activity[2].ID)
	assert.Equal(t, "group chat", activity[2].LastMessage)
}

func TestAgents(t *testing.T) {
	cfg := testConfig(t)
	writeSessions(t, cfg.Workspace.Root)
	r := newFakeRunner().on(cronListCmd, "header\n"+jobRow("job-1", "Morning Briefing   in 5h   1h ago ok"))
	w := newTestWorkspace(t, cfg, r)

	agents, err := w.Agents(context.Background())
	require.NoError(t, err)

	require.Len(t, agents.Agents, 1)
	assert.Equal(t, "Legion", agents.Agents[0].Name)
	assert.Equal(t, "active", agents.Agents[0].Status)
	assert.Equal(t, "🦂", agents.Agents[0].Persona.Emoji)
	assert.Equal(t, 4, agents.SessionCount)
	require.Len(t, agents.Crons, 1)
	assert.Equal(t, "Morning Briefing", agents.Crons[0].Name)
}

func TestAgents_NoSources(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), newFakeRunner())

	agents, err := w.Agents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, agents.SessionCount)
	assert.NotNil(t, agents.Crons)
	assert.Empty(t, agents.Crons)
}

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{59 * time.Minute, "59m ago"},
		{3 * time.Hour, "3h ago"},
		{49 * time.Hour, "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTimeAgo(fixedNow, fixedNow.Add(-tt.ago).UnixMilli()))
		})
	}
}
