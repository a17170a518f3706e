package source

import (
	"encoding/json"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/pkg/jobtable"
	"github.com/vfa-khuongdv/opsboard/pkg/persona"
)

// CronJob is a parsed job listing row decorated with its persona
type CronJob struct {
	jobtable.JobRecord
	Persona persona.Persona `json:"persona"`
}

// HealthJob is one entry of state/crons.json
type HealthJob struct {
	Name              string `json:"name"`
	Schedule          string `json:"schedule"`
	Status            string `json:"status"`
	ConsecutiveErrors int    `json:"consecutiveErrors"`
}

// CronHealth is the cron health card
type CronHealth struct {
	Jobs        []HealthJob `json:"jobs"`
	LastUpdated int64       `json:"lastUpdated"`
}

// ServerStatus is one row of the system state card
type ServerStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"` // up, down
	Port      int    `json:"port"`
	LastCheck int64  `json:"lastCheck"`
}

// SystemState is the system state card
type SystemState struct {
	Servers      []ServerStatus  `json:"servers"`
	BranchStatus json.RawMessage `json:"branchStatus"`
	LastUpdated  int64           `json:"lastUpdated"`
}

// Revenue is the revenue card
type Revenue struct {
	Current     float64 `json:"current"`
	MonthlyBurn float64 `json:"monthlyBurn"`
	Net         float64 `json:"net"`
	LastUpdated int64   `json:"lastUpdated"`
}

// Session is one agent session
type Session struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Time       string `json:"time"`
	LastActive int64  `json:"lastActive"`
}

// Activity is a recent main-agent conversation
type Activity struct {
	ID          string `json:"id"`
	LastMessage string `json:"lastMessage"`
	LastActive  int64  `json:"lastActive"`
}

// Agent is an agent card
type Agent struct {
	config.AgentConfig
	Status  string          `json:"status"`
	Persona persona.Persona `json:"persona"`
}

// Agents is the fleet view
type Agents struct {
	Agents       []Agent   `json:"agents"`
	SessionCount int       `json:"sessionCount"`
	Crons        []CronJob `json:"crons"`
}

// Repo is the git state of a workspace project
type Repo struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Branch string `json:"branch"`
	Dirty  bool   `json:"dirty"`
}

// Issue is a kanban card: either a backlog idea or a GitHub issue
type Issue struct {
	Number   int      `json:"number,omitempty"`
	Title    string   `json:"title"`
	Labels   []string `json:"labels,omitempty"`
	Project  string   `json:"project,omitempty"`
	Owner    string   `json:"owner,omitempty"`
	Type     string   `json:"type,omitempty"` // idea, issue
	Status   string   `json:"status,omitempty"`
	Section  string   `json:"section,omitempty"`
	Added    string   `json:"added,omitempty"`
	Location string   `json:"location,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// KanbanColumns groups issues by progress
type KanbanColumns struct {
	Backlog    []Issue `json:"backlog"`
	InProgress []Issue `json:"in-progress"`
	Done       []Issue `json:"done"`
}

// Kanban is the kanban board
type Kanban struct {
	Issues  []Issue        `json:"issues"`
	Columns KanbanColumns  `json:"columns"`
	Stats   map[string]int `json:"stats"`
}

// Channel is a communication channel card
type Channel struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"` // connected, disconnected
	Count  int    `json:"count"`
	Label  string `json:"label,omitempty"`
}

// ContentItem is one entry of the content feed
type ContentItem struct {
	Title       string `json:"title"`
	Channel     string `json:"channel"` // GitHub, Memory, Playbook
	Date        string `json:"date"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// KnowledgeDoc is one entry of the knowledge base card
type KnowledgeDoc struct {
	Title string `json:"title"`
	Items int    `json:"items"`
	Path  string `json:"path,omitempty"`
}

// Report is the latest output of a bot
type Report struct {
	ID        string          `json:"id"`
	BotName   string          `json:"botName"`
	FileName  string          `json:"fileName"`
	Content   string          `json:"content"`
	UpdatedAt string          `json:"updatedAt"`
	Persona   persona.Persona `json:"persona"`
}
