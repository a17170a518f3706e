package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// backlogSections are the top-level backlog.md sections, matched after the
// leading '#' characters are removed
var backlogSections = []string{
	"🚀 Active Work",
	"📋 Priority Backlog",
	"🔮 Research & Future",
	"✅ Completed / Automated",
}

var (
	projectCountHeading = regexp.MustCompile(`^### \w+ \(\d+ open\)`)
	metaHeading         = regexp.MustCompile(`(?i)^### (Items for|Grooming|Decisions|Next)`)
	statusField         = regexp.MustCompile(`^\*\*Status:\*\* (.+?)(?:\s*\|\s*\*\*Added|$)`)
	bulletPrefix        = regexp.MustCompile(`^[-*]+ `)
)

// noteFields are appended to an idea's notes as "<label>: <value>"
var noteFields = []struct {
	marker string
	label  string
}{
	{"**Purpose:**", "Purpose"},
	{"**Value:**", "Value"},
	{"**Effort:**", "Effort"},
	{"**Scope:**", "Scope"},
	{"**Risk Level:**", "Risk"},
	{"**Source:**", "Source"},
	{"**Blocked By:**", "Blocked By"},
	{"**Blocks:**", "Blocks"},
	{"**Priority:**", "Priority"},
}

// ParseBacklog extracts the ideas of a backlog.md document in order
func ParseBacklog(content string) []Issue {
	var (
		issues  = make([]Issue, 0)
		section string
		current *Issue
	)

	flush := func() {
		if current != nil && current.Title != "" {
			issues = append(issues, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if name, ok := matchSection(trimmed); ok {
			flush()
			section = name
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "# ") || strings.HasPrefix(trimmed, "---") {
			continue
		}

		if strings.HasPrefix(trimmed, "### ") {
			if projectCountHeading.MatchString(trimmed) || metaHeading.MatchString(trimmed) {
				continue
			}
			flush()
			current = &Issue{
				Title:   strings.TrimSpace(strings.TrimPrefix(trimmed, "### ")),
				Type:    "idea",
				Section: section,
			}
			continue
		}

		if current == nil {
			continue
		}
		parseIdeaField(current, trimmed)
	}
	flush()

	return issues
}

func matchSection(trimmed string) (string, bool) {
	stripped := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	for _, s := range backlogSections {
		if strings.HasPrefix(stripped, s) {
			return s, true
		}
	}
	return "", false
}

func parseIdeaField(idea *Issue, trimmed string) {
	switch {
	case strings.HasPrefix(trimmed, "**Status:**"):
		if m := statusField.FindStringSubmatch(trimmed); m != nil {
			idea.Status = strings.TrimSpace(m[1])
		}
		return
	case strings.HasPrefix(trimmed, "**Added:**"):
		idea.Added = fieldValue(trimmed, "**Added:**")
		return
	case strings.HasPrefix(trimmed, "**Location:**"):
		idea.Location = fieldValue(trimmed, "**Location:**")
		return
	case strings.HasPrefix(trimmed, "**Note:**"):
		idea.Notes = fieldValue(trimmed, "**Note:**")
		return
	case strings.HasPrefix(trimmed, "**Notes:**"):
		idea.Notes = fieldValue(trimmed, "**Notes:**")
		return
	}

	for _, f := range noteFields {
		if strings.HasPrefix(trimmed, f.marker) {
			if v := fieldValue(trimmed, f.marker); v != "" {
				idea.Notes = appendNote(idea.Notes, f.label+": "+v)
			}
			return
		}
	}

	if idea.Notes != "" && (strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "**")) {
		idea.Notes += " " + bulletPrefix.ReplaceAllString(trimmed, "")
	}
}

func fieldValue(trimmed, marker string) string {
	return strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + " " + note
}

// ghIssue is one element of `gh issue list --json number,title,labels`
type ghIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// GitHubIssues lists the open issues of a project
func (w *Workspace) GitHubIssues(ctx context.Context, project string) ([]Issue, error) {
	owner := w.cfg.Workspace.GitHubOwner
	output, err := w.runner.Run(ctx, "", w.ghBinary(),
		"issue", "list",
		"--repo", owner+"/"+project,
		"--state", "open",
		"--limit", "50",
		"--json", "number,title,labels",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", project, err)
	}

	var raw []ghIssue
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse issues for %s: %w", project, err)
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		labels := make([]string, 0, len(r.Labels))
		for _, l := range r.Labels {
			labels = append(labels, l.Name)
		}
		issues = append(issues, Issue{
			Number:  r.Number,
			Title:   r.Title,
			Labels:  labels,
			Project: project,
			Owner:   owner,
			Type:    "issue",
		})
	}
	return issues, nil
}

// Kanban merges backlog ideas with open GitHub issues. A missing backlog file
// is an error and yields an empty board.
func (w *Workspace) Kanban(ctx context.Context) (*Kanban, error) {
	path := filepath.Join(w.cfg.Workspace.Root, "backlog.md")
	data, err := os.ReadFile(path)
	if err != nil {
		return newKanban(nil), fmt.Errorf("failed to read backlog: %w", err)
	}

	issues := ParseBacklog(string(data))
	for _, project := range w.cfg.Workspace.Projects {
		projectIssues, err := w.GitHubIssues(ctx, project)
		if err != nil {
			w.logger.Warn("GitHub issue listing failed", zap.String("project", project), zap.Error(err))
			continue
		}
		issues = append(issues, projectIssues...)
	}

	return newKanban(issues), nil
}

func newKanban(issues []Issue) *Kanban {
	board := &Kanban{
		Issues: make([]Issue, 0, len(issues)),
		Columns: KanbanColumns{
			Backlog:    []Issue{},
			InProgress: []Issue{},
			Done:       []Issue{},
		},
		Stats: map[string]int{"total": 0, "ideas": 0, "issues": 0},
	}

	for _, issue := range issues {
		board.Issues = append(board.Issues, issue)
		board.Stats["total"]++
		if issue.Type == "idea" {
			board.Stats["ideas"]++
		} else {
			board.Stats["issues"]++
		}
		if issue.Project != "" {
			board.Stats[issue.Project]++
		}

		switch kanbanColumn(issue) {
		case "done":
			board.Columns.Done = append(board.Columns.Done, issue)
		case "in-progress":
			board.Columns.InProgress = append(board.Columns.InProgress, issue)
		default:
			board.Columns.Backlog = append(board.Columns.Backlog, issue)
		}
	}
	return board
}

// kanbanColumn picks a column from the status text, falling back to the
// backlog section the idea was found in
func kanbanColumn(issue Issue) string {
	status := strings.ToLower(issue.Status)
	switch {
	case strings.Contains(status, "done"), strings.Contains(status, "complete"), strings.Contains(status, "automated"):
		return "done"
	case strings.Contains(status, "progress"), strings.Contains(status, "active"):
		return "in-progress"
	}

	switch issue.Section {
	case "✅ Completed / Automated":
		return "done"
	case "🚀 Active Work":
		return "in-progress"
	}
	return "backlog"
}

func (w *Workspace) ghBinary() string {
	if w.cfg.Commands.GitHub == "" {
		return "gh"
	}
	return w.cfg.Commands.GitHub
}
