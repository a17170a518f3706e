package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	contentDateLayout = "Jan 2"
	reportRunes       = 500
	recentMemoryFiles = 5
)

// staticDocs are always listed on the knowledge card
var staticDocs = []KnowledgeDoc{
	{Title: "Issue Management", Items: 3},
	{Title: "Cron Jobs", Items: 8},
	{Title: "Communication Channels", Items: 3},
	{Title: "API Configurations", Items: 5},
}

func (w *Workspace) memoryDir() string {
	return filepath.Join(w.cfg.Workspace.Root, "memory")
}

func (w *Workspace) playbookDir() string {
	return filepath.Join(w.cfg.Workspace.Root, "knowledge", "playbook")
}

func (w *Workspace) reportsDir() string {
	return filepath.Join(w.cfg.Workspace.Root, "bot-reports")
}

// ghRepo is the output of `gh repo view --json name,description,defaultBranchRef,updatedAt`
type ghRepo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Content lists repository activity, recent memory files and playbook docs
func (w *Workspace) Content(ctx context.Context) ([]ContentItem, error) {
	items := make([]ContentItem, 0)
	loc := w.now().Location()

	for _, project := range w.cfg.Workspace.Projects {
		repo, err := w.repoInfo(ctx, project)
		if err != nil {
			w.logger.Debug("Repository info unavailable", zap.String("project", project), zap.Error(err))
			continue
		}
		items = append(items, ContentItem{
			Title:       project,
			Channel:     "GitHub",
			Date:        repo.UpdatedAt.In(loc).Format(contentDateLayout),
			Status:      "active",
			Description: repo.Description,
		})
	}

	memory, err := markdownFiles(w.memoryDir())
	if err != nil {
		w.logger.Warn("Failed to list memory files", zap.Error(err))
	}
	if len(memory) > recentMemoryFiles {
		memory = memory[len(memory)-recentMemoryFiles:]
	}
	for _, entry := range memory {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, ContentItem{
			Title:   entry.Name(),
			Channel: "Memory",
			Date:    info.ModTime().In(loc).Format(contentDateLayout),
			Status:  "updated",
		})
	}

	playbook, err := markdownFiles(w.playbookDir())
	if err != nil {
		w.logger.Warn("Failed to list playbook", zap.Error(err))
	}
	for _, entry := range playbook {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, ContentItem{
			Title:   orderPrefix.ReplaceAllString(strings.TrimSuffix(entry.Name(), ".md"), ""),
			Channel: "Playbook",
			Date:    info.ModTime().In(loc).Format(contentDateLayout),
			Status:  "active",
		})
	}

	return items, nil
}

func (w *Workspace) repoInfo(ctx context.Context, project string) (*ghRepo, error) {
	output, err := w.runner.Run(ctx, "", w.ghBinary(),
		"repo", "view", w.cfg.Workspace.GitHubOwner+"/"+project,
		"--json", "name,description,defaultBranchRef,updatedAt",
	)
	if err != nil {
		return nil, err
	}

	repo := &ghRepo{}
	if err := json.Unmarshal(output, repo); err != nil {
		return nil, fmt.Errorf("failed to parse repo view: %w", err)
	}
	return repo, nil
}

// Knowledge lists playbook documents with their section counts, the memory
// file count and the static docs
func (w *Workspace) Knowledge(ctx context.Context) ([]KnowledgeDoc, error) {
	docs := make([]KnowledgeDoc, 0)

	playbook, err := markdownFiles(w.playbookDir())
	if err != nil {
		return append(docs, staticDocs...), fmt.Errorf("failed to list playbook: %w", err)
	}
	for _, entry := range playbook {
		data, err := os.ReadFile(filepath.Join(w.playbookDir(), entry.Name()))
		if err != nil {
			w.logger.Warn("Failed to read playbook doc", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		docs = append(docs, KnowledgeDoc{
			Title: docTitle(entry.Name()),
			Items: countSections(string(data)),
			Path:  "/knowledge/playbook/" + entry.Name(),
		})
	}

	memory, err := markdownFiles(w.memoryDir())
	if err != nil {
		w.logger.Warn("Failed to list memory files", zap.Error(err))
	}
	if len(memory) > 0 {
		docs = append(docs, KnowledgeDoc{Title: "Memory Files", Items: len(memory)})
	}

	return append(docs, staticDocs...), nil
}

// docTitle turns "01_cron-jobs.md" into "Cron Jobs"
func docTitle(file string) string {
	name := orderPrefix.ReplaceAllString(strings.TrimSuffix(file, ".md"), "")
	return titleCase(strings.ReplaceAll(name, "-", " "))
}

func countSections(doc string) int {
	n := 0
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "## ") {
			n++
		}
	}
	return n
}

// Reports returns the latest output of every bot, newest first
func (w *Workspace) Reports(ctx context.Context) ([]Report, error) {
	reports := make([]Report, 0)

	files, err := markdownFiles(w.reportsDir())
	if err != nil {
		return reports, fmt.Errorf("failed to list reports: %w", err)
	}

	modTimes := make(map[string]time.Time, len(files))
	for _, entry := range files {
		path := filepath.Join(w.reportsDir(), entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("Failed to read report", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		botName := botName(entry.Name())
		modTimes[entry.Name()] = info.ModTime()
		reports = append(reports, Report{
			ID:        entry.Name(),
			BotName:   botName,
			FileName:  entry.Name(),
			Content:   truncate(string(data), reportRunes),
			UpdatedAt: info.ModTime().UTC().Format("2006-01-02T15:04:05.000Z"),
			Persona:   w.personas.Lookup(botName),
		})
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return modTimes[reports[i].ID].After(modTimes[reports[j].ID])
	})
	return reports, nil
}

// botName turns "health-check-latest.md" into "Health Check"
func botName(file string) string {
	name := strings.TrimSuffix(file, ".md")
	name = strings.Replace(name, "-latest", "", 1)
	return titleCase(strings.ReplaceAll(name, "-", " "))
}
