package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const headRefPrefix = "ref: refs/heads/"

// Repos returns the git state of every configured project. Projects that are
// not checked out are skipped.
func (w *Workspace) Repos(ctx context.Context) ([]Repo, error) {
	repos := make([]Repo, 0, len(w.cfg.Workspace.Projects))
	for _, project := range w.cfg.Workspace.Projects {
		dir := filepath.Join(w.cfg.Workspace.Root, project)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}

		repos = append(repos, Repo{
			Name:   project,
			Path:   dir,
			Branch: readBranch(dir),
			Dirty:  w.isDirty(ctx, dir),
		})
	}
	return repos, nil
}

// readBranch reads .git/HEAD. A detached head yields the short commit hash.
func readBranch(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
	if err != nil {
		return "unknown"
	}

	head := strings.TrimSpace(string(data))
	if strings.HasPrefix(head, headRefPrefix) {
		return strings.TrimPrefix(head, headRefPrefix)
	}
	if len(head) > 7 {
		return head[:7]
	}
	return head
}

func (w *Workspace) isDirty(ctx context.Context, dir string) bool {
	git := w.cfg.Commands.Git
	if git == "" {
		git = "git"
	}

	output, err := w.runner.Run(ctx, dir, git, "status", "--porcelain")
	if err != nil {
		w.logger.Debug("git status failed", zap.String("dir", dir), zap.Error(err))
		return false
	}
	return strings.TrimSpace(string(output)) != ""
}
