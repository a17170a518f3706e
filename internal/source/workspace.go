// Package source collects dashboard data from the OpenClaw workspace: CLI
// output, JSON state files, markdown documents and git metadata.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/config"
	"github.com/vfa-khuongdv/opsboard/internal/runner"
	"github.com/vfa-khuongdv/opsboard/pkg/jobtable"
	"github.com/vfa-khuongdv/opsboard/pkg/persona"
)

// Workspace reads every dashboard data source. Results are recomputed on each
// call.
type Workspace struct {
	cfg      *config.Config
	runner   runner.Runner
	parser   *jobtable.Parser
	personas *persona.Table
	prober   Prober
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes a Workspace
type Option func(*Workspace)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// WithProber overrides the server probe
func WithProber(p Prober) Option {
	return func(w *Workspace) { w.prober = p }
}

// WithPersonas overrides the persona table
func WithPersonas(t *persona.Table) Option {
	return func(w *Workspace) { w.personas = t }
}

// NewWorkspace creates a workspace reader
func NewWorkspace(cfg *config.Config, r runner.Runner, logger *zap.Logger, opts ...Option) *Workspace {
	w := &Workspace{
		cfg:      cfg,
		runner:   r,
		parser:   jobtable.NewParser(cfg.Commands.JobTable),
		personas: persona.DefaultTable(),
		prober:   NewNetProber(time.Second),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the workspace directory
func (w *Workspace) Root() string {
	return w.cfg.Workspace.Root
}

// Personas returns the persona table used to decorate jobs and reports
func (w *Workspace) Personas() *persona.Table {
	return w.personas
}

func (w *Workspace) statePath(name string) string {
	return filepath.Join(w.cfg.Workspace.Root, "state", name)
}

func (w *Workspace) nowMillis() int64 {
	return w.now().UnixMilli()
}

// readJSONFile decodes path into v. found is false when the file does not
// exist.
func readJSONFile(path string, v interface{}) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

// markdownFiles lists *.md files in dir sorted by name. A missing directory
// yields no files.
func markdownFiles(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []os.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
			files = append(files, entry)
		}
	}
	return files, nil
}

var (
	orderPrefix = regexp.MustCompile(`^\d+_`)
	wordStart   = regexp.MustCompile(`\b\w`)
)

// titleCase upper-cases the first letter of every word
func titleCase(s string) string {
	return wordStart.ReplaceAllStringFunc(s, strings.ToUpper)
}

// truncate returns at most n runes of s
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
