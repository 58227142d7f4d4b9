package paths

import (
	"os"
	"path/filepath"
)

// Default locations relative to the workspace root.
const (
	DefaultSessionsFile  = ".grove/agents/sessions.json"
	DefaultLogsDir       = ".grove/agents/logs"
	DefaultBackgroundDir = ".grove/agents/background"
	DefaultAgentsDir     = ".grove/agents/definitions"
)

// Layout is the resolved on-disk state layout of one workspace.
type Layout struct {
	BaseDir       string `json:"base_dir"`
	SessionsFile  string `json:"sessions_file"`
	LogsDir       string `json:"logs_dir"`
	BackgroundDir string `json:"background_dir"`
	AgentsDir     string `json:"agents_dir"`
}

// ResolveLayout fills every empty field of overrides relative to baseDir.
// Relative override values are anchored at baseDir as well.
func ResolveLayout(baseDir string, overrides Layout) Layout {
	if overrides.BaseDir != "" {
		baseDir = overrides.BaseDir
	}
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}

	anchor := func(value, fallback string) string {
		if value == "" {
			value = fallback
		}
		if filepath.IsAbs(value) {
			return value
		}
		return filepath.Join(baseDir, value)
	}

	return Layout{
		BaseDir:       baseDir,
		SessionsFile:  anchor(overrides.SessionsFile, DefaultSessionsFile),
		LogsDir:       anchor(overrides.LogsDir, DefaultLogsDir),
		BackgroundDir: anchor(overrides.BackgroundDir, DefaultBackgroundDir),
		AgentsDir:     anchor(overrides.AgentsDir, DefaultAgentsDir),
	}
}

// EnsureDirs creates the directories of the layout if they don't exist.
func (l Layout) EnsureDirs() error {
	dirs := []string{
		l.LogsDir,
		l.BackgroundDir,
		filepath.Dir(l.SessionsFile),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// FindWorkspaceRoot walks up from startDir looking for a .grove directory or a
// git checkout. It returns startDir when neither is found.
func FindWorkspaceRoot(startDir string) string {
	dir := startDir
	for {
		for _, marker := range []string{".grove", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}
