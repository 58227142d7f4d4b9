// Package paths resolves where agents keeps its files: the global config and
// state directories, and the per-workspace state layout.
//
// Global directories honour, in order, GROVE_HOME ($GROVE_HOME/config and
// $GROVE_HOME/state), the XDG variables and finally ~/.config and
// ~/.local/state. Each gets a grove subdirectory.
package paths

import (
	"os"
	"path/filepath"
)

type baseDir struct {
	groveSub string
	xdgEnv   string
	fallback []string
}

var (
	configBase = baseDir{groveSub: "config", xdgEnv: "XDG_CONFIG_HOME", fallback: []string{".config"}}
	stateBase  = baseDir{groveSub: "state", xdgEnv: "XDG_STATE_HOME", fallback: []string{".local", "state"}}
)

// groveDir returns <base>/grove, or "" when no base can be determined.
func (b baseDir) groveDir() string {
	if root := os.Getenv("GROVE_HOME"); root != "" {
		return filepath.Join(root, b.groveSub, "grove")
	}
	if dir := os.Getenv(b.xdgEnv); dir != "" {
		return filepath.Join(dir, "grove")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, b.fallback...), "grove")...)
}

// ConfigDir is the directory holding the global agents.yml.
func ConfigDir() string { return configBase.groveDir() }

// StateDir holds the orchestrator's own diagnostic logs.
func StateDir() string { return stateBase.groveDir() }

// GlobalConfigFile returns the user-wide configuration path, or "".
func GlobalConfigFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "agents.yml")
}
