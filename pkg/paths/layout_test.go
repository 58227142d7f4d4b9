package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLayoutDefaults(t *testing.T) {
	base := t.TempDir()
	layout := ResolveLayout(base, Layout{})

	assert.Equal(t, base, layout.BaseDir)
	assert.Equal(t, filepath.Join(base, ".grove/agents/sessions.json"), layout.SessionsFile)
	assert.Equal(t, filepath.Join(base, ".grove/agents/logs"), layout.LogsDir)
	assert.Equal(t, filepath.Join(base, ".grove/agents/background"), layout.BackgroundDir)
}

func TestResolveLayoutOverrides(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere.json")
	layout := ResolveLayout(base, Layout{SessionsFile: abs, LogsDir: "logs"})

	assert.Equal(t, abs, layout.SessionsFile)
	assert.Equal(t, filepath.Join(base, "logs"), layout.LogsDir)
}

func TestEnsureDirs(t *testing.T) {
	layout := ResolveLayout(t.TempDir(), Layout{})
	require.NoError(t, layout.EnsureDirs())

	for _, dir := range []string{layout.LogsDir, layout.BackgroundDir, filepath.Dir(layout.SessionsFile)} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestFindWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".grove"), 0755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, root, FindWorkspaceRoot(nested))
}

func TestGlobalConfigFileHonoursGroveHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GROVE_HOME", home)

	assert.Equal(t, filepath.Join(home, "config", "grove", "agents.yml"), GlobalConfigFile())
	assert.Equal(t, filepath.Join(home, "state", "grove"), StateDir())
}

func TestGlobalDirsFallBackToXDG(t *testing.T) {
	t.Setenv("GROVE_HOME", "")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(xdg, "cfg"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(xdg, "st"))

	assert.Equal(t, filepath.Join(xdg, "cfg", "grove"), ConfigDir())
	assert.Equal(t, filepath.Join(xdg, "st", "grove"), StateDir())
}
