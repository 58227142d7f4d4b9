package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/agents/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgent(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name)+Extension)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const reviewer = `---
name: reviewer
description: Reviews diffs
agents:
  executor: codex
  background: true
  executionMode: careful
  model: gpt-5
  binary: /opt/codex
---
Review the change and report problems.
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "reviewer", reviewer)

	def, err := Load(dir, "reviewer")
	require.NoError(t, err)

	assert.Equal(t, "reviewer", def.Name)
	assert.Equal(t, "Reviews diffs", def.Description)
	assert.Equal(t, "codex", def.Executor)
	assert.Equal(t, "careful", def.Mode)
	require.NotNil(t, def.Background)
	assert.True(t, *def.Background)
	assert.Equal(t, map[string]interface{}{"model": "gpt-5", "binary": "/opt/codex"}, def.Overrides)
	assert.Equal(t, "Review the change and report problems.", def.Instructions)
}

func TestLoadModeAliases(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "a", "---\nagents:\n  preset: fast\n---\n")
	writeAgent(t, dir, "b", "---\nagents:\n  mode: slow\n  preset: fast\n---\n")

	a, err := Load(dir, "a")
	require.NoError(t, err)
	assert.Equal(t, "fast", a.Mode)
	assert.Nil(t, a.Background)

	b, err := Load(dir, "b")
	require.NoError(t, err)
	assert.Equal(t, "slow", b.Mode)
}

func TestLoadWithoutFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "plain", "Just do it.\n")

	def, err := Load(dir, "plain")
	require.NoError(t, err)
	assert.Empty(t, def.Executor)
	assert.Equal(t, "Just do it.", def.Instructions)
}

func TestLoadNested(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "code/implementor", "---\nagents:\n  executor: claude\n---\nImplement.\n")

	def, err := Load(dir, "code/implementor")
	require.NoError(t, err)
	assert.Equal(t, "claude", def.Executor)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAgentNotFound))
}

func TestLoadRejectsEscapes(t *testing.T) {
	_, err := Load(t.TempDir(), "../outside")
	assert.True(t, errors.Is(err, errors.ErrCodeAgentNotFound))

	_, err = Load(t.TempDir(), "")
	assert.True(t, errors.Is(err, errors.ErrCodeUsage))
}

func TestLoadInvalidFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "broken", "---\nagents: [oops\n---\n")

	_, err := Load(dir, "broken")
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestLoadRejectsMistypedReservedKeys(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "typo", "---\nagents:\n  background: \"yes please\"\n---\nBody\n")

	_, err := Load(dir, "typo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
	assert.Contains(t, err.Error(), "agents.background")
}

func TestWriteInstructions(t *testing.T) {
	def := &Definition{Name: "code/reviewer", Instructions: "Be brief."}
	path, err := def.WriteInstructions(t.TempDir())
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.\n", string(data))

	empty := &Definition{Name: "x"}
	path, err = empty.WriteInstructions(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "reviewer", reviewer)
	writeAgent(t, dir, "code/implementor", "x")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"code/implementor", "reviewer"}, names)

	names, err = List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
