package command

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"simple", Spec{Name: "codex", Args: []string{"exec", "hi"}}, false},
		{"with dir and env", Spec{Name: "claude", Dir: dir, Env: []string{"A=1", "B="}}, false},
		{"empty name", Spec{Name: "  "}, true},
		{"nul in arg", Spec{Name: "codex", Args: []string{"a\x00b"}}, true},
		{"bad env entry", Spec{Name: "codex", Env: []string{"NOVALUE"}}, true},
		{"empty env key", Spec{Name: "codex", Env: []string{"=x"}}, true},
		{"missing dir", Spec{Name: "codex", Dir: filepath.Join(dir, "nope")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	got := MergeEnv([]string{"PATH=/bin", "HOME=/root"}, []string{"GROVE_AGENT_START_TIME=1", "HOME=/tmp"})
	assert.Equal(t, []string{"PATH=/bin", "HOME=/tmp", "GROVE_AGENT_START_TIME=1"}, got)
}

func TestBuildUsesExecutor(t *testing.T) {
	var gotName string
	var gotArgs []string
	fake := FuncExecutor(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName, gotArgs = name, args
		return exec.CommandContext(ctx, "true")
	})

	dir := t.TempDir()
	cmd, err := NewBuilderWithExecutor(fake).Build(context.Background(), Spec{
		Name:   "codex",
		Args:   []string{"exec", "hello"},
		Dir:    dir,
		Env:    []string{"GROVE_AGENT_BACKGROUND_RUNNER=1"},
		Detach: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "codex", gotName)
	assert.Equal(t, []string{"exec", "hello"}, gotArgs)
	assert.Equal(t, dir, cmd.Dir)
	assert.Contains(t, cmd.Env, "GROVE_AGENT_BACKGROUND_RUNNER=1")
	assert.NotNil(t, cmd.SysProcAttr)
}

func TestBuildRejectsInvalidSpec(t *testing.T) {
	_, err := NewBuilder().Build(context.TODO(), Spec{})
	assert.Error(t, err)
}
