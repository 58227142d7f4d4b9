package cli

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/grovetools/agents/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerGuidance(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"usage", errors.MissingArgument("sessionId", "agents stop <sessionId>"), "Usage: agents stop <sessionId>"},
		{"agent", errors.AgentNotFound("ghost"), "agents list agents"},
		{"session", errors.SessionNotFound("abc"), "agents list sessions"},
		{"untracked", errors.SessionUntracked("abc", "/tmp/rollout.jsonl"), "Session file: /tmp/rollout.jsonl"},
		{"spawn", errors.SpawnFailed("codex", stderrors.New("not found")), "on your PATH"},
		{"generic", stderrors.New("boom"), "❌ Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := NewErrorHandler(&buf, false).Handle(&cobra.Command{Use: "agents"}, tt.err)
			assert.Equal(t, tt.err, err)
			assert.Contains(t, buf.String(), tt.want)
			assert.NotContains(t, buf.String(), "Error details")
		})
	}
}

func TestErrorHandlerVerboseDetails(t *testing.T) {
	var buf bytes.Buffer
	NewErrorHandler(&buf, true).Handle(nil, errors.SessionNotFound("abc"))
	assert.Contains(t, buf.String(), `"code": "SESSION_NOT_FOUND"`)
}

func TestExecuteReportsFailure(t *testing.T) {
	root := NewStandardCommand("agents", "test")
	root.AddCommand(&cobra.Command{
		Use: "fail",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.SessionNotFound("nope")
		},
	})
	root.SetArgs([]string{"fail"})
	root.SetOut(&bytes.Buffer{})

	var stderr bytes.Buffer
	code := Execute(root, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no run found with session id 'nope'")
}

func TestGetOptions(t *testing.T) {
	root := NewStandardCommand("agents", "test")
	require.NoError(t, root.ParseFlags([]string{"--json", "-v", "-c", "extra.yml"}))

	opts := GetOptions(root)
	assert.True(t, opts.JSONOutput)
	assert.True(t, opts.Verbose)
	assert.Equal(t, "extra.yml", opts.ConfigFile)
}

func TestStyledHelp(t *testing.T) {
	root := NewStandardCommand("agents", "Run coding agents")
	root.AddCommand(&cobra.Command{
		Use:   "run <agent> <prompt>",
		Short: "Start a session",
		Long:  "Start a session.\n\nExamples:\n  # start one\n  agents run reviewer \"check it\" --background",
		Run:   func(*cobra.Command, []string) {},
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "AGENTS RUN")
	assert.Contains(t, help, "USAGE")
	assert.Contains(t, help, "EXAMPLES")
	assert.Contains(t, help, "# start one")
}

func TestWrapText(t *testing.T) {
	wrapped := wrapText(strings.Repeat("word ", 20), 20)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), 20)
	}
}

func TestExecuteExitErrorIsSilent(t *testing.T) {
	root := NewStandardCommand("agents", "test")
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return &ExitError{Code: 3}
	}
	root.SetArgs(nil)

	var stderr bytes.Buffer
	assert.Equal(t, 3, Execute(root, &stderr))
	assert.Empty(t, stderr.String())
}
