package executor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovetools/agents/config"
	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/util/pathutil"
	"github.com/tidwall/gjson"
)

// ClaudeConfig is the settings schema of the claude executor.
type ClaudeConfig struct {
	Binary                   string             `yaml:"binary"`
	ProjectsDir              string             `yaml:"projectsDir"`
	SessionExtractionDelayMs *int               `yaml:"sessionExtractionDelayMs"`
	Exec                     ClaudeExecConfig   `yaml:"exec"`
	Resume                   ClaudeResumeConfig `yaml:"resume"`
}

// ClaudeExecConfig holds options for a fresh run.
type ClaudeExecConfig struct {
	Model           string   `yaml:"model"`
	PermissionMode  string   `yaml:"permissionMode"`
	OutputFormat    string   `yaml:"outputFormat"`
	AllowedTools    []string `yaml:"allowedTools"`
	DisallowedTools []string `yaml:"disallowedTools"`
	AdditionalArgs  []string `yaml:"additionalArgs"`
}

// ClaudeResumeConfig holds options for resuming a session.
type ClaudeResumeConfig struct {
	OutputFormat   string   `yaml:"outputFormat"`
	AdditionalArgs []string `yaml:"additionalArgs"`
}

// Claude drives the `claude` CLI in print mode with a streamed JSON protocol.
// The session id arrives in the first system event of the stream.
type Claude struct{}

// NewClaude returns the claude executor.
func NewClaude() *Claude {
	return &Claude{}
}

func (c *Claude) Key() string { return "claude" }

func (c *Claude) DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"binary":                   "claude",
		"projectsDir":              "~/.claude/projects",
		"sessionExtractionDelayMs": 1000,
		"exec": map[string]interface{}{
			"model":           "sonnet",
			"permissionMode":  "default",
			"outputFormat":    "stream-json",
			"allowedTools":    []interface{}{},
			"disallowedTools": []interface{}{},
			"additionalArgs":  []interface{}{},
		},
		"resume": map[string]interface{}{
			"outputFormat":   "stream-json",
			"additionalArgs": []interface{}{},
		},
	}
}

func (c *Claude) decode(settings map[string]interface{}) (ClaudeConfig, error) {
	var cfg ClaudeConfig
	if err := config.Decode(settings, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid claude executor settings")
	}
	if cfg.Binary == "" {
		cfg.Binary = "claude"
	}
	return cfg, nil
}

func (c *Claude) BuildRunCommand(settings map[string]interface{}, instructionsPath, prompt string) (Command, error) {
	cfg, err := c.decode(settings)
	if err != nil {
		return Command{}, err
	}
	exec := cfg.Exec

	args := []string{"-p", "--verbose", "--output-format", orDefault(exec.OutputFormat, "stream-json")}
	if exec.Model != "" {
		args = append(args, "--model", exec.Model)
	}
	if exec.PermissionMode != "" && exec.PermissionMode != "default" {
		args = append(args, "--permission-mode", exec.PermissionMode)
	}
	if len(exec.AllowedTools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(exec.AllowedTools, ","))
	}
	if len(exec.DisallowedTools) > 0 {
		args = append(args, "--disallowed-tools", strings.Join(exec.DisallowedTools, ","))
	}
	if instructionsPath != "" {
		instructions, err := os.ReadFile(instructionsPath)
		if err != nil {
			return Command{}, errors.Wrap(err, errors.ErrCodeAgentNotFound, "failed to read agent instructions").
				WithDetail("path", instructionsPath)
		}
		args = append(args, "--append-system-prompt", string(instructions))
	}
	args = append(args, exec.AdditionalArgs...)
	if prompt != "" {
		args = append(args, prompt)
	}

	return Command{Name: cfg.Binary, Args: args}, nil
}

func (c *Claude) BuildResumeCommand(settings map[string]interface{}, sessionID, prompt string) (Command, error) {
	if sessionID == "" {
		return Command{}, errors.MissingArgument("sessionId", "agents resume <sessionId> \"<prompt>\"")
	}
	cfg, err := c.decode(settings)
	if err != nil {
		return Command{}, err
	}

	args := []string{"-p", "--verbose", "--output-format", orDefault(cfg.Resume.OutputFormat, "stream-json"), "--resume", sessionID}
	args = append(args, cfg.Resume.AdditionalArgs...)
	if prompt != "" {
		args = append(args, prompt)
	}
	return Command{Name: cfg.Binary, Args: args}, nil
}

func (c *Claude) SessionExtractionDelay(settings map[string]interface{}, fallback time.Duration) time.Duration {
	cfg, err := c.decode(settings)
	if err != nil {
		return fallback
	}
	return delayFrom(cfg.SessionExtractionDelayMs, fallback)
}

// ExtractSessionID has no side channel for claude; the id is always taken
// from the event stream.
func (c *Claude) ExtractSessionID(time.Time, map[string]interface{}) (string, error) {
	return "", nil
}

func (c *Claude) SessionIDFromEvent(line []byte) string {
	if !gjson.ValidBytes(line) {
		return ""
	}
	return gjson.GetBytes(line, "session_id").String()
}

// SessionIDFromLog returns the first session id in the stream.
func (c *Claude) SessionIDFromLog(content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if id := c.SessionIDFromEvent(scanner.Bytes()); id != "" {
			return id
		}
	}
	return ""
}

// LocateSessionFile looks for <projectsDir>/<project>/<sessionId>.jsonl.
func (c *Claude) LocateSessionFile(sessionID string, settings map[string]interface{}) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	cfg, err := c.decode(settings)
	if err != nil {
		return "", err
	}
	dir, err := pathutil.Expand(orDefault(cfg.ProjectsDir, "~/.claude/projects"))
	if err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*", sessionID+".jsonl"))
	if err != nil || len(matches) == 0 {
		return "", err
	}
	return matches[0], nil
}

func (c *Claude) NewOutputFilter(dst io.Writer) io.WriteCloser {
	return newLineFilter(dst, projectClaudeEvent)
}

// projectClaudeEvent keeps assistant text, tool names and the final result.
func projectClaudeEvent(line []byte) (string, bool) {
	if !gjson.ValidBytes(line) {
		return string(line), true
	}
	event := gjson.ParseBytes(line)

	switch event.Get("type").String() {
	case "system":
		if event.Get("subtype").String() == "init" {
			return fmt.Sprintf("▸ session %s (%s)", event.Get("session_id").String(), event.Get("model").String()), true
		}
		return "", false
	case "assistant":
		var parts []string
		event.Get("message.content").ForEach(func(_, item gjson.Result) bool {
			switch item.Get("type").String() {
			case "text":
				if text := strings.TrimSpace(item.Get("text").String()); text != "" {
					parts = append(parts, text)
				}
			case "tool_use":
				parts = append(parts, "→ "+item.Get("name").String())
			}
			return true
		})
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "\n"), true
	case "result":
		if event.Get("is_error").Bool() {
			return "✗ " + firstLine(event.Get("result").String(), 200), true
		}
		return fmt.Sprintf("✓ done in %.1fs", float64(event.Get("duration_ms").Int())/1000), true
	}
	return "", false
}

// maxLineSize bounds a single event line when scanning logs.
const maxLineSize = 16 * 1024 * 1024

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
