package executor

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/agents/config"
	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/util/pathutil"
	"github.com/tidwall/gjson"
)

const (
	codexDefaultPackage = "@namastexlabs/codex@0.43.0-alpha.5"

	// rolloutMatchWindow bounds how far a rollout file's mtime may be from
	// the run's start time to be attributed to it.
	rolloutMatchWindow = 60 * time.Second
)

var rolloutUUIDRegex = regexp.MustCompile(`(?i)([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)

// CodexConfig is the settings schema of the codex executor.
type CodexConfig struct {
	Binary                   string            `yaml:"binary"`
	PackageSpec              string            `yaml:"packageSpec"`
	SessionsDir              string            `yaml:"sessionsDir"`
	SessionExtractionDelayMs *int              `yaml:"sessionExtractionDelayMs"`
	Exec                     CodexExecConfig   `yaml:"exec"`
	Resume                   CodexResumeConfig `yaml:"resume"`
}

// CodexExecConfig holds options for `codex exec`.
type CodexExecConfig struct {
	FullAuto          bool     `yaml:"fullAuto"`
	Model             string   `yaml:"model"`
	Sandbox           string   `yaml:"sandbox"`
	ApprovalPolicy    string   `yaml:"approvalPolicy"`
	Profile           string   `yaml:"profile"`
	IncludePlanTool   bool     `yaml:"includePlanTool"`
	Search            bool     `yaml:"search"`
	SkipGitRepoCheck  bool     `yaml:"skipGitRepoCheck"`
	JSON              bool     `yaml:"json"`
	ExperimentalJSON  bool     `yaml:"experimentalJson"`
	Color             string   `yaml:"color"`
	Cd                string   `yaml:"cd"`
	OutputSchema      string   `yaml:"outputSchema"`
	OutputLastMessage string   `yaml:"outputLastMessage"`
	ReasoningEffort   string   `yaml:"reasoningEffort"`
	AdditionalArgs    []string `yaml:"additionalArgs"`
	Images            []string `yaml:"images"`
}

// CodexResumeConfig holds options for `codex exec resume`.
type CodexResumeConfig struct {
	IncludePlanTool bool     `yaml:"includePlanTool"`
	Search          bool     `yaml:"search"`
	Last            bool     `yaml:"last"`
	AdditionalArgs  []string `yaml:"additionalArgs"`
}

// Codex drives `codex exec`. Codex writes each session to a dated rollout
// file whose name carries the session UUID, and announces the id in a
// session.created event when JSON output is enabled.
type Codex struct{}

// NewCodex returns the codex executor.
func NewCodex() *Codex {
	return &Codex{}
}

func (c *Codex) Key() string { return "codex" }

func (c *Codex) DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"binary":      "npx",
		"packageSpec": codexDefaultPackage,
		"sessionsDir": "~/.codex/sessions",
		"exec": map[string]interface{}{
			"fullAuto":          true,
			"model":             "gpt-5-codex",
			"sandbox":           "workspace-write",
			"approvalPolicy":    "on-failure",
			"profile":           nil,
			"includePlanTool":   false,
			"search":            false,
			"skipGitRepoCheck":  false,
			"json":              false,
			"experimentalJson":  true,
			"color":             "auto",
			"cd":                nil,
			"outputSchema":      nil,
			"outputLastMessage": nil,
			"reasoningEffort":   "low",
			"additionalArgs":    []interface{}{},
			"images":            []interface{}{},
		},
		"resume": map[string]interface{}{
			"includePlanTool": false,
			"search":          false,
			"last":            false,
			"additionalArgs":  []interface{}{},
		},
	}
}

func (c *Codex) decode(settings map[string]interface{}) (CodexConfig, error) {
	var cfg CodexConfig
	if err := config.Decode(settings, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid codex executor settings")
	}
	if cfg.Binary == "" {
		cfg.Binary = "npx"
	}
	return cfg, nil
}

// prefix returns the package arguments needed when codex runs through npx.
func (cfg CodexConfig) prefix() []string {
	if filepath.Base(cfg.Binary) != "npx" {
		return nil
	}
	return []string{"-y", orDefault(cfg.PackageSpec, codexDefaultPackage)}
}

func (c *Codex) BuildRunCommand(settings map[string]interface{}, instructionsPath, prompt string) (Command, error) {
	cfg, err := c.decode(settings)
	if err != nil {
		return Command{}, err
	}

	args := append(cfg.prefix(), "exec")
	args = append(args, execOptions(cfg.Exec)...)
	if instructionsPath != "" {
		abs, err := filepath.Abs(instructionsPath)
		if err != nil {
			return Command{}, err
		}
		args = append(args, "-c", fmt.Sprintf("append_user_instructions_file=%q", abs))
	}
	if prompt != "" {
		args = append(args, prompt)
	}

	return Command{Name: cfg.Binary, Args: args}, nil
}

func execOptions(exec CodexExecConfig) []string {
	var options []string
	if exec.FullAuto {
		options = append(options, "--full-auto")
	}
	if exec.Model != "" {
		options = append(options, "-m", exec.Model)
	}
	if exec.Sandbox != "" {
		options = append(options, "-s", exec.Sandbox)
	}
	if exec.ApprovalPolicy != "" {
		options = append(options, "-c", fmt.Sprintf("approval-policy=%q", exec.ApprovalPolicy))
	}
	if exec.Profile != "" {
		options = append(options, "-p", exec.Profile)
	}
	if exec.IncludePlanTool {
		options = append(options, "--include-plan-tool")
	}
	if exec.Search {
		options = append(options, "--search")
	}
	if exec.SkipGitRepoCheck {
		options = append(options, "--skip-git-repo-check")
	}
	if exec.ExperimentalJSON {
		options = append(options, "--experimental-json")
	} else if exec.JSON {
		options = append(options, "--json")
	}
	if exec.Color != "" && exec.Color != "auto" {
		options = append(options, "--color", exec.Color)
	}
	if exec.Cd != "" {
		options = append(options, "-C", exec.Cd)
	}
	if exec.OutputSchema != "" {
		options = append(options, "--output-schema", exec.OutputSchema)
	}
	if exec.OutputLastMessage != "" {
		options = append(options, "--output-last-message", exec.OutputLastMessage)
	}
	if exec.ReasoningEffort != "" {
		options = append(options, "-c", fmt.Sprintf("reasoning.effort=%q", exec.ReasoningEffort))
	}
	for _, image := range exec.Images {
		if image != "" {
			options = append(options, "-i", image)
		}
	}
	return append(options, exec.AdditionalArgs...)
}

// BuildResumeCommand resumes sessionID. With an empty id it falls back to
// --last only when resume.last is enabled.
func (c *Codex) BuildResumeCommand(settings map[string]interface{}, sessionID, prompt string) (Command, error) {
	cfg, err := c.decode(settings)
	if err != nil {
		return Command{}, err
	}
	if sessionID == "" && !cfg.Resume.Last {
		return Command{}, errors.MissingArgument("sessionId", "agents resume <sessionId> \"<prompt>\"")
	}

	args := append(cfg.prefix(), "exec", "resume")
	if cfg.Resume.IncludePlanTool {
		args = append(args, "--include-plan-tool")
	}
	if cfg.Resume.Search {
		args = append(args, "--search")
	}
	args = append(args, cfg.Resume.AdditionalArgs...)
	if sessionID != "" {
		args = append(args, sessionID)
	} else {
		args = append(args, "--last")
	}
	if prompt != "" {
		args = append(args, prompt)
	}
	return Command{Name: cfg.Binary, Args: args}, nil
}

func (c *Codex) SessionExtractionDelay(settings map[string]interface{}, fallback time.Duration) time.Duration {
	cfg, err := c.decode(settings)
	if err != nil {
		return fallback
	}
	return delayFrom(cfg.SessionExtractionDelayMs, fallback)
}

func (c *Codex) sessionsDir(settings map[string]interface{}) (string, error) {
	cfg, err := c.decode(settings)
	if err != nil {
		return "", err
	}
	return pathutil.Expand(orDefault(cfg.SessionsDir, "~/.codex/sessions"))
}

type rolloutFile struct {
	name  string
	path  string
	mtime time.Time
}

// dayDirs returns the YYYY/MM/DD directories for t and its neighbouring days,
// which covers clock and timezone skew between codex and this process.
func dayDirs(root string, t time.Time) []string {
	var dirs []string
	for _, offset := range []int{0, -1, 1} {
		d := t.AddDate(0, 0, offset)
		dirs = append(dirs, filepath.Join(root, d.Format("2006"), d.Format("01"), d.Format("02")))
	}
	return dirs
}

func listRollouts(dir string) []rolloutFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []rolloutFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "rollout-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, rolloutFile{name: name, path: filepath.Join(dir, name), mtime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.After(files[j].mtime) })
	return files
}

func rolloutSessionID(name string) string {
	match := rolloutUUIDRegex.FindString(name)
	if match == "" {
		return ""
	}
	id, err := uuid.Parse(match)
	if err != nil {
		return ""
	}
	return id.String()
}

// ExtractSessionID returns the id of the newest rollout file touched within a
// minute of startTime.
func (c *Codex) ExtractSessionID(startTime time.Time, settings map[string]interface{}) (string, error) {
	root, err := c.sessionsDir(settings)
	if err != nil {
		return "", err
	}
	for _, dir := range dayDirs(root, startTime) {
		for _, file := range listRollouts(dir) {
			delta := file.mtime.Sub(startTime)
			if delta < 0 {
				delta = -delta
			}
			if delta >= rolloutMatchWindow {
				continue
			}
			if id := rolloutSessionID(file.name); id != "" {
				return id, nil
			}
		}
	}
	return "", nil
}

// LocateSessionFile searches the whole sessions tree for the rollout file
// of sessionID.
func (c *Codex) LocateSessionFile(sessionID string, settings map[string]interface{}) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	root, err := c.sessionsDir(settings)
	if err != nil {
		return "", err
	}
	suffix := "-" + strings.ToLower(sessionID) + ".jsonl"

	var found string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fs.SkipAll
			}
			return nil
		}
		name := strings.ToLower(d.Name())
		if !d.IsDir() && strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, suffix) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}

// codexSessionID reads the id from one event, whichever field carries it.
func codexSessionID(line []byte) string {
	if !gjson.ValidBytes(line) {
		return ""
	}
	event := gjson.ParseBytes(line)
	for _, path := range []string{"session_id", "sessionId", "session.id", "data.session_id", "msg.session_id", "payload.id"} {
		if path == "payload.id" && event.Get("type").String() != "session_meta" {
			continue
		}
		if id := event.Get(path).String(); id != "" {
			return id
		}
	}
	if event.Get("type").String() == "session.created" {
		return event.Get("id").String()
	}
	return ""
}

func (c *Codex) SessionIDFromEvent(line []byte) string {
	return codexSessionID(line)
}

// SessionIDFromLog scans from the end of the log so that the most recent
// session wins when a log holds more than one.
func (c *Codex) SessionIDFromLog(content []byte) string {
	lines := bytes.Split(content, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if id := codexSessionID(bytes.TrimSpace(lines[i])); id != "" {
			return id
		}
	}
	return ""
}

func (c *Codex) NewOutputFilter(dst io.Writer) io.WriteCloser {
	return newLineFilter(dst, projectCodexEvent)
}

// projectCodexEvent keeps assistant messages, reasoning headlines, shell
// commands and errors.
func projectCodexEvent(line []byte) (string, bool) {
	if !gjson.ValidBytes(line) {
		return string(line), true
	}
	event := gjson.ParseBytes(line)

	switch event.Get("type").String() {
	case "session.created":
		return "▸ session " + codexSessionID(line), true
	case "item.completed":
		item := event.Get("item")
		switch itemType(item) {
		case "assistant_message", "agent_message":
			return strings.TrimSpace(item.Get("text").String()), true
		case "reasoning":
			return "· " + firstLine(strings.TrimSpace(item.Get("text").String()), 120), true
		case "command_execution":
			return "$ " + item.Get("command").String(), true
		case "tool_call", "mcp_tool_call":
			return "→ " + firstNonEmpty(item.Get("tool_name").String(), item.Get("tool").String()), true
		}
		return "", false
	case "error", "turn.failed":
		return "✗ " + firstNonEmpty(event.Get("message").String(), event.Get("error.message").String()), true
	}
	return "", false
}

// itemType reads the item discriminator, which moved between codex releases.
func itemType(item gjson.Result) string {
	return firstNonEmpty(item.Get("item_type").String(), item.Get("type").String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
