// Package agents loads agent definitions: markdown files whose frontmatter
// selects an executor and whose body is the agent's instructions.
package agents

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/util/frontmatter"
	"github.com/grovetools/agents/util/sanitize"
)

// Extension of agent definition files.
const Extension = ".md"

// Definition is one parsed agent file.
type Definition struct {
	Name        string
	Description string
	Path        string
	Executor    string
	Mode        string
	// Background is nil when the agent leaves it to the configuration.
	Background *bool
	// Overrides are the remaining keys of the agents block, flat.
	Overrides    map[string]interface{}
	Instructions string
}

type document struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Agents      map[string]interface{} `yaml:"agents"`
}

// reserved keys of the agents block; everything else is an executor override.
var reserved = map[string]bool{
	"executor":      true,
	"background":    true,
	"mode":          true,
	"executionMode": true,
	"preset":        true,
}

// Load reads <dir>/<name>.md. Names may contain slashes to address nested
// definitions but may not leave dir.
func Load(dir, name string) (*Definition, error) {
	path, err := definitionPath(dir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AgentNotFound(name).WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeAgentNotFound, fmt.Sprintf("failed to read agent '%s'", name)).
			WithDetail("path", path)
	}
	return parse(name, path, string(data))
}

func definitionPath(dir, name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), Extension)
	if name == "" {
		return "", errors.MissingArgument("agent", "agents run <agent> \"<prompt>\"")
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.AgentNotFound(name)
	}
	return filepath.Join(dir, clean+Extension), nil
}

func parse(name, path, content string) (*Definition, error) {
	var doc document
	body, err := frontmatter.ParseString(content, &doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("agent '%s' has invalid frontmatter", name)).
			WithDetail("path", path)
	}

	def := &Definition{
		Name:         name,
		Description:  doc.Description,
		Path:         path,
		Instructions: strings.TrimSpace(body),
		Overrides:    make(map[string]interface{}),
	}
	if doc.Name != "" {
		def.Name = doc.Name
	}
	block := doc.Agents
	for key := range reserved {
		if value, ok := block[key]; ok && !validReserved(key, value) {
			return nil, errors.ConfigInvalid(fmt.Sprintf("agent '%s': agents.%s has the wrong type", name, key)).
				WithDetail("path", path)
		}
	}
	def.Executor, _ = block["executor"].(string)
	for _, key := range []string{"mode", "executionMode", "preset"} {
		if mode, _ := block[key].(string); mode != "" {
			def.Mode = mode
			break
		}
	}
	if bg, ok := block["background"].(bool); ok {
		def.Background = &bg
	}
	for key, value := range block {
		if !reserved[key] {
			def.Overrides[key] = value
		}
	}
	return def, nil
}

// validReserved reports whether a reserved key holds a value of its type.
// background is a bool and the rest are strings.
func validReserved(key string, value interface{}) bool {
	if value == nil {
		return true
	}
	if key == "background" {
		_, ok := value.(bool)
		return ok
	}
	_, ok := value.(string)
	return ok
}

// WriteInstructions stores the instructions body in dir so executors can be
// pointed at a file. It returns "" when the agent has no instructions.
func (d *Definition) WriteInstructions(dir string) (string, error) {
	if d.Instructions == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitize.ForLogFileName(d.Name)+".instructions.md")
	if err := os.WriteFile(path, []byte(d.Instructions+"\n"), 0644); err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

// List returns the names of every definition under dir, sorted. A missing
// directory yields no names.
func List(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if entry.IsDir() || filepath.Ext(path) != Extension {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, Extension)))
		return nil
	})
	sort.Strings(names)
	return names, err
}
