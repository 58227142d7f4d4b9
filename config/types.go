package config

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Config is the typed view of the merged agents configuration.
type Config struct {
	Defaults       Defaults                          `yaml:"defaults,omitempty" jsonschema:"description=Fallback executor and execution mode"`
	Paths          PathsConfig                       `yaml:"paths,omitempty" jsonschema:"description=State layout overrides relative to the workspace root"`
	Background     BackgroundConfig                  `yaml:"background,omitempty" jsonschema:"description=Detached execution settings"`
	Executors      map[string]map[string]interface{} `yaml:"executors,omitempty" jsonschema:"description=Per-executor default overrides"`
	ExecutionModes map[string]ExecutionMode          `yaml:"executionModes,omitempty" jsonschema:"description=Named execution modes"`
	Presets        map[string]ExecutionMode          `yaml:"presets,omitempty" jsonschema:"description=Legacy name for executionModes"`
	Logging        map[string]interface{}            `yaml:"logging,omitempty" jsonschema:"description=Logging configuration"`

	raw map[string]interface{}
}

// Defaults selects the executor and mode when neither the agent nor the command line does.
type Defaults struct {
	Executor      string `yaml:"executor,omitempty"`
	ExecutionMode string `yaml:"executionMode,omitempty"`
	Background    bool   `yaml:"background,omitempty"`
}

// PathsConfig overrides the state layout. Empty values fall back to defaults.
type PathsConfig struct {
	BaseDir       string `yaml:"baseDir,omitempty"`
	SessionsFile  string `yaml:"sessionsFile,omitempty"`
	LogsDir       string `yaml:"logsDir,omitempty"`
	BackgroundDir string `yaml:"backgroundDir,omitempty"`
	AgentsDir     string `yaml:"agentsDir,omitempty"`
}

// BackgroundConfig controls the detach-and-poll launcher.
type BackgroundConfig struct {
	Enabled                  bool `yaml:"enabled,omitempty"`
	Detach                   bool `yaml:"detach,omitempty"`
	PollIntervalMs           int  `yaml:"pollIntervalMs,omitempty" jsonschema:"minimum=1"`
	PollTimeoutMs            int  `yaml:"pollTimeoutMs,omitempty" jsonschema:"minimum=1"`
	SessionExtractionDelayMs int  `yaml:"sessionExtractionDelayMs,omitempty" jsonschema:"minimum=0"`
}

// ExecutionMode is a named bundle of executor overrides.
type ExecutionMode struct {
	Description string                 `yaml:"description,omitempty"`
	Executor    string                 `yaml:"executor,omitempty"`
	Overrides   map[string]interface{} `yaml:"overrides,omitempty"`
}

// Raw returns a copy of the merged document the typed view was decoded from.
func (c *Config) Raw() map[string]interface{} {
	return DeepClone(c.raw)
}

// ModeNames returns the names of all configured execution modes, sorted.
func (c *Config) ModeNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, modes := range []map[string]ExecutionMode{c.ExecutionModes, c.Presets} {
		for name := range modes {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// UnmarshalSection decodes a free-form section such as "logging" into target.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalSection("logging", &logCfg)
func (c *Config) UnmarshalSection(key string, target interface{}) error {
	section, ok := c.raw[key]
	if !ok {
		// A missing section leaves the target zero-valued.
		return nil
	}
	return decode(section, target)
}

// decode converts a generic map into a typed struct using `yaml` tags.
func decode(input interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

// Decode exposes the configuration decoder so executor packages can turn a
// merged settings map into their own typed schema.
func Decode(input map[string]interface{}, target interface{}) error {
	return decode(input, target)
}

// ConfigSource identifies the origin of a configuration layer.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceGlobal   ConfigSource = "global"
	SourceProject  ConfigSource = "project"
	SourceOverride ConfigSource = "override"
	SourceExplicit ConfigSource = "explicit"
)

// Layer is the raw content of one configuration source.
type Layer struct {
	Source ConfigSource
	Path   string
	Data   map[string]interface{}
}

// LayeredConfig holds every layer that contributed to Final, in merge order.
type LayeredConfig struct {
	Layers []Layer
	Final  *Config
}
