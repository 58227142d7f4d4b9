package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// projectConfigNames are searched in order inside <workspace>/.grove.
var projectConfigNames = []string{
	"agents.yml",
	"agents.yaml",
	"agents.toml",
}

// overrideConfigNames are merged last, in order, when present.
var overrideConfigNames = []string{
	"agents.override.yml",
	"agents.override.yaml",
}

// DefaultDocument returns the built-in configuration layer.
func DefaultDocument() map[string]interface{} {
	return map[string]interface{}{
		"defaults": map[string]interface{}{
			"executor":      "codex",
			"executionMode": "default",
			"background":    false,
		},
		"background": map[string]interface{}{
			"enabled":                  true,
			"detach":                   true,
			"pollIntervalMs":           500,
			"pollTimeoutMs":            20000,
			"sessionExtractionDelayMs": 5000,
		},
	}
}

// LoadDefault loads the configuration for the current working directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return Load(cwd)
}

// Load loads configuration with hierarchical merging starting from startDir.
func Load(startDir string) (*Config, error) {
	return LoadWithLogger(startDir, logrus.New())
}

// LoadWithLogger loads configuration with hierarchical merging:
// 1. Built-in defaults
// 2. Global config (<config dir>/agents.yml)
// 3. Project config (<workspace>/.grove/agents.{yml,yaml,toml})
// 4. Local overrides (<workspace>/.grove/agents.override.yml)
func LoadWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	layered, err := LoadLayered(startDir, logger)
	if err != nil {
		return nil, err
	}
	return layered.Final, nil
}

// LoadLayered loads every configuration layer and keeps them for inspection.
// Extra files are merged last, in order, and must exist.
func LoadLayered(startDir string, logger *logrus.Logger, extra ...string) (*LayeredConfig, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}

	layered := &LayeredConfig{}
	merged := DefaultDocument()
	layered.Layers = append(layered.Layers, Layer{Source: SourceDefault, Data: DefaultDocument()})

	apply := func(source ConfigSource, path string) error {
		data, err := readLayer(path)
		if err != nil {
			return err
		}
		if err := validator.Validate(data); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed").
				WithDetail("path", path)
		}
		logger.WithField("path", path).Debugf("Merging %s configuration", source)
		layered.Layers = append(layered.Layers, Layer{Source: source, Path: path, Data: data})
		merged = DeepMerge(merged, data)
		return nil
	}

	if globalPath := paths.GlobalConfigFile(); globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			if err := apply(SourceGlobal, globalPath); err != nil {
				return nil, err
			}
		}
	}

	root := paths.FindWorkspaceRoot(startDir)
	if projectPath := FindProjectConfig(root); projectPath != "" {
		if err := apply(SourceProject, projectPath); err != nil {
			return nil, err
		}
	}

	for _, name := range overrideConfigNames {
		overridePath := filepath.Join(root, ".grove", name)
		if _, err := os.Stat(overridePath); err != nil {
			continue
		}
		if err := apply(SourceOverride, overridePath); err != nil {
			return nil, err
		}
	}

	for _, path := range extra {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return nil, errors.ConfigNotFound(path)
		}
		if err := apply(SourceExplicit, path); err != nil {
			return nil, err
		}
	}

	final, err := fromDocument(merged)
	if err != nil {
		return nil, err
	}
	if final.Paths.BaseDir == "" {
		final.Paths.BaseDir = root
	}
	layered.Final = final

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(merged); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}

	return layered, nil
}

// LoadFromBytes parses a single YAML (or TOML when isTOML) document on top of
// the built-in defaults.
func LoadFromBytes(data []byte, isTOML bool) (*Config, error) {
	doc, err := parseDocument(data, isTOML)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration")
	}

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	return fromDocument(DeepMerge(DefaultDocument(), doc))
}

// FindProjectConfig returns the project config file inside root/.grove, or "".
func FindProjectConfig(root string) string {
	for _, name := range projectConfigNames {
		path := filepath.Join(root, ".grove", name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func fromDocument(doc map[string]interface{}) (*Config, error) {
	var cfg Config
	if err := decode(doc, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	cfg.raw = doc
	return &cfg, nil
}

func readLayer(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	doc, err := parseDocument(data, strings.HasSuffix(path, ".toml"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").
			WithDetail("path", path)
	}
	return doc, nil
}

// parseDocument decodes YAML or TOML into a JSON-compatible generic map.
func parseDocument(data []byte, isTOML bool) (map[string]interface{}, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var doc map[string]interface{}
	if isTOML {
		if err := toml.Unmarshal(expanded, &doc); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(expanded, &doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		return map[string]interface{}{}, nil
	}

	// Round-trip through JSON so numbers and nested maps share one shape
	// regardless of the source format.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var normalized map[string]interface{}
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
