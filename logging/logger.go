// Package logging hands out per-component logrus loggers configured from the
// `logging` section of agents.yml.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/agents/config"
	"github.com/grovetools/agents/pkg/paths"
	"github.com/grovetools/agents/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	loggers = make(map[string]*logrus.Entry)

	// Set from the command line; they win over the configuration.
	levelOverride  *logrus.Level
	formatOverride string
)

// NewLogger returns the logger for component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()

	if entry, ok := loggers[component]; ok {
		return entry
	}

	cfg := loadConfig()
	logger := logrus.New()
	logger.SetLevel(levelFor(cfg))
	logger.SetReportCaller(cfg.ReportCaller || os.Getenv("GROVE_LOG_CALLER") == "true")
	logger.SetFormatter(formatterFor(cfg.Format))
	logger.SetOutput(outputFor(cfg, logger))

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// SetLevel changes the level of every existing and future logger.
func SetLevel(level logrus.Level) {
	mu.Lock()
	defer mu.Unlock()

	levelOverride = &level
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
	}
}

// SetFormat switches every existing and future logger to a format preset.
func SetFormat(preset string) {
	mu.Lock()
	defer mu.Unlock()

	formatOverride = preset
	for _, entry := range loggers {
		entry.Logger.SetFormatter(formatterFor(FormatConfig{Preset: preset}))
	}
}

func loadConfig() Config {
	var cfg Config
	loaded, err := config.LoadDefault()
	if err != nil {
		return cfg
	}
	if err := loaded.UnmarshalSection("logging", &cfg); err != nil {
		logrus.Warnf("Ignoring invalid logging configuration: %v", err)
	}
	if formatOverride != "" {
		cfg.Format = FormatConfig{Preset: formatOverride}
	}
	return cfg
}

func levelFor(cfg Config) logrus.Level {
	if levelOverride != nil {
		return *levelOverride
	}
	name := os.Getenv("GROVE_LOG_LEVEL")
	if name == "" {
		name = cfg.Level
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func formatterFor(format FormatConfig) logrus.Formatter {
	switch format.Preset {
	case FormatJSON:
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	case FormatPlain:
		return &TextFormatter{Config: FormatConfig{NoTimestamp: true, NoComponent: true}}
	}
	return &TextFormatter{Config: format}
}

// outputFor combines the file sink with stderr when wanted.
func outputFor(cfg Config, logger *logrus.Logger) io.Writer {
	var sinks []io.Writer
	if file := openLogFile(cfg.File); file != nil {
		sinks = append(sinks, file)
	}
	if wantStderr(cfg.Stderr, logger.GetLevel()) {
		sinks = append(sinks, os.Stderr)
	}
	switch len(sinks) {
	case 0:
		return io.Discard
	case 1:
		return sinks[0]
	}
	return io.MultiWriter(sinks...)
}

func openLogFile(configured string) io.Writer {
	if configured == "off" {
		return nil
	}
	path := defaultLogFile()
	if configured != "" {
		expanded, err := pathutil.Expand(configured)
		if err != nil {
			return nil
		}
		path = expanded
	}
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return file
}

func defaultLogFile() string {
	dir := paths.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "logs", "agents-"+time.Now().Format("2006-01-02")+".log")
}

// wantStderr keeps diagnostics off an interactive terminal unless debugging.
func wantStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("GROVE_DEBUG") == "1" || level >= logrus.DebugLevel {
		return true
	}
	return !IsInteractive(os.Stderr)
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
