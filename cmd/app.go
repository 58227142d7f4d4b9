// Package cmd holds the agents subcommands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/agents/cli"
	"github.com/grovetools/agents/config"
	"github.com/grovetools/agents/pkg/background"
	"github.com/grovetools/agents/pkg/executor"
	"github.com/grovetools/agents/pkg/paths"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/grovetools/agents/pkg/supervisor"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app is the per-invocation context every subcommand builds first.
type app struct {
	cfg      *config.Config
	layered  *config.LayeredConfig
	layout   paths.Layout
	store    *sessions.Store
	registry *executor.Registry
	hints    background.Hints
	opts     cli.CommandOptions
	log      *logrus.Entry
	out      io.Writer
	errOut   io.Writer
	cwd      string
	now      func() time.Time
}

func newApp(cmd *cobra.Command) (*app, error) {
	opts := cli.GetOptions(cmd)
	log := cli.GetLogger(cmd, "agents")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	layered, err := config.LoadLayered(cwd, log.Logger, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg := layered.Final

	layout := paths.ResolveLayout(cfg.Paths.BaseDir, paths.Layout{
		SessionsFile:  cfg.Paths.SessionsFile,
		LogsDir:       cfg.Paths.LogsDir,
		BackgroundDir: cfg.Paths.BackgroundDir,
		AgentsDir:     cfg.Paths.AgentsDir,
	})
	if err := layout.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create state directories: %w", err)
	}

	registry, _ := executor.Discover()
	if len(cfg.Executors) > 0 {
		names := make([]string, 0, len(cfg.Executors))
		for name := range cfg.Executors {
			names = append(names, name)
		}
		if _, unknown := executor.Discover(names...); len(unknown) > 0 {
			log.WithField("executors", unknown).Warn("Ignoring configuration for unknown executors")
		}
	}

	a := &app{
		cfg:      cfg,
		layered:  layered,
		layout:   layout,
		registry: registry,
		hints:    background.HintsFromEnv(os.Getenv),
		opts:     opts,
		log:      log,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		cwd:      cwd,
		now:      time.Now,
	}
	a.store = sessions.NewStore(layout.SessionsFile, func(err error) {
		fmt.Fprintf(a.errOut, "⚠️  %v; continuing with an empty session list\n", err)
		log.WithError(err).Warn("Session store unreadable")
	})
	return a, nil
}

// resolver maps session ids to records, asking every executor for an
// on-disk trace to explain misses.
func (a *app) resolver() *sessions.Resolver {
	var locators []sessions.Locator
	for _, key := range a.registry.Keys() {
		exec, err := a.registry.Get(key)
		if err != nil {
			continue
		}
		settings, err := a.registry.ResolveSettings(key, a.cfg.ExecutorOverrides(key), nil, nil)
		if err != nil {
			continue
		}
		locators = append(locators, func(id string) (string, error) {
			return exec.LocateSessionFile(id, settings)
		})
	}
	return sessions.NewResolver(a.store, locators...)
}

func (a *app) supervisor() *supervisor.Supervisor {
	return supervisor.New(a.store, supervisor.WithOutput(a.out, a.errOut))
}

func (a *app) launcher() *background.Launcher {
	bg := a.cfg.Background
	interval := time.Duration(bg.PollIntervalMs) * time.Millisecond
	timeout := time.Duration(bg.PollTimeoutMs) * time.Millisecond
	return background.NewLauncher(a.store,
		background.WithPolling(interval, timeout),
		background.WithDetach(bg.Detach),
	)
}

// extractionFallback is the configured wait before pull-based extraction.
func (a *app) extractionFallback() time.Duration {
	return time.Duration(a.cfg.Background.SessionExtractionDelayMs) * time.Millisecond
}

func (a *app) instructionsDir() string {
	return filepath.Join(a.layout.BackgroundDir, "instructions")
}

func (a *app) runnerLog(key string) string {
	return filepath.Join(a.layout.BackgroundDir, key+".runner.log")
}
