package background

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/agents/command"
	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/logging"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/grovetools/agents/pkg/supervisor"
	"github.com/sirupsen/logrus"
)

// Defaults for the poll loop.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPollTimeout  = 20 * time.Second
)

// Launcher forks runners and polls the store for their session ids.
type Launcher struct {
	store      *sessions.Store
	builder    *command.Builder
	clock      supervisor.Clock
	executable func() (string, error)
	interval   time.Duration
	timeout    time.Duration
	detach     bool
	watch      bool
	log        *logrus.Entry
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithClock replaces the wall clock.
func WithClock(clock supervisor.Clock) Option {
	return func(l *Launcher) { l.clock = clock }
}

// WithBuilder replaces the command builder.
func WithBuilder(builder *command.Builder) Option {
	return func(l *Launcher) { l.builder = builder }
}

// WithExecutable sets how the launcher finds the binary to re-run.
func WithExecutable(fn func() (string, error)) Option {
	return func(l *Launcher) { l.executable = fn }
}

// WithPolling sets the poll interval and timeout. Non-positive values keep
// the defaults.
func WithPolling(interval, timeout time.Duration) Option {
	return func(l *Launcher) {
		if interval > 0 {
			l.interval = interval
		}
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// WithDetach controls whether runners get their own session.
func WithDetach(detach bool) Option {
	return func(l *Launcher) { l.detach = detach }
}

// WithWatch enables waking the poll loop on store writes.
func WithWatch(watch bool) Option {
	return func(l *Launcher) { l.watch = watch }
}

// NewLauncher creates a launcher over store.
func NewLauncher(store *sessions.Store, opts ...Option) *Launcher {
	l := &Launcher{
		store:      store,
		builder:    command.NewBuilder(),
		clock:      supervisor.RealClock(),
		executable: os.Executable,
		interval:   DefaultPollInterval,
		timeout:    DefaultPollTimeout,
		detach:     true,
		watch:      true,
		log:        logging.NewLogger("background"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LaunchSpec describes one detached run. The record under Key must already
// exist in the store.
type LaunchSpec struct {
	Key       string
	Args      []string
	Dir       string
	StartTime time.Time
	LogFile   string
	// RunnerLog receives the runner's own stdout and stderr.
	RunnerLog string
}

// Result is the launcher's report.
type Result struct {
	Key       string
	RunnerPID int
	SessionID string
	// TimedOut is set when no session id appeared within the poll timeout.
	TimedOut bool
}

// Launch forks the runner, records its PID and polls for the session id.
func (l *Launcher) Launch(ctx context.Context, spec LaunchSpec) (*Result, error) {
	log := l.log.WithField("key", spec.Key)

	pid, err := l.start(spec)
	if err != nil {
		now := l.clock.Now()
		if _, uerr := l.store.Update(spec.Key, func(r *models.SessionRecord) {
			r.Status = models.StatusFailed
			r.Error = err.Error()
			r.LastUsedAt = now
		}); uerr != nil {
			log.WithError(uerr).Warn("Failed to record launch failure")
		}
		return &Result{Key: spec.Key}, err
	}
	log.WithField("runner_pid", pid).Info("Background runner started")

	if _, err := l.store.Update(spec.Key, func(r *models.SessionRecord) {
		r.RunnerPID = pid
		r.Background = true
		if r.Status == models.StatusStarting {
			r.Status = models.StatusRunning
		}
	}); err != nil {
		log.WithError(err).Warn("Failed to record runner pid")
	}

	id, ok := l.Poll(ctx, spec.Key)
	return &Result{Key: spec.Key, RunnerPID: pid, SessionID: id, TimedOut: !ok}, nil
}

func (l *Launcher) start(spec LaunchSpec) (int, error) {
	exe, err := l.executable()
	if err != nil {
		return 0, errors.SpawnFailed("agents", err)
	}

	if err := os.MkdirAll(filepath.Dir(spec.RunnerLog), 0755); err != nil {
		return 0, errors.SpawnFailed(exe, err)
	}
	out, err := os.OpenFile(spec.RunnerLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, errors.SpawnFailed(exe, err)
	}
	defer out.Close()

	hints := Hints{Runner: true, StartTime: spec.StartTime, LogFile: spec.LogFile}
	// The runner must outlive this process, so it is not tied to ctx.
	cmd, err := l.builder.Build(context.Background(), command.Spec{
		Name:   exe,
		Args:   spec.Args,
		Dir:    spec.Dir,
		Env:    hints.Env(),
		Detach: l.detach,
	})
	if err != nil {
		return 0, errors.SpawnFailed(exe, err)
	}
	cmd.Stdin = nil
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return 0, errors.SpawnFailed(exe, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		l.log.WithError(err).Debug("Failed to release runner process")
	}
	return pid, nil
}

// Poll waits for the record under key to get a session id. It returns false
// once the timeout passes or ctx is done. It never writes to the store.
func (l *Launcher) Poll(ctx context.Context, key string) (string, bool) {
	var wake <-chan struct{}
	if l.watch {
		changed, stop, err := WatchStore(l.store.Path(), l.log)
		if err != nil {
			l.log.WithError(err).Debug("Store watch unavailable, polling only")
		} else {
			defer stop()
			wake = changed
		}
	}

	deadline := l.clock.Now().Add(l.timeout)
	for {
		if rec, ok := l.store.Load().Get(key); ok && rec.SessionID != "" {
			return rec.SessionID, true
		}
		if !l.clock.Now().Before(deadline) {
			return "", false
		}
		select {
		case <-l.clock.After(l.interval):
		case <-wake:
		case <-ctx.Done():
			return "", false
		}
	}
}
