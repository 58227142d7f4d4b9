// Package supervisor drives the lifecycle of one executor process:
// starting → running → completed | failed | stopped.
package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/grovetools/agents/command"
	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/logging"
	"github.com/grovetools/agents/pkg/executor"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/process"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// DefaultBackoff is the wait between pull-based session id extraction
// attempts after the first one.
var DefaultBackoff = []time.Duration{2 * time.Second, 3 * time.Second, 3 * time.Second}

// Supervisor spawns executor commands and keeps their records current.
type Supervisor struct {
	store   *sessions.Store
	builder *command.Builder
	clock   Clock
	stdout  io.Writer
	stderr  io.Writer
	backoff []time.Duration
	log     *logrus.Entry
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(s *Supervisor) { s.clock = clock }
}

// WithBuilder replaces the command builder.
func WithBuilder(builder *command.Builder) Option {
	return func(s *Supervisor) { s.builder = builder }
}

// WithOutput sets where interactive output and the completion summary go.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithBackoff replaces the extraction retry steps.
func WithBackoff(steps ...time.Duration) Option {
	return func(s *Supervisor) { s.backoff = steps }
}

// New creates a supervisor persisting to store.
func New(store *sessions.Store, opts ...Option) *Supervisor {
	s := &Supervisor{
		store:   store,
		builder: command.NewBuilder(),
		clock:   RealClock(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		backoff: DefaultBackoff,
		log:     logging.NewLogger("supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the supervisor's time source.
func (s *Supervisor) Clock() Clock {
	return s.clock
}

// RunSpec describes one supervised run. The record under Key must already be
// in Doc with status starting and a LogFile.
type RunSpec struct {
	Doc       *sessions.Document
	Key       string
	Executor  executor.Executor
	Settings  map[string]interface{}
	Command   executor.Command
	StartTime time.Time

	// Interactive streams the filtered output to the terminal and renders a
	// completion summary. Detached runners leave it off.
	Interactive bool

	// ExtractionDelay is the wait before the first pull-based extraction.
	ExtractionDelay time.Duration
}

// Outcome is what a supervised run ended with.
type Outcome struct {
	Key       string
	SessionID string
	Status    models.Status
	ExitCode  *int
	Signal    string
	Elapsed   time.Duration
	LogFile   string
	// Err is the spawn or setup failure, if any. It has already been
	// recorded and rendered.
	Err   error
	Notes []string
}

// Supervise runs spec to completion. Failures after the record exists are
// captured into the record and the outcome; they are never returned.
func (s *Supervisor) Supervise(ctx context.Context, spec RunSpec) *Outcome {
	rec, ok := spec.Doc.Get(spec.Key)
	if !ok {
		return &Outcome{Key: spec.Key, Status: models.StatusFailed, Err: errors.New(errors.ErrCodeInternal, "no session record to supervise")}
	}

	log := s.log.WithFields(logrus.Fields{"key": spec.Key, "executor": spec.Executor.Key()})
	queue := newPersistQueue(s.store, spec.Doc, spec.Key, rec, log)
	defer queue.close()

	logFile, err := openLog(rec.LogFile)
	if err != nil {
		return s.fail(queue, spec, errors.Wrap(err, errors.ErrCodeInternal, "failed to open log file"))
	}
	defer logFile.Close()
	raw := &lockedWriter{w: logFile}

	cmd, err := s.builder.Build(ctx, command.Spec{
		Name: spec.Command.Name,
		Args: spec.Command.Args,
		Dir:  spec.Command.Options.Dir,
		Env:  spec.Command.Options.Env,
	})
	if err != nil {
		return s.fail(queue, spec, errors.SpawnFailed(spec.Command.Name, err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.fail(queue, spec, errors.SpawnFailed(spec.Command.Name, err))
	}
	if spec.Interactive {
		cmd.Stderr = io.MultiWriter(raw, s.stderr)
	} else {
		cmd.Stderr = raw
	}

	if err := cmd.Start(); err != nil {
		return s.fail(queue, spec, errors.SpawnFailed(spec.Command.Name, err))
	}

	pid := cmd.Process.Pid
	log.WithField("pid", pid).Debug("Executor started")
	_ = queue.submitWait("running", func(r *models.SessionRecord) bool {
		r.Status = models.StatusRunning
		r.ExecutorPID = pid
		return true
	})

	var filter io.WriteCloser
	if spec.Interactive {
		filter = spec.Executor.NewOutputFilter(s.stdout)
	}

	exited := make(chan struct{})
	pumped := make(chan struct{})
	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(pumped)
		s.pump(stdout, raw, filter, spec.Executor, queue, log)
	})
	wg.Go(func() {
		s.extract(spec, queue, exited, log)
	})

	<-pumped
	waitErr := cmd.Wait()
	close(exited)
	wg.Wait()

	if filter != nil {
		if err := filter.Close(); err != nil {
			log.WithError(err).Debug("Terminal output stopped early")
		}
	}

	s.recoverFromLog(rec.LogFile, spec.Executor, queue)

	exitCode, signal := exitInfo(cmd.ProcessState)
	if exitCode == nil && signal == "" && waitErr != nil {
		log.WithError(waitErr).Warn("Executor wait failed")
	}
	now := s.clock.Now()
	_ = queue.submitWait("exit", recordExit(exitCode, signal, now))
	queue.close()

	outcome := s.outcome(queue.snapshot(), spec)
	log.WithFields(logrus.Fields{"status": outcome.Status, "session_id": outcome.SessionID}).Info("Executor finished")
	if spec.Interactive {
		RenderSummary(s.stdout, outcome)
	}
	return outcome
}

// recordExit stores how the executor ended. A stopped record keeps the
// signal stop sent.
func recordExit(exitCode *int, signal string, now time.Time) func(r *models.SessionRecord) bool {
	return func(r *models.SessionRecord) bool {
		r.ExitCode = exitCode
		if signal != "" && !(r.Status == models.StatusStopped && r.Signal != "") {
			r.Signal = signal
		}
		r.LastUsedAt = now
		switch {
		case r.Status == models.StatusStopped:
		case exitCode != nil && *exitCode == 0:
			r.Status = models.StatusCompleted
		default:
			r.Status = models.StatusFailed
		}
		return true
	}
}

// fail records a failure that happened before or while spawning.
func (s *Supervisor) fail(queue *persistQueue, spec RunSpec, cause error) *Outcome {
	now := s.clock.Now()
	_ = queue.submitWait("failed", func(r *models.SessionRecord) bool {
		r.Status = models.StatusFailed
		r.Error = cause.Error()
		r.LastUsedAt = now
		return true
	})
	queue.close()

	outcome := s.outcome(queue.snapshot(), spec)
	outcome.Err = cause
	s.log.WithError(cause).WithField("key", spec.Key).Error("Executor could not be started")
	if spec.Interactive {
		RenderSummary(s.stdout, outcome)
	}
	return outcome
}

func (s *Supervisor) outcome(rec *models.SessionRecord, spec RunSpec) *Outcome {
	outcome := &Outcome{
		Key:       spec.Key,
		SessionID: rec.SessionID,
		Status:    rec.Status,
		ExitCode:  rec.ExitCode,
		Signal:    rec.Signal,
		Elapsed:   s.clock.Now().Sub(spec.StartTime),
		LogFile:   rec.LogFile,
	}
	if rec.SessionID == "" {
		outcome.Notes = append(outcome.Notes, "session id not captured; check the log for details")
	}
	if rec.Status == models.StatusStopped {
		outcome.Notes = append(outcome.Notes, "session was stopped")
	}
	return outcome
}

// pump copies the raw stream to the log unchanged, feeds the terminal
// filter, and watches for the session-created event.
func (s *Supervisor) pump(r io.Reader, raw io.Writer, filter io.Writer, exec executor.Executor, queue *persistQueue, log *logrus.Entry) {
	reader := bufio.NewReaderSize(r, 64*1024)
	found := false
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if _, werr := raw.Write(line); werr != nil {
				log.WithError(werr).Warn("Failed to write to log file")
			}
			if filter != nil {
				_, _ = filter.Write(line)
			}
			trimmed := bytes.TrimSpace(line)
			if !found && len(trimmed) > 0 {
				if id := exec.SessionIDFromEvent(trimmed); id != "" {
					found = true
					queue.submit("session-id", assignSessionID(id))
				} else if trimmed[0] == '{' && !json.Valid(trimmed) {
					log.WithError(errors.StreamParse(string(trimmed), nil)).Debug("Skipping malformed event")
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Debug("Executor output closed")
			}
			return
		}
	}
}

// extract runs the pull-based extraction: once after the delay, then once
// per backoff step. When the process exits first, one last attempt is made
// straight away.
func (s *Supervisor) extract(spec RunSpec, queue *persistQueue, exited <-chan struct{}, log *logrus.Entry) {
	steps := append([]time.Duration{spec.ExtractionDelay}, s.backoff...)
	for _, wait := range steps {
		select {
		case <-s.clock.After(wait):
		case <-exited:
			s.tryExtract(spec, queue, log)
			return
		}
		if s.tryExtract(spec, queue, log) {
			return
		}
	}
}

func (s *Supervisor) tryExtract(spec RunSpec, queue *persistQueue, log *logrus.Entry) bool {
	if queue.snapshot().SessionID != "" {
		return true
	}
	id, err := spec.Executor.ExtractSessionID(spec.StartTime, spec.Settings)
	if err != nil {
		log.WithError(err).Debug("Session id extraction failed")
		return false
	}
	if id == "" {
		return false
	}
	queue.submit("session-id", assignSessionID(id))
	return true
}

// recoverFromLog reads the id from the complete raw log when neither the
// stream scanner nor the extractor found it.
func (s *Supervisor) recoverFromLog(path string, exec executor.Executor, queue *persistQueue) {
	if queue.snapshot().SessionID != "" {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if id := exec.SessionIDFromLog(content); id != "" {
		queue.submit("session-id", assignSessionID(id))
	}
}

func assignSessionID(id string) func(r *models.SessionRecord) bool {
	return func(r *models.SessionRecord) bool {
		return r.AssignSessionID(id)
	}
}

// exitInfo returns the exit code, or the signal name when the process was
// killed by a signal.
func exitInfo(state *os.ProcessState) (*int, string) {
	if state == nil {
		return nil, ""
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return nil, process.SignalName(ws.Signal())
	}
	return models.IntPtr(state.ExitCode()), ""
}

func openLog(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInternal, "session record has no log file")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// lockedWriter lets the stdout pump and the stderr copier share the log.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
