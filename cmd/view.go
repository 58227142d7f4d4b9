package cmd

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/process"
	"github.com/grovetools/agents/pkg/transcript"
	"github.com/grovetools/agents/tui/theme"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// followCheckInterval is how often --follow looks at the session status.
const followCheckInterval = time.Second

// NewViewCmd creates the `view` command.
func NewViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <sessionId>",
		Short: "Show the transcript of a session",
		Long: `Rebuild a readable transcript from the session's log. By default the
last five messages and a metrics summary are shown.

Examples:
  agents view 0199a213-81c0-7800-8aa1-bbab2a035a53
  agents view 0199a213-81c0-7800-8aa1-bbab2a035a53 --full
  agents view 0199a213-81c0-7800-8aa1-bbab2a035a53 --follow`,
		RunE: runViewE,
	}
	cmd.Flags().Bool("full", false, "Show every message")
	cmd.Flags().Bool("live", false, "Show only the latest assistant message")
	cmd.Flags().BoolP("follow", "f", false, "Keep printing the latest message while the session runs")
	cmd.Flags().Bool("raw", false, "Print the log without parsing it")
	return cmd
}

func viewMode(cmd *cobra.Command) transcript.Mode {
	if full, _ := cmd.Flags().GetBool("full"); full {
		return transcript.ModeFull
	}
	if live, _ := cmd.Flags().GetBool("live"); live {
		return transcript.ModeLive
	}
	return transcript.ModeDefault
}

func runViewE(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return errors.MissingArgument("sessionId", "agents view <sessionId>")
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	doc := a.store.Load()
	resolved, err := a.resolver().Resolve(doc, args[0])
	if err != nil {
		return err
	}
	rec := resolved.Record
	if resolved.Recovered {
		fmt.Fprintln(a.errOut, theme.DefaultTheme.Muted.Render("Recovered the session id from its log."))
	}
	if rec.LogFile == "" {
		return errors.New(errors.ErrCodeSessionNotFound, fmt.Sprintf("session '%s' has no log file", args[0]))
	}

	raw, _ := cmd.Flags().GetBool("raw")
	if follow, _ := cmd.Flags().GetBool("follow"); follow {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return a.follow(ctx, resolved.Key, rec, raw)
	}

	f, err := os.Open(rec.LogFile)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSessionNotFound, "failed to open session log").
			WithDetail("path", rec.LogFile)
	}
	defer f.Close()

	if raw {
		_, err := io.Copy(a.out, f)
		return err
	}

	tr, err := transcript.Parse(f, transcript.ParserFor(rec.Executor))
	if err != nil {
		return fmt.Errorf("failed to read session log: %w", err)
	}
	if a.opts.JSONOutput {
		return printJSON(a, map[string]interface{}{
			"sessionId": rec.SessionID,
			"status":    rec.Status,
			"messages":  transcript.Slice(tr.Messages, viewMode(cmd)),
			"metrics":   tr.Metrics,
		})
	}

	a.printViewHeader(rec)
	return transcript.Render(a.out, tr, transcript.RenderOptions{Mode: viewMode(cmd)})
}

func (a *app) printViewHeader(rec *models.SessionRecord) {
	th := theme.DefaultTheme
	id := rec.SessionID
	if id == "" {
		id = "(no session id)"
	}
	fmt.Fprintf(a.out, "%s %s %s\n", th.Bold.Render(id),
		th.Muted.Render(rec.Agent+" · "+rec.Executor),
		theme.RenderStatus(string(rec.Status), string(rec.Status)))
	fmt.Fprintln(a.out, th.Muted.Render(rec.LogFile))
	fmt.Fprintln(a.out)
}

// follow tails the log and reprints the live slice whenever it changes. It
// returns once the session has finished and its processes are gone, or when
// ctx is done.
func (a *app) follow(ctx context.Context, key string, rec *models.SessionRecord, raw bool) error {
	t, err := tail.TailFile(rec.LogFile, tail.Config{
		Follow:    true,
		ReOpen:    false,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSessionNotFound, "failed to follow session log").
			WithDetail("path", rec.LogFile)
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	parser := transcript.ParserFor(rec.Executor)
	width := transcript.Width(a.out)
	var lines [][]byte
	var shown string
	closing := false

	render := func(final bool) error {
		tr := parser.Parse(lines)
		live := transcript.Slice(tr.Messages, transcript.ModeLive)
		signature := liveSignature(live)
		if signature == shown && !final {
			return nil
		}
		shown = signature
		return transcript.Render(a.out, &transcript.Transcript{Messages: live, Metrics: tr.Metrics},
			transcript.RenderOptions{Mode: transcript.ModeFull, Width: width, NoSummary: !final})
	}

	ticker := time.NewTicker(followCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				a.log.WithError(line.Err).Debug("Tail error")
				continue
			}
			if raw {
				fmt.Fprintln(a.out, line.Text)
				continue
			}
			lines = append(lines, []byte(line.Text))
			if err := render(false); err != nil {
				return err
			}
		case <-ticker.C:
			if closing {
				if raw {
					return nil
				}
				return render(true)
			}
			current, ok := a.store.Load().Get(key)
			if ok && current.Status.IsTerminal() && len(process.LivePIDs(current.TrackedPIDs()...)) == 0 {
				// One more tick lets the tail drain what was written last.
				closing = true
			}
		}
	}
}

// liveSignature identifies the rendered live slice so unchanged output is
// not printed again.
func liveSignature(messages []models.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteByte(0)
		b.WriteString(m.Title)
		b.WriteByte(0)
		b.WriteString(strings.Join(m.Body, "\n"))
		b.WriteByte(0)
	}
	return b.String()
}
