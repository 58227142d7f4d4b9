package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Success("Session started")
	p.Warn("session store unreadable")
	p.Error("failed to start", errors.New("exec: not found"))
	p.Field("Session", "abc123")
	p.Command("View", "agents view abc123")

	out := buf.String()
	for _, want := range []string{"Session started", "session store unreadable", "exec: not found", "abc123", "agents view abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
