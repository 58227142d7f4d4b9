package executor

import (
	"bytes"
	"io"
	"sync"
)

// projector turns one raw event line into the text shown at the terminal.
// Returning false drops the line.
type projector func(line []byte) (string, bool)

// lineFilter buffers writes into complete lines and forwards each projected
// line to dst. Errors writing to dst are remembered but never returned to the
// process writing the stream: the raw log must keep receiving bytes even if
// the terminal goes away.
type lineFilter struct {
	mu      sync.Mutex
	dst     io.Writer
	project projector
	buf     []byte
	err     error
}

func newLineFilter(dst io.Writer, project projector) *lineFilter {
	return &lineFilter{dst: dst, project: project}
}

func (f *lineFilter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf = append(f.buf, p...)
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		f.emit(f.buf[:idx])
		f.buf = f.buf[idx+1:]
	}
	return len(p), nil
}

// Close flushes a trailing partial line.
func (f *lineFilter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.buf) > 0 {
		f.emit(f.buf)
		f.buf = nil
	}
	return f.err
}

func (f *lineFilter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	text, ok := f.project(line)
	if !ok || f.err != nil {
		return
	}
	if _, err := io.WriteString(f.dst, text+"\n"); err != nil {
		f.err = err
	}
}

// firstLine returns s up to its first newline, shortened to max runes.
func firstLine(s string, max int) string {
	if idx := bytes.IndexByte([]byte(s), '\n'); idx >= 0 {
		s = s[:idx]
	}
	runes := []rune(s)
	if max > 0 && len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return s
}
