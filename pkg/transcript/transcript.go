// Package transcript rebuilds a readable conversation from an executor's raw
// event log.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/grovetools/agents/pkg/models"
	"github.com/tidwall/gjson"
)

// maxLineSize bounds a single event line.
const maxLineSize = 16 * 1024 * 1024

// Transcript is a parsed log.
type Transcript struct {
	Messages []models.ChatMessage
	Metrics  models.Metrics
}

// Parser turns the lines of one executor's log into a transcript.
type Parser interface {
	Parse(lines [][]byte) *Transcript
}

// ParserFor returns the parser for an executor key. Unknown executors get the
// codex parser, which also understands the generic item events.
func ParserFor(executorKey string) Parser {
	if executorKey == "claude" {
		return ClaudeParser{}
	}
	return CodexParser{}
}

// ReadLines splits a log into lines without trailing newlines.
func ReadLines(r io.Reader) ([][]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var lines [][]byte
	for scanner.Scan() {
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	return lines, scanner.Err()
}

// Parse reads a whole log and parses it with p.
func Parse(r io.Reader, p Parser) (*Transcript, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return p.Parse(lines), nil
}

type pendingText struct {
	role  models.Role
	title string
	text  strings.Builder
}

// builder accumulates messages. Streaming deltas are buffered by key until
// flushed; call ids map follow-up events to the message they belong to.
type builder struct {
	messages []models.ChatMessage
	calls    map[string]int
	pending  map[string]*pendingText
	order    []string
	stream   string
	metrics  models.Metrics
}

func newBuilder() *builder {
	return &builder{calls: make(map[string]int), pending: make(map[string]*pendingText)}
}

func (b *builder) push(role models.Role, title string, body ...string) int {
	var lines []string
	for _, line := range body {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	b.messages = append(b.messages, models.ChatMessage{Role: role, Title: title, Body: lines})
	return len(b.messages) - 1
}

// pushIfAny adds a message only when it has content.
func (b *builder) pushIfAny(role models.Role, title string, body ...string) {
	for _, line := range body {
		if strings.TrimSpace(line) != "" {
			b.push(role, title, body...)
			return
		}
	}
}

func (b *builder) appendTo(idx int, line string) {
	if idx < 0 || idx >= len(b.messages) || strings.TrimSpace(line) == "" {
		return
	}
	b.messages[idx].Body = append(b.messages[idx].Body, line)
}

// raw keeps a line that is not an event, so diagnostics survive.
func (b *builder) raw(line []byte) {
	b.messages = append(b.messages, models.ChatMessage{
		Role:  models.RoleAction,
		Title: "Raw output",
		Body:  []string{string(line)},
		Raw:   true,
	})
}

func (b *builder) buffer(key string, role models.Role, title, delta string) {
	p, ok := b.pending[key]
	if !ok {
		p = &pendingText{role: role, title: title}
		b.pending[key] = p
		b.order = append(b.order, key)
	}
	p.text.WriteString(delta)
}

// replace sets the buffered text for key to the full text seen so far.
func (b *builder) replace(key string, role models.Role, title, text string) {
	p, ok := b.pending[key]
	if !ok {
		b.buffer(key, role, title, text)
		return
	}
	p.text.Reset()
	p.text.WriteString(text)
}

// flush emits the buffered text for key. A non-empty final text wins over
// the buffered deltas.
func (b *builder) flush(key, final string) bool {
	p, ok := b.pending[key]
	if !ok {
		return false
	}
	delete(b.pending, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	text := final
	if strings.TrimSpace(text) == "" {
		text = p.text.String()
	}
	b.pushIfAny(p.role, p.title, strings.TrimSpace(text))
	return true
}

// drop forgets buffered text for key without emitting it.
func (b *builder) drop(key string) {
	if _, ok := b.pending[key]; !ok {
		return
	}
	delete(b.pending, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *builder) flushAll() {
	for len(b.order) > 0 {
		b.flush(b.order[0], "")
	}
}

func (b *builder) addError(msg string) {
	if msg = strings.TrimSpace(msg); msg != "" {
		b.metrics.Errors = append(b.metrics.Errors, msg)
	}
}

func (b *builder) result() *Transcript {
	b.flushAll()
	return &Transcript{Messages: b.messages, Metrics: b.metrics}
}

// event parses one line. ok is false for lines that are not JSON objects.
func event(line []byte) (gjson.Result, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' || !gjson.ValidBytes(line) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(line), true
}

// compactJSON renders a JSON value on one line, or its string content.
func compactJSON(v gjson.Result) string {
	if !v.Exists() {
		return ""
	}
	if v.Type == gjson.String {
		return v.String()
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
		return v.Raw
	}
	return buf.String()
}

func firstString(v gjson.Result, paths ...string) string {
	for _, path := range paths {
		if s := v.Get(path).String(); s != "" {
			return s
		}
	}
	return ""
}
