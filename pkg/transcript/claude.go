package transcript

import (
	"fmt"
	"strings"

	"github.com/grovetools/agents/pkg/models"
	"github.com/tidwall/gjson"
)

// ClaudeParser reads claude stream-json logs.
type ClaudeParser struct{}

// Parse implements Parser.
func (ClaudeParser) Parse(lines [][]byte) *Transcript {
	b := newBuilder()
	for _, line := range lines {
		ev, ok := event(line)
		if !ok {
			if len(strings.TrimSpace(string(line))) > 0 {
				b.raw(line)
			}
			continue
		}
		if id := ev.Get("session_id").String(); id != "" && b.metrics.SessionID == "" {
			b.metrics.SessionID = id
		}

		switch ev.Get("type").String() {
		case "system":
			if model := ev.Get("model").String(); model != "" {
				b.metrics.Model = model
			}
		case "stream_event":
			claudeStreamEvent(b, ev.Get("event"))
		case "assistant":
			claudeAssistant(b, ev.Get("message"))
		case "user":
			claudeUser(b, ev.Get("message"))
		case "result":
			claudeResult(b, ev)
		}
	}
	return b.result()
}

// claudeStreamEvent buffers partial text until the complete assistant
// message arrives. Text still buffered at message_stop is emitted as is.
func claudeStreamEvent(b *builder, se gjson.Result) {
	switch se.Get("type").String() {
	case "message_start":
		if id := se.Get("message.id").String(); id != "" {
			b.stream = streamKey(id)
			b.buffer(b.stream, models.RoleAssistant, "Assistant", "")
		}
	case "content_block_delta":
		if b.stream != "" && se.Get("delta.type").String() == "text_delta" {
			b.buffer(b.stream, models.RoleAssistant, "Assistant", se.Get("delta.text").String())
		}
	case "message_stop":
		if b.stream != "" {
			b.flush(b.stream, "")
			b.stream = ""
		}
	}
}

func streamKey(id string) string { return "stream:" + id }

func claudeAssistant(b *builder, msg gjson.Result) {
	if id := msg.Get("id").String(); id != "" {
		b.drop(streamKey(id))
	}
	if model := msg.Get("model").String(); model != "" && b.metrics.Model == "" {
		b.metrics.Model = model
	}

	var text []string
	var calls []string
	msg.Get("content").ForEach(func(_, item gjson.Result) bool {
		switch item.Get("type").String() {
		case "text":
			text = append(text, item.Get("text").String())
		case "thinking":
			b.pushIfAny(models.RoleReasoning, "Thinking", item.Get("thinking").String())
		case "tool_use":
			name := item.Get("name").String()
			b.metrics.CountTool(name)
			call := fmt.Sprintf("%s (%s)", name, item.Get("id").String())
			if input := compactJSON(item.Get("input")); input != "" && input != "{}" {
				call += " " + input
			}
			calls = append(calls, call)
		}
		return true
	})
	b.pushIfAny(models.RoleAssistant, "Assistant", strings.TrimSpace(strings.Join(text, "\n")))
	if len(calls) > 0 {
		b.push(models.RoleTool, plural(len(calls), "Tool Call", "Tool Calls"), calls...)
	}
}

func claudeUser(b *builder, msg gjson.Result) {
	content := msg.Get("content")
	if content.Type == gjson.String {
		b.pushIfAny(models.RoleAction, "User", content.String())
		return
	}
	var text, results []string
	content.ForEach(func(_, item gjson.Result) bool {
		switch item.Get("type").String() {
		case "text":
			text = append(text, item.Get("text").String())
		case "tool_result":
			line := fmt.Sprintf("(%s) %s", item.Get("tool_use_id").String(), firstLine(toolResultText(item.Get("content")), 200))
			if item.Get("is_error").Bool() {
				line = "✗ " + line
			}
			results = append(results, line)
		}
		return true
	})
	b.pushIfAny(models.RoleAction, "User", strings.TrimSpace(strings.Join(text, "\n")))
	if len(results) > 0 {
		b.push(models.RoleTool, plural(len(results), "Tool Result", "Tool Results"), results...)
	}
}

func toolResultText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	var parts []string
	content.ForEach(func(_, item gjson.Result) bool {
		if t := item.Get("text").String(); t != "" {
			parts = append(parts, t)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func claudeResult(b *builder, ev gjson.Result) {
	b.pushIfAny(models.RoleAssistant, "Final Result", ev.Get("result").String())
	if usage := ev.Get("usage"); usage.Exists() {
		in := int(usage.Get("input_tokens").Int())
		out := int(usage.Get("output_tokens").Int())
		b.metrics.Tokens = &models.TokenUsage{
			Input:       in,
			CachedInput: int(usage.Get("cache_read_input_tokens").Int()),
			Output:      out,
			Total:       in + out,
		}
	}
	if ms := ev.Get("duration_ms").Int(); ms > 0 {
		b.metrics.DurationMs = ms
	}
	if cost := ev.Get("total_cost_usd").Float(); cost > 0 {
		b.metrics.CostUSD = cost
	}
	if ev.Get("is_error").Bool() {
		b.addError(firstString(ev, "result", "subtype"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func firstLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "…"
	}
	return s
}
