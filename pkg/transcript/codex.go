package transcript

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grovetools/agents/pkg/models"
	"github.com/tidwall/gjson"
)

// CodexParser reads codex exec logs. It understands the item events of
// --experimental-json, the legacy msg envelope of --json, the responses API
// stream and the rollout files written under the sessions directory.
type CodexParser struct{}

// Parse implements Parser.
func (CodexParser) Parse(lines [][]byte) *Transcript {
	b := newBuilder()
	for _, line := range lines {
		ev, ok := event(line)
		if !ok {
			if len(strings.TrimSpace(string(line))) > 0 {
				b.raw(line)
			}
			continue
		}
		codexEvent(b, ev)
	}
	return b.result()
}

func codexEvent(b *builder, ev gjson.Result) {
	if msg := ev.Get("msg"); msg.IsObject() {
		codexMsg(b, msg)
		return
	}

	typ := ev.Get("type").String()
	switch typ {
	case "session.created", "thread.started":
		b.setSession(firstString(ev, "session_id", "thread_id", "session.id"))
	case "session_meta":
		b.setSession(ev.Get("payload.id").String())
	case "turn_context":
		b.setModel(ev.Get("payload.model").String())
	case "event_msg":
		codexMsg(b, ev.Get("payload"))
	case "response_item":
		codexResponseItem(b, ev.Get("payload"))
	case "item.started", "item.updated":
		codexItemProgress(b, ev.Get("item"))
	case "item.completed":
		codexItemCompleted(b, ev.Get("item"))
	case "turn.completed":
		b.setUsage(ev.Get("usage"))
	case "turn.failed":
		b.addError(firstString(ev, "error.message", "message"))
	case "error":
		b.addError(firstString(ev, "message", "error.message"))
	case "response.output_text.delta":
		b.buffer(responseKey(ev.Get("response_id").String()), models.RoleAssistant, "Assistant", ev.Get("delta").String())
	case "response.output_text.done", "response.output_text.completed":
		b.flush(responseKey(ev.Get("response_id").String()), ev.Get("text").String())
	case "response.refusal.delta":
		b.addError("refusal: " + ev.Get("delta").String())
	case "response.completed":
		resp := ev.Get("response")
		b.flush(responseKey(resp.Get("id").String()), "")
		b.setModel(resp.Get("model").String())
		b.setUsage(resp.Get("usage"))
	default:
		if id := ev.Get("session_id").String(); id != "" {
			b.setSession(id)
		}
	}
}

func responseKey(id string) string { return "response:" + id }
func itemKey(id string) string     { return "item:" + id }

func codexItemType(item gjson.Result) string {
	return firstString(item, "item_type", "type", "details.type")
}

func codexItemText(item gjson.Result) string {
	return firstString(item, "text", "details.text", "message", "content")
}

// codexItemProgress keeps the latest partial text of a streaming item.
func codexItemProgress(b *builder, item gjson.Result) {
	switch codexItemType(item) {
	case "assistant_message", "agent_message":
		b.replace(itemKey(item.Get("id").String()), models.RoleAssistant, "Assistant", codexItemText(item))
	case "reasoning":
		b.replace(itemKey(item.Get("id").String()), models.RoleReasoning, "Reasoning", codexItemText(item))
	}
}

func codexItemCompleted(b *builder, item gjson.Result) {
	key := itemKey(item.Get("id").String())
	switch codexItemType(item) {
	case "assistant_message", "agent_message":
		if !b.flush(key, codexItemText(item)) {
			b.pushIfAny(models.RoleAssistant, "Assistant", codexItemText(item))
		}
	case "reasoning":
		if !b.flush(key, codexItemText(item)) {
			b.pushIfAny(models.RoleReasoning, "Reasoning", codexItemText(item))
		}
	case "command_execution":
		b.drop(key)
		b.metrics.Commands++
		exit := item.Get("exit_code")
		status := item.Get("status").String()
		failed := status == "failed" || (exit.Exists() && exit.Int() != 0)
		if failed {
			b.metrics.CommandsFailed++
		}
		body := []string{"$ " + item.Get("command").String()}
		if exit.Exists() {
			body = append(body, fmt.Sprintf("→ exit %d", exit.Int()))
		} else if status != "" {
			body = append(body, "→ "+status)
		}
		if out := firstLine(item.Get("aggregated_output").String(), 200); out != "" {
			body = append(body, out)
		}
		b.push(models.RoleTool, "Command", body...)
	case "file_change":
		var body []string
		item.Get("changes").ForEach(func(_, change gjson.Result) bool {
			kind := change.Get("kind").String()
			b.countPatch(kind)
			body = append(body, fmt.Sprintf("%s %s", kind, change.Get("path").String()))
			return true
		})
		b.push(models.RoleTool, "Patch", body...)
	case "mcp_tool_call":
		name := item.Get("server").String() + "." + item.Get("tool").String()
		b.metrics.CountTool(name)
		b.push(models.RoleTool, "MCP Call", fmt.Sprintf("%s @ %s", item.Get("tool").String(), item.Get("server").String()), "→ "+item.Get("status").String())
	case "tool_call":
		name := firstString(item, "name", "tool")
		b.metrics.CountTool(name)
		b.push(models.RoleTool, "Tool Call", name+" "+compactJSON(item.Get("arguments")))
	case "tool_result":
		b.push(models.RoleTool, "Tool Result", firstLine(firstString(item, "output", "text"), 200))
	case "web_search":
		b.metrics.CountTool("web_search")
		b.push(models.RoleTool, "Web Search", item.Get("query").String())
	case "error":
		b.addError(codexItemText(item))
	}
}

// codexMsg handles the legacy envelope, also used by event_msg rollout lines.
func codexMsg(b *builder, msg gjson.Result) {
	callID := msg.Get("call_id").String()
	switch msg.Get("type").String() {
	case "session_configured":
		b.setSession(msg.Get("session_id").String())
		b.setModel(msg.Get("model").String())
	case "agent_message_delta":
		b.buffer("agent_message", models.RoleAssistant, "Assistant", msg.Get("delta").String())
	case "agent_message":
		if !b.flush("agent_message", msg.Get("message").String()) {
			b.pushIfAny(models.RoleAssistant, "Assistant", msg.Get("message").String())
		}
	case "agent_reasoning_delta":
		b.buffer("agent_reasoning", models.RoleReasoning, "Reasoning", msg.Get("delta").String())
	case "agent_reasoning":
		if !b.flush("agent_reasoning", msg.Get("text").String()) {
			b.pushIfAny(models.RoleReasoning, "Reasoning", msg.Get("text").String())
		}
	case "user_message":
		b.pushIfAny(models.RoleAction, "User", msg.Get("message").String())
	case "exec_command_begin":
		b.metrics.Commands++
		idx := b.push(models.RoleTool, "Command", "$ "+commandLine(msg.Get("command")))
		b.appendTo(idx, cwdLine(msg.Get("cwd").String()))
		b.calls["exec:"+callID] = idx
	case "exec_command_end":
		exit := msg.Get("exit_code").Int()
		if exit != 0 {
			b.metrics.CommandsFailed++
		}
		line := fmt.Sprintf("→ exit %d (%s)", exit, formatSeconds(durationOf(msg.Get("duration"))))
		if idx, ok := b.calls["exec:"+callID]; ok {
			b.appendTo(idx, line)
		} else {
			b.push(models.RoleTool, "Command", line)
		}
	case "mcp_tool_call_begin":
		inv := msg.Get("invocation")
		tool, server := inv.Get("tool").String(), inv.Get("server").String()
		b.metrics.CountTool(server + "." + tool)
		idx := b.push(models.RoleTool, "MCP Call", fmt.Sprintf("%s @ %s", tool, server))
		if args := compactJSON(inv.Get("arguments")); args != "" && args != "{}" && args != "null" {
			b.appendTo(idx, args)
		}
		b.calls["mcp:"+callID] = idx
	case "mcp_tool_call_end":
		line := fmt.Sprintf("→ completed in %s", formatSeconds(durationOf(msg.Get("duration"))))
		if msg.Get("result.Err").Exists() {
			line = "✗ " + compactJSON(msg.Get("result.Err"))
		}
		if idx, ok := b.calls["mcp:"+callID]; ok {
			b.appendTo(idx, line)
		} else {
			b.push(models.RoleTool, "MCP Call", line)
		}
	case "patch_apply_begin":
		var paths []string
		changes := msg.Get("changes").Map()
		for path := range changes {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		var body []string
		for _, path := range paths {
			kind := patchKind(changes[path])
			b.countPatch(kind)
			body = append(body, kind+" "+path)
		}
		b.push(models.RoleTool, "Patch", body...)
	case "token_count":
		if info := msg.Get("info"); info.Exists() {
			b.setUsage(firstResult(info, "total_token_usage", "last_token_usage"))
		}
		if limits := msg.Get("rate_limits"); limits.Exists() {
			b.setRateLimits(limits)
		}
	case "error", "stream_error":
		b.addError(msg.Get("message").String())
	case "task_complete":
		b.flushAll()
	}
}

// codexResponseItem handles response_item lines of a rollout file.
func codexResponseItem(b *builder, payload gjson.Result) {
	switch payload.Get("type").String() {
	case "message":
		var text []string
		payload.Get("content").ForEach(func(_, part gjson.Result) bool {
			if t := part.Get("text").String(); t != "" {
				text = append(text, t)
			}
			return true
		})
		body := strings.TrimSpace(strings.Join(text, "\n"))
		switch payload.Get("role").String() {
		case "assistant":
			b.pushIfAny(models.RoleAssistant, "Assistant", body)
		case "user":
			b.pushIfAny(models.RoleAction, "User", body)
		default:
			b.pushIfAny(models.RoleReasoning, "System", body)
		}
	case "reasoning":
		var text []string
		payload.Get("summary").ForEach(func(_, part gjson.Result) bool {
			text = append(text, part.Get("text").String())
			return true
		})
		b.pushIfAny(models.RoleReasoning, "Reasoning", strings.TrimSpace(strings.Join(text, "\n")))
	case "function_call", "custom_tool_call":
		name := payload.Get("name").String()
		b.metrics.CountTool(name)
		b.push(models.RoleTool, "Tool Call", strings.TrimSpace(name+" "+firstString(payload, "arguments", "input")))
	case "function_call_output", "custom_tool_call_output":
		b.push(models.RoleTool, "Tool Result", firstLine(firstString(payload, "output.content", "output"), 200))
	}
}

func (b *builder) setSession(id string) {
	if id != "" && b.metrics.SessionID == "" {
		b.metrics.SessionID = id
	}
}

func (b *builder) setModel(model string) {
	if model != "" {
		b.metrics.Model = model
	}
}

// setUsage replaces the token counters. Executors report running totals, so
// the latest report wins.
func (b *builder) setUsage(usage gjson.Result) {
	if !usage.IsObject() {
		return
	}
	tokens := &models.TokenUsage{
		Input:       int(usage.Get("input_tokens").Int()),
		CachedInput: int(usage.Get("cached_input_tokens").Int()),
		Output:      int(usage.Get("output_tokens").Int()),
		Reasoning:   int(usage.Get("reasoning_output_tokens").Int()),
		Total:       int(usage.Get("total_tokens").Int()),
	}
	if tokens.Total == 0 {
		tokens.Total = tokens.Input + tokens.Output
	}
	b.metrics.Tokens = tokens
}

func (b *builder) setRateLimits(limits gjson.Result) {
	var out []models.RateLimit
	for _, name := range []string{"primary", "secondary"} {
		l := limits.Get(name)
		if !l.IsObject() {
			continue
		}
		out = append(out, models.RateLimit{
			Name:          name,
			UsedPercent:   l.Get("used_percent").Float(),
			WindowMinutes: int(l.Get("window_minutes").Int()),
			ResetsIn:      int(firstResult(l, "resets_in_seconds", "resets_in").Int()),
		})
	}
	if len(out) > 0 {
		b.metrics.RateLimits = out
	}
}

func (b *builder) countPatch(kind string) {
	switch kind {
	case "add":
		b.metrics.Patches.Add++
	case "update":
		b.metrics.Patches.Update++
	case "move":
		b.metrics.Patches.Move++
	case "delete":
		b.metrics.Patches.Delete++
	}
}

func patchKind(change gjson.Result) string {
	if change.Get("update.move_path").String() != "" {
		return "move"
	}
	for _, kind := range []string{"add", "update", "delete"} {
		if change.Get(kind).Exists() {
			return kind
		}
	}
	return change.Get("type").String()
}

func commandLine(cmd gjson.Result) string {
	if !cmd.IsArray() {
		return cmd.String()
	}
	var parts []string
	for _, part := range cmd.Array() {
		parts = append(parts, part.String())
	}
	// bash -lc '<script>' reads better as the script alone.
	if len(parts) == 3 && (parts[1] == "-lc" || parts[1] == "-c") {
		return parts[2]
	}
	return strings.Join(parts, " ")
}

func cwdLine(cwd string) string {
	if cwd == "" {
		return ""
	}
	return "cwd: " + cwd
}

func firstResult(v gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if r := v.Get(path); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// durationOf accepts {secs,nanos}, a Go duration string or milliseconds.
func durationOf(v gjson.Result) time.Duration {
	switch {
	case v.IsObject():
		return time.Duration(v.Get("secs").Int())*time.Second + time.Duration(v.Get("nanos").Int())
	case v.Type == gjson.String:
		d, _ := time.ParseDuration(v.String())
		return d
	case v.Type == gjson.Number:
		return time.Duration(v.Int()) * time.Millisecond
	}
	return 0
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
