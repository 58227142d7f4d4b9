package models

// Role classifies a ChatMessage.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleReasoning Role = "reasoning"
	RoleTool      Role = "tool"
	RoleAction    Role = "action"
)

// ChatMessage is one normalized transcript entry. Messages are derived from a
// log on demand and never persisted.
type ChatMessage struct {
	Role  Role     `json:"role"`
	Title string   `json:"title"`
	Body  []string `json:"body"`
	// Raw marks a log line that could not be parsed and is shown verbatim.
	Raw bool `json:"raw,omitempty"`
}

// TokenUsage aggregates token counters reported by an executor.
type TokenUsage struct {
	Input       int `json:"input"`
	CachedInput int `json:"cachedInput,omitempty"`
	Output      int `json:"output"`
	Reasoning   int `json:"reasoning,omitempty"`
	Total       int `json:"total"`
}

// RateLimit is one rate-limit window as reported by an executor.
type RateLimit struct {
	Name          string  `json:"name"`
	UsedPercent   float64 `json:"usedPercent"`
	WindowMinutes int     `json:"windowMinutes,omitempty"`
	ResetsIn      int     `json:"resetsInSeconds,omitempty"`
}

// ToolCount is a per-tool call tally.
type ToolCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PatchStats counts file operations from applied patches.
type PatchStats struct {
	Add    int `json:"add"`
	Update int `json:"update"`
	Move   int `json:"move"`
	Delete int `json:"delete"`
}

// Metrics summarizes a transcript.
type Metrics struct {
	SessionID      string      `json:"sessionId,omitempty"`
	Model          string      `json:"model,omitempty"`
	Tokens         *TokenUsage `json:"tokens,omitempty"`
	Tools          []ToolCount `json:"tools,omitempty"`
	RateLimits     []RateLimit `json:"rateLimits,omitempty"`
	Patches        PatchStats  `json:"patches"`
	Commands       int         `json:"commands,omitempty"`
	CommandsFailed int         `json:"commandsFailed,omitempty"`
	DurationMs     int64       `json:"durationMs,omitempty"`
	CostUSD        float64     `json:"costUsd,omitempty"`
	Errors         []string    `json:"errors,omitempty"`
}

// CountTool increments the tally for name, keeping first-seen order.
func (m *Metrics) CountTool(name string) {
	if name == "" {
		return
	}
	for i := range m.Tools {
		if m.Tools[i].Name == name {
			m.Tools[i].Count++
			return
		}
	}
	m.Tools = append(m.Tools, ToolCount{Name: name, Count: 1})
}
