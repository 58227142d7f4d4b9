package transcript

import (
	"fmt"
	"strings"

	"github.com/grovetools/agents/pkg/models"
)

// SummaryItem is one labelled line of the metrics summary.
type SummaryItem struct {
	Label string
	Value string
}

// maxToolsShown bounds the per-tool tallies listed inline.
const maxToolsShown = 2

// Summarize formats metrics as labelled lines. Empty metrics produce no
// items.
func Summarize(m models.Metrics) []SummaryItem {
	var items []SummaryItem
	add := func(label, format string, args ...interface{}) {
		items = append(items, SummaryItem{Label: label, Value: fmt.Sprintf(format, args...)})
	}

	if m.Model != "" {
		add("Model", "%s", m.Model)
	}
	if m.Tokens != nil {
		value := fmt.Sprintf("in:%d out:%d total:%d", m.Tokens.Input, m.Tokens.Output, m.Tokens.Total)
		if m.Tokens.CachedInput > 0 {
			value += fmt.Sprintf(" cached:%d", m.Tokens.CachedInput)
		}
		if m.Tokens.Reasoning > 0 {
			value += fmt.Sprintf(" reasoning:%d", m.Tokens.Reasoning)
		}
		add("Tokens", "%s", value)
	}
	if len(m.Tools) > 0 {
		add("Tool Calls", "%s", toolTally(m.Tools))
	}
	if p := m.Patches; p.Add+p.Update+p.Move+p.Delete > 0 {
		add("Patches", "add:%d update:%d move:%d delete:%d", p.Add, p.Update, p.Move, p.Delete)
	}
	if m.Commands > 0 {
		add("Execs", "%d commands (%d ok, %d err)", m.Commands, m.Commands-m.CommandsFailed, m.CommandsFailed)
	}
	for _, rl := range m.RateLimits {
		add("Rate Limit", "%s %.0f%% used, resets in %ds", rl.Name, rl.UsedPercent, rl.ResetsIn)
	}
	if m.DurationMs > 0 {
		add("Duration", "%.1fs", float64(m.DurationMs)/1000)
	}
	if m.CostUSD > 0 {
		add("Cost", "$%.4f", m.CostUSD)
	}
	if len(m.Errors) > 0 {
		add("Errors", "%s", strings.Join(m.Errors, "; "))
	}
	return items
}

// toolTally lists the busiest tools, e.g. "7 calls (Bash:4 Read:2 +1 more)".
// Ties keep first-seen order.
func toolTally(tools []models.ToolCount) string {
	sorted := append([]models.ToolCount(nil), tools...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Count > sorted[j-1].Count; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	total := 0
	for _, t := range sorted {
		total += t.Count
	}
	var parts []string
	for i, t := range sorted {
		if i == maxToolsShown {
			parts = append(parts, fmt.Sprintf("+%d more", len(sorted)-maxToolsShown))
			break
		}
		parts = append(parts, fmt.Sprintf("%s:%d", t.Name, t.Count))
	}
	return fmt.Sprintf("%d calls (%s)", total, strings.Join(parts, " "))
}
