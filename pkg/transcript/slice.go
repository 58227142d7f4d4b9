package transcript

import "github.com/grovetools/agents/pkg/models"

// Mode selects which part of a transcript is shown.
type Mode int

const (
	ModeDefault Mode = iota
	ModeFull
	ModeLive
)

// DefaultRecentCount is how many messages the default view shows.
const DefaultRecentCount = 5

// Slice returns the messages visible in mode. The result shares the backing
// array of messages.
func Slice(messages []models.ChatMessage, mode Mode) []models.ChatMessage {
	switch mode {
	case ModeFull:
		return messages
	case ModeLive:
		return latest(messages)
	default:
		if len(messages) <= DefaultRecentCount {
			return messages
		}
		return messages[len(messages)-DefaultRecentCount:]
	}
}

// latest is the last assistant message, preceded by the reasoning message
// directly before it when there is one. Without any assistant message it is
// empty.
func latest(messages []models.ChatMessage) []models.ChatMessage {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != models.RoleAssistant {
			continue
		}
		if i > 0 && messages[i-1].Role == models.RoleReasoning {
			return messages[i-1 : i+1]
		}
		return messages[i : i+1]
	}
	return nil
}
