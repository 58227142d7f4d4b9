package transcript

import (
	"fmt"
	"testing"

	"github.com/grovetools/agents/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assistantMessages(n int) []models.ChatMessage {
	msgs := make([]models.ChatMessage, n)
	for i := range msgs {
		msgs[i] = models.ChatMessage{Role: models.RoleAssistant, Title: "Assistant", Body: []string{fmt.Sprintf("message %d", i+1)}}
	}
	return msgs
}

func TestSliceModes(t *testing.T) {
	msgs := assistantMessages(12)

	recent := Slice(msgs, ModeDefault)
	require.Len(t, recent, DefaultRecentCount)
	assert.Equal(t, []string{"message 8"}, recent[0].Body)
	assert.Equal(t, []string{"message 12"}, recent[4].Body)

	assert.Len(t, Slice(msgs, ModeFull), 12)

	live := Slice(msgs, ModeLive)
	require.Len(t, live, 1)
	assert.Equal(t, []string{"message 12"}, live[0].Body)
}

func TestSliceLiveIncludesPrecedingReasoning(t *testing.T) {
	msgs := assistantMessages(12)
	msgs[9].Role = models.RoleReasoning
	msgs[10].Role = models.RoleReasoning

	live := Slice(msgs, ModeLive)
	require.Len(t, live, 2)
	assert.Equal(t, models.RoleReasoning, live[0].Role)
	assert.Equal(t, []string{"message 11"}, live[0].Body)
	assert.Equal(t, []string{"message 12"}, live[1].Body)
}

func TestSliceLiveEdgeCases(t *testing.T) {
	assert.Empty(t, Slice(nil, ModeLive))

	tools := []models.ChatMessage{
		{Role: models.RoleTool, Title: "Command"},
		{Role: models.RoleAction, Title: "User"},
	}
	assert.Empty(t, Slice(tools, ModeLive))

	// Reasoning alone is not an answer yet.
	thinking := []models.ChatMessage{
		{Role: models.RoleTool, Title: "Command"},
		{Role: models.RoleReasoning, Title: "Reasoning"},
	}
	assert.Empty(t, Slice(thinking, ModeLive))

	// A tool message between reasoning and the answer breaks the pair.
	msgs := []models.ChatMessage{
		{Role: models.RoleReasoning},
		{Role: models.RoleTool},
		{Role: models.RoleAssistant, Title: "Assistant"},
		{Role: models.RoleTool},
	}
	live := Slice(msgs, ModeLive)
	require.Len(t, live, 1)
	assert.Equal(t, "Assistant", live[0].Title)
}

func TestSliceShortTranscript(t *testing.T) {
	msgs := assistantMessages(3)
	assert.Len(t, Slice(msgs, ModeDefault), 3)
}
