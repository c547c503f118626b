package orchestrator

import (
	"strings"

	"github.com/brightpath/assistant/core/memory"
	"github.com/brightpath/assistant/core/providers"
	"github.com/brightpath/assistant/core/retrieval"
)

const systemPrompt = `You are a helpful learning assistant for an online education platform.
Answer questions about programming and technology concisely and accurately.
When course material is provided as context, ground your answer in it.
If you do not know the answer, say so rather than guessing.`

// buildGroundingPrompt assembles the system prompt plus any retrieved
// material the model should ground its answer in.
func buildGroundingPrompt(results []retrieval.SearchResult) string {
	if len(results) == 0 {
		return systemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nRelevant course material:\n")

	for i, res := range results {
		sb.WriteString("\n--- ")
		if title := res.Record.Metadata.Title; title != "" {
			sb.WriteString(title)
		} else {
			sb.WriteString(string(res.Record.Metadata.Kind))
		}
		sb.WriteString(" ---\n")
		sb.WriteString(res.Record.Content)
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// historyToMessages converts conversation turns into provider messages,
// newest last.
func historyToMessages(turns []memory.Turn) []providers.Message {
	out := make([]providers.Message, 0, len(turns))
	for _, t := range turns {
		role := providers.RoleUser
		switch t.Role {
		case memory.RoleAssistant:
			role = providers.RoleAssistant
		case memory.RoleSystem:
			role = providers.RoleSystem
		}
		out = append(out, providers.Message{Role: role, Content: t.Content})
	}
	return out
}
