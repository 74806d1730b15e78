// Package prompt renders a conversation into the single text prompt fed to
// the generation engine.
package prompt

import (
	"strings"

	"llmgate/pkg/types"
)

// AssistantCue is appended to every prompt so the model continues as the
// assistant.
const AssistantCue = "[ASSISTANT]\n"

// Builder turns an ordered conversation into a prompt.
type Builder interface {
	Build(msgs []types.ChatMessage) string
}

// TaggedBuilder renders each turn as a "[ROLE]" header line followed by the
// content, blocks separated by a blank line.
type TaggedBuilder struct{}

// Build implements Builder.
func (TaggedBuilder) Build(msgs []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(tag(m.Role))
		b.WriteByte('\n')
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString(AssistantCue)
	return b.String()
}

// Build renders msgs with the default TaggedBuilder.
func Build(msgs []types.ChatMessage) string { return TaggedBuilder{}.Build(msgs) }

func tag(role string) string {
	switch role {
	case types.RoleSystem:
		return "[SYSTEM]"
	case types.RoleUser, "":
		// a turn without a role is treated as user input
		return "[USER]"
	default:
		return "[ASSISTANT]"
	}
}

var _ Builder = TaggedBuilder{}
