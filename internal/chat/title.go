package chat

import (
	"context"
	"strings"

	"docuchat/internal/llm"
)

const titlePrompt = "Generate a brief title (max 6 words) for a conversation that " +
	"starts with this message. Return only the title, no quotes or extra text."

// generateTitle names the thread after its first message. Failures are
// logged and swallowed, the thread keeps its default title.
func (o *Orchestrator) generateTitle(ctx context.Context, threadID, userMessage string) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: titlePrompt},
		{Role: llm.RoleUser, Content: userMessage},
	}
	title, err := o.provider.ChatCompletion(ctx, messages, llm.Options{Temperature: 0.5, MaxTokens: 30})
	if err != nil {
		o.log.WithError(err).Warn("title generation failed")
		return
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		return
	}
	if err := o.threads.SetTitle(ctx, threadID, title); err != nil {
		o.log.WithError(err).Warn("title update failed")
	}
}
