package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

const defaultRecentMessages = 50

type recentMessagesTool struct {
	store     *transcript.Store
	summaries *transcript.SummaryStore
}

// NewRecentMessagesTool reads the tail of the transcript, appending the
// stored conversation summary as earlier context when one exists.
func NewRecentMessagesTool(store *transcript.Store, summaries *transcript.SummaryStore) Tool {
	return &recentMessagesTool{store: store, summaries: summaries}
}

func (t *recentMessagesTool) Name() string { return "get_recent_messages" }

func (t *recentMessagesTool) Description() string {
	return "Get recent chat messages, with earlier conversation context when available."
}

func (t *recentMessagesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"max_messages": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of recent messages to retrieve (default 50)",
			},
		},
	}
}

func (t *recentMessagesTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	limit := intArg(args, "max_messages", defaultRecentMessages)
	if limit <= 0 {
		limit = defaultRecentMessages
	}

	entries, err := t.store.Tail(limit)
	if err != nil {
		return ErrorResult(fmt.Sprintf("error reading chat history: %v", err)).WithError(err)
	}
	if len(entries) == 0 {
		return SilentResult("No messages found in chat history.")
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", entry.Sender, entry.Message))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent chat messages (%d total):\n\n", len(lines))
	b.WriteString(strings.Join(lines, "\n"))

	if t.summaries != nil {
		if summary, err := t.summaries.Load(); err == nil && summary.Summary != "" {
			fmt.Fprintf(&b, "\n\n---\nEarlier conversation context:\n%s", summary.Summary)
		}
	}
	return SilentResult(b.String())
}

type conversationSummaryTool struct {
	store     *transcript.Store
	summaries *transcript.SummaryStore
}

// NewConversationSummaryTool stores a model-written summary of the chat so
// far, keeping context available across long conversations.
func NewConversationSummaryTool(store *transcript.Store, summaries *transcript.SummaryStore) Tool {
	return &conversationSummaryTool{store: store, summaries: summaries}
}

func (t *conversationSummaryTool) Name() string { return "create_conversation_summary" }

func (t *conversationSummaryTool) Description() string {
	return "Save a brief summary of the conversation so far to maintain context across long chats."
}

func (t *conversationSummaryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"summary_text": map[string]interface{}{
				"type":        "string",
				"description": "A brief summary of the key topics and decisions",
			},
		},
		"required": []string{"summary_text"},
	}
}

func (t *conversationSummaryTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	text := stringArg(args, "summary_text")
	if text == "" {
		return ErrorResult("summary_text is required")
	}

	line, err := t.store.Len()
	if err != nil {
		return ErrorResult(fmt.Sprintf("error reading chat history: %v", err)).WithError(err)
	}
	if err := t.summaries.Save(text, line); err != nil {
		return ErrorResult(fmt.Sprintf("error saving summary: %v", err)).WithError(err)
	}
	return SilentResult("Conversation summary saved. It will be used as context for future responses.")
}
