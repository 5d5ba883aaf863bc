package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

func TestRecentMessages(t *testing.T) {
	dir := t.TempDir()
	store := transcript.NewStore(filepath.Join(dir, "chat_log.jsonl"))
	for _, rec := range []transcript.Record{
		{Sender: "Alice", Message: "anyone hungry?"},
		{Sender: "Bob", Message: "starving"},
		{Sender: "Charlie", Message: "same"},
	} {
		if err := store.Append(rec); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	summaries := transcript.NewSummaryStore(filepath.Join(dir, ".conversation_summary.json"))

	tool := NewRecentMessagesTool(store, summaries)
	result := tool.Execute(context.Background(), map[string]interface{}{"max_messages": float64(2)})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if strings.Contains(result.ForLLM, "Alice") {
		t.Errorf("limit 2 should drop the oldest message: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Bob: starving") || !strings.Contains(result.ForLLM, "Charlie: same") {
		t.Errorf("missing recent messages: %s", result.ForLLM)
	}
}

func TestRecentMessages_IncludesSummaryContext(t *testing.T) {
	dir := t.TempDir()
	store := transcript.NewStore(filepath.Join(dir, "chat_log.jsonl"))
	if err := store.Append(transcript.Record{Sender: "Alice", Message: "hello"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	summaries := transcript.NewSummaryStore(filepath.Join(dir, ".conversation_summary.json"))
	if err := summaries.Save("The group agreed on Italian food.", 1); err != nil {
		t.Fatalf("save summary failed: %v", err)
	}

	tool := NewRecentMessagesTool(store, summaries)
	result := tool.Execute(context.Background(), nil)
	if !strings.Contains(result.ForLLM, "Earlier conversation context") {
		t.Errorf("missing summary section: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Italian food") {
		t.Errorf("missing summary text: %s", result.ForLLM)
	}
}

func TestRecentMessages_EmptyHistory(t *testing.T) {
	dir := t.TempDir()
	tool := NewRecentMessagesTool(
		transcript.NewStore(filepath.Join(dir, "chat_log.jsonl")),
		transcript.NewSummaryStore(filepath.Join(dir, ".conversation_summary.json")),
	)
	result := tool.Execute(context.Background(), nil)
	if !strings.Contains(result.ForLLM, "No messages found") {
		t.Errorf("unexpected result: %s", result.ForLLM)
	}
}

func TestCreateConversationSummary(t *testing.T) {
	dir := t.TempDir()
	store := transcript.NewStore(filepath.Join(dir, "chat_log.jsonl"))
	if err := store.Append(transcript.Record{Sender: "Alice", Message: "hello"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	summaries := transcript.NewSummaryStore(filepath.Join(dir, ".conversation_summary.json"))

	tool := NewConversationSummaryTool(store, summaries)
	result := tool.Execute(context.Background(), map[string]interface{}{
		"summary_text": "Alice said hello.",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}

	saved, err := summaries.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if saved.Summary != "Alice said hello." {
		t.Errorf("summary = %q", saved.Summary)
	}
	if saved.LastUpdatedLine != 1 {
		t.Errorf("last updated line = %d, want 1", saved.LastUpdatedLine)
	}
}
