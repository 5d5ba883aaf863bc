package transcript

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "chat_log.jsonl"))
}

func TestStore_AppendReadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	records := []Record{
		{Sender: "alice", Message: "hey everyone"},
		{Sender: "bob", Message: "what's up"},
		{Sender: "alice", Message: "planning dinner"},
	}
	for _, rec := range records {
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.ReadFrom(0)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(entries) != len(records) {
		t.Fatalf("got %d entries, want %d", len(entries), len(records))
	}
	for i, e := range entries {
		if e.Index != i {
			t.Errorf("entry %d has index %d", i, e.Index)
		}
		if e.Record != records[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e.Record, records[i])
		}
	}
}

func TestStore_ReadFromOffset(t *testing.T) {
	store := newTestStore(t)
	for _, msg := range []string{"one", "two", "three"} {
		if err := store.Append(Record{Sender: "u", Message: msg}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.ReadFrom(2)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Record.Message != "three" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Index != 2 {
		t.Errorf("index = %d, want 2", entries[0].Index)
	}
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("Len = %d, want 0", n)
	}
	entries, err := store.ReadFrom(0)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestStore_MalformedLineSkippedKeepsIndexes(t *testing.T) {
	store := newTestStore(t)
	raw := `{"sender":"alice","message":"first"}
not json at all
{"sender":"bob","message":"third"}
`
	if err := os.WriteFile(store.Path(), []byte(raw), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	entries, err := store.ReadFrom(0)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Index != 2 {
		t.Errorf("third line index = %d, want 2", entries[1].Index)
	}

	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Len = %d, want 3 (malformed lines still count)", n)
	}
}

func TestStore_Tail(t *testing.T) {
	store := newTestStore(t)
	for _, msg := range []string{"a", "b", "c", "d"} {
		if err := store.Append(Record{Sender: "u", Message: msg}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	records, err := store.Tail(2)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(records) != 2 || records[0].Message != "c" || records[1].Message != "d" {
		t.Fatalf("unexpected tail: %+v", records)
	}
}

func TestOffsetStore_DefaultsToZero(t *testing.T) {
	store := NewOffsetStore(filepath.Join(t.TempDir(), ".last_processed_line"))

	n, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("Load = %d, want 0", n)
	}
}

func TestOffsetStore_SaveIsMonotonic(t *testing.T) {
	store := NewOffsetStore(filepath.Join(t.TempDir(), ".last_processed_line"))

	if err := store.Save(5); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(3); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	n, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("Load = %d, want 5 (offset never moves backwards)", n)
	}
}

func TestOffsetStore_GarbageResetsToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".last_processed_line")
	if err := os.WriteFile(path, []byte("not a number"), 0644); err != nil {
		t.Fatalf("write offset: %v", err)
	}

	store := NewOffsetStore(path)
	n, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("Load = %d, want 0", n)
	}
}

func TestWatcher_PollFallbackFires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_log.jsonl")
	w := NewWatcher(path, 20*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func TestWatcher_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_log.jsonl")
	w := NewWatcher(path, time.Minute)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Wait(ctx); err == nil {
		t.Fatal("expected context error from cancelled Wait")
	}
}
