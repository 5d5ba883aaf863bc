package trigger

import (
	"path/filepath"
	"testing"

	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

func newTestDetector(t *testing.T) (*Detector, *transcript.Store, *transcript.OffsetStore) {
	t.Helper()
	dir := t.TempDir()
	store := transcript.NewStore(filepath.Join(dir, "chat_log.jsonl"))
	offsets := transcript.NewOffsetStore(filepath.Join(dir, ".last_processed_line"))
	return NewDetector(store, offsets, "@ai", "AI"), store, offsets
}

func TestDetector_FiresOnTriggerWord(t *testing.T) {
	d, store, _ := newTestDetector(t)

	mustAppend(t, store, "alice", "morning all")
	mustAppend(t, store, "bob", "@ai what should we do tonight?")

	outcome, err := d.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !outcome.Fired {
		t.Fatal("expected trigger to fire")
	}
	if outcome.FiredAt != 1 {
		t.Errorf("FiredAt = %d, want 1", outcome.FiredAt)
	}
	if outcome.Record.Sender != "bob" {
		t.Errorf("Record.Sender = %q, want bob", outcome.Record.Sender)
	}
	if outcome.NewOffset != 2 {
		t.Errorf("NewOffset = %d, want 2", outcome.NewOffset)
	}
}

func TestDetector_CaseInsensitiveMatch(t *testing.T) {
	d, store, _ := newTestDetector(t)

	mustAppend(t, store, "carol", "hey @AI can you help")

	outcome, err := d.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !outcome.Fired {
		t.Fatal("expected case-insensitive trigger to fire")
	}
}

func TestDetector_ResponderNeverTriggersItself(t *testing.T) {
	d, store, _ := newTestDetector(t)

	mustAppend(t, store, "AI", "mention me with @ai if you need anything")

	outcome, err := d.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if outcome.Fired {
		t.Fatal("responder's own message must not fire the trigger")
	}
	if outcome.NewOffset != 1 {
		t.Errorf("NewOffset = %d, want 1", outcome.NewOffset)
	}
}

func TestDetector_FiresExactlyOnceAcrossEvaluations(t *testing.T) {
	d, store, _ := newTestDetector(t)

	mustAppend(t, store, "dana", "@ai ping")

	first, err := d.EvaluateNext()
	if err != nil {
		t.Fatalf("EvaluateNext failed: %v", err)
	}
	if !first.Fired {
		t.Fatal("expected first evaluation to fire")
	}

	for i := 0; i < 3; i++ {
		again, err := d.EvaluateNext()
		if err != nil {
			t.Fatalf("EvaluateNext failed: %v", err)
		}
		if again.Fired {
			t.Fatalf("evaluation %d re-fired an already processed position", i)
		}
	}
}

func TestDetector_ScansAllNewRecords(t *testing.T) {
	d, store, _ := newTestDetector(t)

	mustAppend(t, store, "alice", "@ai first mention")
	mustAppend(t, store, "bob", "unrelated")
	mustAppend(t, store, "carol", "also unrelated")

	outcome, err := d.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !outcome.Fired || outcome.FiredAt != 0 {
		t.Fatalf("expected fire at position 0, got %+v", outcome)
	}
	// Offset still advances past everything scanned this pass.
	if outcome.NewOffset != 3 {
		t.Errorf("NewOffset = %d, want 3", outcome.NewOffset)
	}
}

func TestDetector_NoNewRecords(t *testing.T) {
	d, store, _ := newTestDetector(t)

	mustAppend(t, store, "alice", "hello")

	outcome, err := d.Evaluate(1)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if outcome.Fired {
		t.Fatal("nothing new to scan, must not fire")
	}
	if outcome.NewOffset != 1 {
		t.Errorf("NewOffset = %d, want 1", outcome.NewOffset)
	}
}

func TestDetector_AdvancesOffsetWithoutTrigger(t *testing.T) {
	d, store, offsets := newTestDetector(t)

	mustAppend(t, store, "alice", "no mention here")
	mustAppend(t, store, "bob", "still nothing")

	if _, err := d.EvaluateNext(); err != nil {
		t.Fatalf("EvaluateNext failed: %v", err)
	}

	n, err := offsets.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("persisted offset = %d, want 2", n)
	}
}

func mustAppend(t *testing.T, store *transcript.Store, sender, message string) {
	t.Helper()
	if err := store.Append(transcript.Record{Sender: sender, Message: message}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}
