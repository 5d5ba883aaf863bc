package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tabletalk-io/tabletalk/pkg/logger"
)

// Record is one chat message in the transcript. Immutable once appended.
type Record struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// Entry pairs a parsed record with its line position in the log, so
// callers scanning from an offset keep exact positions even when a
// malformed line was skipped.
type Entry struct {
	Index  int
	Record Record
}

// Store is an append-only JSONL chat log, one record per physical line.
// Appends are whole-line writes so concurrent readers never observe a
// partial record.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal transcript record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append transcript record: %w", err)
	}
	return nil
}

// Len returns the number of lines currently in the log. A missing file
// counts as empty.
func (s *Store) Len() (int, error) {
	lines, err := s.readLines()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// ReadFrom returns the parsed records at line positions >= offset.
// Malformed lines are logged and skipped without aborting the scan.
func (s *Store) ReadFrom(offset int) ([]Entry, error) {
	lines, err := s.readLines()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(lines) {
		return nil, nil
	}

	entries := make([]Entry, 0, len(lines)-offset)
	for i := offset; i < len(lines); i++ {
		var rec Record
		if err := json.Unmarshal([]byte(lines[i]), &rec); err != nil {
			logger.WarnCF("transcript", "Skipping malformed transcript line", map[string]interface{}{
				"line":  i,
				"error": err.Error(),
			})
			continue
		}
		entries = append(entries, Entry{Index: i, Record: rec})
	}
	return entries, nil
}

// Tail returns up to n most recent parsed records, oldest first.
func (s *Store) Tail(n int) ([]Record, error) {
	entries, err := s.ReadFrom(0)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.Record)
	}
	return records, nil
}

func (s *Store) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	raw := strings.Split(string(data), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
