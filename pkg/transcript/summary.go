package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Summary is a rolling condensation of older conversation, written by the
// responder so long chats keep their context without replaying every line.
type Summary struct {
	Summary         string  `json:"summary"`
	LastUpdatedLine int     `json:"last_updated_line"`
	Timestamp       float64 `json:"timestamp"`
}

// SummaryStore persists the conversation summary as a JSON file alongside
// the transcript. A missing file reads as an empty summary.
type SummaryStore struct {
	path string
}

func NewSummaryStore(path string) *SummaryStore {
	return &SummaryStore{path: path}
}

func (s *SummaryStore) Load() (Summary, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Summary{}, nil
	}
	if err != nil {
		return Summary{}, fmt.Errorf("read summary file: %w", err)
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, fmt.Errorf("decode summary file: %w", err)
	}
	return summary, nil
}

func (s *SummaryStore) Save(text string, line int) error {
	summary := Summary{
		Summary:         text,
		LastUpdatedLine: line,
		Timestamp:       float64(time.Now().UnixNano()) / float64(time.Second),
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write summary file: %w", err)
	}
	return nil
}
