package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ojcli/internal/viewmodel"
)

// historyLimit caps how many finished runs the CLI remembers.
const historyLimit = 50

// SessionState stores the CLI session across restarts: the last selection
// and the index of finished runs, newest first. Results themselves stay on
// the remote service and are refetched when a history entry is opened.
type SessionState struct {
	ProblemID  string                    `json:"problem_id"`
	LanguageID string                    `json:"language_id"`
	History    []viewmodel.HistoryRecord `json:"history"`
}

func Load(path string) (SessionState, error) {
	var st SessionState
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read session state failed: %w", err)
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse session state failed: %w", err)
	}
	return st, nil
}

func Save(path string, st SessionState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session state failed: %w", err)
	}
	return nil
}

// AddHistory prepends a finished run's record, dropping the oldest entry
// past the limit.
func (s *SessionState) AddHistory(rec viewmodel.HistoryRecord) {
	s.History = append([]viewmodel.HistoryRecord{rec}, s.History...)
	if len(s.History) > historyLimit {
		s.History = s.History[:historyLimit]
	}
}

// FindHistory looks up a record by run id.
func (s *SessionState) FindHistory(runID string) (viewmodel.HistoryRecord, bool) {
	for _, rec := range s.History {
		if rec.RunID == runID {
			return rec, true
		}
	}
	return viewmodel.HistoryRecord{}, false
}
