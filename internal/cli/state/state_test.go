package state_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ojcli/internal/cli/state"
	"ojcli/internal/viewmodel"
)

func TestLoadMissingFileReturnsZeroState(t *testing.T) {
	t.Parallel()
	st, err := state.Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if st.ProblemID != "" || len(st.History) != 0 {
		t.Fatalf("expected zero state, got %+v", st)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	st := state.SessionState{ProblemID: "p1", LanguageID: "java"}
	st.AddHistory(viewmodel.HistoryRecord{
		RunID:       "run-1",
		ProblemID:   "p1",
		LanguageID:  "java",
		SubmittedAt: time.Unix(1_700_000_000, 0).UTC(),
		Order:       []string{"a"},
		Dispatches:  map[string]string{"a": "sub-1"},
	})
	if err := state.Save(path, st); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := state.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ProblemID != "p1" || loaded.LanguageID != "java" {
		t.Fatalf("selection lost: %+v", loaded)
	}
	rec, ok := loaded.FindHistory("run-1")
	if !ok || rec.Dispatches["a"] != "sub-1" {
		t.Fatalf("history lost: %+v ok=%v", rec, ok)
	}
}

func TestAddHistoryPrependsAndCaps(t *testing.T) {
	t.Parallel()
	var st state.SessionState
	for i := 0; i < 60; i++ {
		st.AddHistory(viewmodel.HistoryRecord{RunID: fmt.Sprintf("run-%d", i)})
	}
	if len(st.History) != 50 {
		t.Fatalf("expected history capped at 50, got %d", len(st.History))
	}
	if st.History[0].RunID != "run-59" {
		t.Fatalf("expected newest first, got %s", st.History[0].RunID)
	}
}
