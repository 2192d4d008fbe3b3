// Package viewmodel folds live orchestrator snapshots and historical,
// refetched submissions into one rendering-ready shape, so the rendering
// layer never branches on where a submission came from.
package viewmodel

import (
	"context"
	"time"

	"ojcli/internal/model"
	"ojcli/internal/orchestrator"
	"ojcli/internal/verdict"
	appErr "ojcli/pkg/errors"
)

// Source says whether the view was built from the in-memory run or
// reconstructed from the remote service.
type Source string

const (
	SourceLive       Source = "live"
	SourceHistorical Source = "historical"
)

// TestCaseView is the per-test-case row handed to the renderer.
type TestCaseView struct {
	ID            string
	Status        model.Verdict
	StatusLabel   string
	Terminal      bool
	Stdout        string
	Stderr        string
	CompileOutput string
	Message       string
	TimeMs        int64
	MemoryKB      int64
}

// View is the rendering-ready submission shape.
type View struct {
	RunID       string
	ProblemID   string
	LanguageID  string
	SubmittedAt time.Time
	Source      Source

	Overall      model.Verdict
	OverallLabel string
	Progress     float64
	Complete     bool
	Running      bool

	TestCases []TestCaseView
}

// FromSnapshot builds a live view. A snapshot without a run renders as an
// empty pending view, which the caller shows as "no run yet".
func FromSnapshot(snap orchestrator.Snapshot) View {
	v := fromRun(snap.Run, SourceLive)
	v.Running = snap.IsTestingAll || snap.IsRunning
	return v
}

// FromRun builds a historical view over a reconstructed run.
func FromRun(run *model.SubmissionRun) View {
	return fromRun(run, SourceHistorical)
}

func fromRun(run *model.SubmissionRun, src Source) View {
	v := View{
		Source:   src,
		Overall:  verdict.OverallVerdict(run),
		Progress: verdict.ProgressFraction(run),
		Complete: verdict.Complete(run),
	}
	v.OverallLabel = Label(v.Overall)
	if run == nil {
		return v
	}
	v.RunID = run.ID
	v.ProblemID = run.ProblemID
	v.LanguageID = run.LanguageID
	v.SubmittedAt = run.SubmittedAt
	v.TestCases = make([]TestCaseView, 0, len(run.ExpectedOrder))
	for _, id := range run.ExpectedOrder {
		res, ok := run.Results[id]
		if !ok {
			res = model.TestCaseResult{TestCaseID: id, Status: model.VerdictPending}
		}
		v.TestCases = append(v.TestCases, TestCaseView{
			ID:            id,
			Status:        res.Status,
			StatusLabel:   Label(res.Status),
			Terminal:      res.Status.IsTerminal(),
			Stdout:        res.Stdout,
			Stderr:        res.Stderr,
			CompileOutput: res.CompileOutput,
			Message:       res.Message,
			TimeMs:        res.TimeMs,
			MemoryKB:      res.MemoryKB,
		})
	}
	return v
}

// Label renders a verdict for humans.
func Label(v model.Verdict) string {
	switch v {
	case model.VerdictPending:
		return "Pending"
	case model.VerdictInQueue:
		return "In Queue"
	case model.VerdictProcessing:
		return "Processing"
	case model.VerdictAccepted:
		return "Accepted"
	case model.VerdictWrongAnswer:
		return "Wrong Answer"
	case model.VerdictTimeLimitExceeded:
		return "Time Limit Exceeded"
	case model.VerdictRuntimeError:
		return "Runtime Error"
	case model.VerdictCompilationError:
		return "Compilation Error"
	case model.VerdictError:
		return "Unverified"
	default:
		return string(v)
	}
}

// StatusFetcher is the slice of the execution client needed to refetch a
// finished submission.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, submissionID string) (model.TestCaseResult, error)
}

// HistoryRecord is the locally kept index of a finished run: enough to
// refetch every result by submission id. The remote service keeps the
// results themselves.
type HistoryRecord struct {
	RunID       string            `json:"runId"`
	ProblemID   string            `json:"problemId"`
	LanguageID  string            `json:"languageId"`
	SubmittedAt time.Time         `json:"submittedAt"`
	Order       []string          `json:"order"`
	Dispatches  map[string]string `json:"dispatches"` // testCaseId -> submissionId
}

// RecordOf indexes a finished run for later reconstruction.
func RecordOf(run *model.SubmissionRun) HistoryRecord {
	rec := HistoryRecord{
		RunID:       run.ID,
		ProblemID:   run.ProblemID,
		LanguageID:  run.LanguageID,
		SubmittedAt: run.SubmittedAt,
		Order:       make([]string, len(run.ExpectedOrder)),
		Dispatches:  make(map[string]string, len(run.Dispatches)),
	}
	copy(rec.Order, run.ExpectedOrder)
	for k, v := range run.Dispatches {
		rec.Dispatches[k] = v
	}
	return rec
}

// Reconstruct refetches every result of a historical record and rebuilds
// the run through the same merge rule live results go through. A test case
// whose status cannot be fetched renders as unverified rather than failing
// the whole view.
func Reconstruct(ctx context.Context, fetcher StatusFetcher, rec HistoryRecord) (*model.SubmissionRun, error) {
	if len(rec.Order) == 0 {
		return nil, appErr.New(appErr.NotFound).WithMessage("empty history record")
	}
	run := model.NewSubmissionRun(rec.RunID, rec.ProblemID, rec.LanguageID, "", rec.Order, rec.SubmittedAt)
	for _, tcID := range rec.Order {
		subID, ok := rec.Dispatches[tcID]
		if !ok || subID == "" {
			continue
		}
		run.Dispatches[tcID] = subID
		res, err := fetcher.FetchStatus(ctx, subID)
		if err != nil {
			verdict.ApplyResult(run, model.TestCaseResult{
				SubmissionID: subID,
				TestCaseID:   tcID,
				Status:       model.VerdictError,
				Message:      err.Error(),
			})
			continue
		}
		res.TestCaseID = tcID
		verdict.ApplyResult(run, res)
	}
	return run, nil
}
