package viewmodel_test

import (
	"context"
	"testing"
	"time"

	"ojcli/internal/model"
	"ojcli/internal/orchestrator"
	"ojcli/internal/viewmodel"
	appErr "ojcli/pkg/errors"
)

func finishedRun() *model.SubmissionRun {
	run := model.NewSubmissionRun("run-1", "p1", "java", "code", []string{"a", "b"}, time.Unix(1_700_000_000, 0))
	run.Dispatches["a"] = "sub-1"
	run.Dispatches["b"] = "sub-2"
	run.Results["a"] = model.TestCaseResult{SubmissionID: "sub-1", TestCaseID: "a", Status: model.VerdictAccepted, TimeMs: 12}
	run.Results["b"] = model.TestCaseResult{SubmissionID: "sub-2", TestCaseID: "b", Status: model.VerdictWrongAnswer, Stdout: "4"}
	return run
}

func TestFromSnapshotLive(t *testing.T) {
	t.Parallel()
	run := model.NewSubmissionRun("run-1", "p1", "java", "code", []string{"a", "b"}, time.Now())
	run.Dispatches["a"] = "sub-1"
	run.Results["a"] = model.TestCaseResult{SubmissionID: "sub-1", TestCaseID: "a", Status: model.VerdictProcessing}

	v := viewmodel.FromSnapshot(orchestrator.Snapshot{
		Run:          run,
		Overall:      model.VerdictProcessing,
		Progress:     0,
		IsTestingAll: true,
	})
	if v.Source != viewmodel.SourceLive {
		t.Fatalf("expected live source, got %s", v.Source)
	}
	if !v.Running {
		t.Fatalf("active batch must render as running")
	}
	if len(v.TestCases) != 2 {
		t.Fatalf("expected a row per expected test case, got %d", len(v.TestCases))
	}
	// A test case not yet dispatched still gets a pending row.
	if v.TestCases[1].Status != model.VerdictPending {
		t.Fatalf("undispatched case should render pending, got %s", v.TestCases[1].Status)
	}
	if v.TestCases[0].StatusLabel != "Processing" {
		t.Fatalf("unexpected label %q", v.TestCases[0].StatusLabel)
	}
}

func TestFromSnapshotWithoutRun(t *testing.T) {
	t.Parallel()
	v := viewmodel.FromSnapshot(orchestrator.Snapshot{Overall: model.VerdictPending})
	if v.Running || v.Complete || len(v.TestCases) != 0 {
		t.Fatalf("empty snapshot should render an empty view: %+v", v)
	}
}

func TestFromRunHistorical(t *testing.T) {
	t.Parallel()
	v := viewmodel.FromRun(finishedRun())
	if v.Source != viewmodel.SourceHistorical {
		t.Fatalf("expected historical source, got %s", v.Source)
	}
	if v.Overall != model.VerdictWrongAnswer || v.OverallLabel != "Wrong Answer" {
		t.Fatalf("unexpected overall %s (%s)", v.Overall, v.OverallLabel)
	}
	if !v.Complete || v.Progress != 1 {
		t.Fatalf("finished run should be complete, got complete=%v progress=%f", v.Complete, v.Progress)
	}
	if v.Running {
		t.Fatalf("historical view must never render as running")
	}
}

type fakeFetcher struct {
	results map[string]model.TestCaseResult
	errs    map[string]error
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, submissionID string) (model.TestCaseResult, error) {
	if err, ok := f.errs[submissionID]; ok {
		return model.TestCaseResult{}, err
	}
	return f.results[submissionID], nil
}

func TestReconstructRefetchesEveryCase(t *testing.T) {
	t.Parallel()
	rec := viewmodel.RecordOf(finishedRun())
	fetcher := &fakeFetcher{results: map[string]model.TestCaseResult{
		"sub-1": {SubmissionID: "sub-1", Status: model.VerdictAccepted, TimeMs: 12},
		"sub-2": {SubmissionID: "sub-2", Status: model.VerdictWrongAnswer, Stdout: "4"},
	}}

	run, err := viewmodel.Reconstruct(context.Background(), fetcher, rec)
	if err != nil {
		t.Fatalf("reconstruct failed: %v", err)
	}
	v := viewmodel.FromRun(run)
	if v.Overall != model.VerdictWrongAnswer {
		t.Fatalf("expected WRONG_ANSWER, got %s", v.Overall)
	}
	if v.TestCases[0].TimeMs != 12 || v.TestCases[1].Stdout != "4" {
		t.Fatalf("refetched fields lost: %+v", v.TestCases)
	}
}

func TestReconstructToleratesFetchFailure(t *testing.T) {
	t.Parallel()
	rec := viewmodel.RecordOf(finishedRun())
	fetcher := &fakeFetcher{
		results: map[string]model.TestCaseResult{
			"sub-1": {SubmissionID: "sub-1", Status: model.VerdictAccepted},
		},
		errs: map[string]error{"sub-2": appErr.New(appErr.TransportError)},
	}

	run, err := viewmodel.Reconstruct(context.Background(), fetcher, rec)
	if err != nil {
		t.Fatalf("reconstruct failed: %v", err)
	}
	if run.Results["b"].Status != model.VerdictError {
		t.Fatalf("unfetchable case should render unverified, got %s", run.Results["b"].Status)
	}
}

func TestReconstructEmptyRecord(t *testing.T) {
	t.Parallel()
	_, err := viewmodel.Reconstruct(context.Background(), &fakeFetcher{}, viewmodel.HistoryRecord{})
	if !appErr.Is(err, appErr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
