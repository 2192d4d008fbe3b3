package verdict_test

import (
	"testing"
	"time"

	"ojcli/internal/model"
	"ojcli/internal/verdict"
)

func newRun(expected ...string) *model.SubmissionRun {
	run := model.NewSubmissionRun("run-1", "p1", "cpp", "int main(){}", expected, time.Now())
	for _, id := range expected {
		run.Dispatches[id] = "sub-" + id
	}
	return run
}

func result(testCaseID string, status model.Verdict) model.TestCaseResult {
	return model.TestCaseResult{
		SubmissionID: "sub-" + testCaseID,
		TestCaseID:   testCaseID,
		Status:       status,
	}
}

func TestApplyResultIdempotentOnTerminal(t *testing.T) {
	t.Parallel()
	run := newRun("a")
	first := result("a", model.VerdictAccepted)
	first.Stdout = "3"
	if !verdict.ApplyResult(run, first) {
		t.Fatalf("expected first terminal result to apply")
	}

	late := result("a", model.VerdictWrongAnswer)
	late.Stdout = "garbage"
	if verdict.ApplyResult(run, late) {
		t.Fatalf("expected late result for terminal test case to be discarded")
	}
	if got := run.Results["a"]; got.Status != model.VerdictAccepted || got.Stdout != "3" {
		t.Fatalf("terminal result mutated: %+v", got)
	}
}

func TestApplyResultOverwritesNonTerminal(t *testing.T) {
	t.Parallel()
	run := newRun("a")
	if !verdict.ApplyResult(run, result("a", model.VerdictInQueue)) {
		t.Fatalf("expected in-queue result to apply")
	}
	if !verdict.ApplyResult(run, result("a", model.VerdictProcessing)) {
		t.Fatalf("expected processing result to overwrite in-queue")
	}
	if !verdict.ApplyResult(run, result("a", model.VerdictAccepted)) {
		t.Fatalf("expected terminal result to overwrite processing")
	}
}

func TestApplyResultDiscardsMismatchedSubmissionID(t *testing.T) {
	t.Parallel()
	run := newRun("a")
	stale := model.TestCaseResult{
		SubmissionID: "sub-from-previous-run",
		TestCaseID:   "a",
		Status:       model.VerdictWrongAnswer,
	}
	if verdict.ApplyResult(run, stale) {
		t.Fatalf("expected stale submission id to be discarded")
	}
	if len(run.Results) != 0 {
		t.Fatalf("stale result corrupted the run: %+v", run.Results)
	}
}

func TestApplyResultDiscardsUnknownTestCase(t *testing.T) {
	t.Parallel()
	run := newRun("a")
	if verdict.ApplyResult(run, result("zzz", model.VerdictAccepted)) {
		t.Fatalf("expected result for undispatched test case to be discarded")
	}
}

func TestOverallVerdictCompilationErrorPreempts(t *testing.T) {
	t.Parallel()
	run := newRun("a", "b", "c")
	verdict.ApplyResult(run, result("a", model.VerdictAccepted))
	verdict.ApplyResult(run, result("b", model.VerdictCompilationError))
	// c still in flight: compile failure must not be masked by it.
	if got := verdict.OverallVerdict(run); got != model.VerdictCompilationError {
		t.Fatalf("expected COMPILATION_ERROR, got %s", got)
	}
}

func TestOverallVerdictRuntimeErrorBeatsTimeLimit(t *testing.T) {
	t.Parallel()
	run := newRun("a", "b")
	verdict.ApplyResult(run, result("a", model.VerdictTimeLimitExceeded))
	verdict.ApplyResult(run, result("b", model.VerdictRuntimeError))
	if got := verdict.OverallVerdict(run); got != model.VerdictRuntimeError {
		t.Fatalf("expected RUNTIME_ERROR, got %s", got)
	}
}

func TestOverallVerdictWaitsForAllBeforeAccepting(t *testing.T) {
	t.Parallel()
	run := newRun("a", "b", "c", "d", "e")
	for _, id := range []string{"a", "b", "c", "d"} {
		verdict.ApplyResult(run, result(id, model.VerdictAccepted))
	}
	verdict.ApplyResult(run, result("e", model.VerdictProcessing))
	if got := verdict.OverallVerdict(run); got != model.VerdictProcessing {
		t.Fatalf("expected PROCESSING with one test in flight, got %s", got)
	}

	verdict.ApplyResult(run, result("e", model.VerdictAccepted))
	if got := verdict.OverallVerdict(run); got != model.VerdictAccepted {
		t.Fatalf("expected ACCEPTED once all terminal, got %s", got)
	}
}

func TestOverallVerdictWrongAnswerWhenComplete(t *testing.T) {
	t.Parallel()
	run := newRun("a", "b")
	verdict.ApplyResult(run, result("a", model.VerdictAccepted))
	verdict.ApplyResult(run, result("b", model.VerdictWrongAnswer))
	if got := verdict.OverallVerdict(run); got != model.VerdictWrongAnswer {
		t.Fatalf("expected WRONG_ANSWER, got %s", got)
	}
}

func TestOverallVerdictDeterministic(t *testing.T) {
	t.Parallel()
	run := newRun("a", "b")
	verdict.ApplyResult(run, result("a", model.VerdictAccepted))
	verdict.ApplyResult(run, result("b", model.VerdictWrongAnswer))
	first := verdict.OverallVerdict(run)
	second := verdict.OverallVerdict(run)
	if first != second {
		t.Fatalf("derivation not deterministic: %s vs %s", first, second)
	}
}

func TestProgressFraction(t *testing.T) {
	t.Parallel()
	run := newRun("a", "b", "c", "d")
	if got := verdict.ProgressFraction(run); got != 0 {
		t.Fatalf("expected 0 progress, got %f", got)
	}
	verdict.ApplyResult(run, result("a", model.VerdictAccepted))
	verdict.ApplyResult(run, result("b", model.VerdictProcessing))
	if got := verdict.ProgressFraction(run); got != 0.25 {
		t.Fatalf("expected 0.25 progress, got %f", got)
	}

	empty := model.NewSubmissionRun("run-2", "p1", "cpp", "", nil, time.Now())
	if got := verdict.ProgressFraction(empty); got != 0 {
		t.Fatalf("expected 0 progress for empty run, got %f", got)
	}
}

func TestCompleteIncludesErrorResults(t *testing.T) {
	t.Parallel()
	run := newRun("a", "b")
	verdict.ApplyResult(run, result("a", model.VerdictAccepted))
	verdict.ApplyResult(run, result("b", model.VerdictError))
	if !verdict.Complete(run) {
		t.Fatalf("expected run to be complete when every case is terminal or error")
	}
}
