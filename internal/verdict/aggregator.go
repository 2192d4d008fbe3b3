// Package verdict implements the pure aggregation rules that turn
// individual test-case results into a single submission verdict. It does
// no I/O: both polling and push-channel results are funneled through
// ApplyResult so race outcomes are governed by one merge rule.
package verdict

import "ojcli/internal/model"

// ApplyResult merges a single test-case result into the run and reports
// whether the run changed.
//
// Merge rule: a result for a test case already in a terminal state is
// discarded, so duplicate or late deliveries are no-ops. A result whose
// submission id does not match the dispatch recorded for its test case is
// stale (from an earlier run) and is discarded as well.
func ApplyResult(run *model.SubmissionRun, res model.TestCaseResult) bool {
	if run == nil || res.TestCaseID == "" {
		return false
	}
	dispatched, ok := run.Dispatches[res.TestCaseID]
	if !ok || dispatched != res.SubmissionID {
		return false
	}
	if existing, ok := run.Results[res.TestCaseID]; ok && existing.Status.IsTerminal() {
		return false
	}
	run.Results[res.TestCaseID] = res
	return true
}

// OverallVerdict derives the submission verdict from the current results.
//
// Compilation and runtime failures are global facts about the submission
// and pre-empt the wait-for-all rule; an in-progress test case must not
// mask them.
func OverallVerdict(run *model.SubmissionRun) model.Verdict {
	if run == nil {
		return model.VerdictPending
	}

	var (
		sawRuntimeError bool
		sawTimeLimit    bool
		allAccepted     = true
		terminalCount   = 0
	)
	for _, id := range run.ExpectedOrder {
		res, ok := run.Results[id]
		if !ok || !res.Status.IsTerminal() {
			allAccepted = false
			continue
		}
		terminalCount++
		switch res.Status {
		case model.VerdictCompilationError:
			return model.VerdictCompilationError
		case model.VerdictRuntimeError:
			sawRuntimeError = true
		case model.VerdictTimeLimitExceeded:
			sawTimeLimit = true
		}
		if res.Status != model.VerdictAccepted {
			allAccepted = false
		}
	}

	switch {
	case sawRuntimeError:
		return model.VerdictRuntimeError
	case sawTimeLimit:
		return model.VerdictTimeLimitExceeded
	case terminalCount == len(run.ExpectedOrder) && len(run.ExpectedOrder) > 0 && allAccepted:
		return model.VerdictAccepted
	case terminalCount == len(run.ExpectedOrder) && len(run.ExpectedOrder) > 0:
		return model.VerdictWrongAnswer
	default:
		return model.VerdictProcessing
	}
}

// ProgressFraction returns terminal results over expected test cases, for
// progress reporting. Zero when the run expects no test cases.
func ProgressFraction(run *model.SubmissionRun) float64 {
	if run == nil || len(run.ExpectedOrder) == 0 {
		return 0
	}
	terminal := 0
	for _, id := range run.ExpectedOrder {
		if res, ok := run.Results[id]; ok && res.Status.IsTerminal() {
			terminal++
		}
	}
	return float64(terminal) / float64(len(run.ExpectedOrder))
}

// Complete reports whether every expected test case has reached a
// terminal-or-error state, which is when a batch's running indicator
// clears.
func Complete(run *model.SubmissionRun) bool {
	if run == nil || len(run.ExpectedOrder) == 0 {
		return false
	}
	for _, id := range run.ExpectedOrder {
		res, ok := run.Results[id]
		if !ok || !res.Status.IsTerminal() {
			return false
		}
	}
	return true
}
