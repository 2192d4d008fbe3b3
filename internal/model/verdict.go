// Package model defines the domain types shared by the execution
// orchestration layer: problems, languages, verdicts and runs.
package model

// Verdict represents the lifecycle state of a single test-case execution.
//
// A result moves strictly forward: Pending -> InQueue -> Processing -> one
// of the terminal verdicts. Once terminal it never changes again.
type Verdict string

const (
	VerdictPending           Verdict = "PENDING"
	VerdictInQueue           Verdict = "IN_QUEUE"
	VerdictProcessing        Verdict = "PROCESSING"
	VerdictAccepted          Verdict = "ACCEPTED"
	VerdictWrongAnswer       Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictRuntimeError      Verdict = "RUNTIME_ERROR"
	VerdictCompilationError  Verdict = "COMPILATION_ERROR"

	// VerdictError marks a test case whose remote execution could not be
	// verified (transport failure or polling timeout). Terminal but not a
	// judgement of the code itself.
	VerdictError Verdict = "ERROR"
)

// Remote status ids as reported by the execution service.
const (
	statusIDInQueue          = 1
	statusIDProcessing       = 2
	statusIDAccepted         = 3
	statusIDWrongAnswer      = 4
	statusIDTimeLimit        = 5
	statusIDCompilationError = 6
)

// VerdictFromStatusID maps the execution service's numeric status id to a
// Verdict. Ids above the compilation-error id are runtime-error-class
// outcomes (signals, nonzero exit, internal sandbox faults).
func VerdictFromStatusID(id int) Verdict {
	switch id {
	case statusIDInQueue:
		return VerdictInQueue
	case statusIDProcessing:
		return VerdictProcessing
	case statusIDAccepted:
		return VerdictAccepted
	case statusIDWrongAnswer:
		return VerdictWrongAnswer
	case statusIDTimeLimit:
		return VerdictTimeLimitExceeded
	case statusIDCompilationError:
		return VerdictCompilationError
	default:
		if id > statusIDCompilationError {
			return VerdictRuntimeError
		}
		return VerdictPending
	}
}

// StatusID maps a Verdict back to the wire status id. Used by test fixtures
// and the mock judge service.
func (v Verdict) StatusID() int {
	switch v {
	case VerdictInQueue:
		return statusIDInQueue
	case VerdictProcessing:
		return statusIDProcessing
	case VerdictAccepted:
		return statusIDAccepted
	case VerdictWrongAnswer:
		return statusIDWrongAnswer
	case VerdictTimeLimitExceeded:
		return statusIDTimeLimit
	case VerdictCompilationError:
		return statusIDCompilationError
	case VerdictRuntimeError:
		return statusIDCompilationError + 1
	default:
		return 0
	}
}

// IsTerminal reports whether the verdict will never change again.
func (v Verdict) IsTerminal() bool {
	switch v {
	case VerdictAccepted, VerdictWrongAnswer, VerdictTimeLimitExceeded,
		VerdictRuntimeError, VerdictCompilationError, VerdictError:
		return true
	default:
		return false
	}
}
