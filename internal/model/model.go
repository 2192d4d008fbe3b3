package model

import "time"

// TestCaseSpec is a single test case of a problem definition.
type TestCaseSpec struct {
	ID             string `json:"id" yaml:"id"`
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expected_output" yaml:"expectedOutput"`
	IsHidden       bool   `json:"is_hidden" yaml:"isHidden"`
}

// Problem is an immutable problem definition owned by the problem service.
// The orchestration layer only reads it.
type Problem struct {
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Difficulty  string         `json:"difficulty" yaml:"difficulty"`
	TimeLimitMs int64          `json:"time_limit_ms" yaml:"timeLimitMs"`
	MemoryKB    int64          `json:"memory_kb" yaml:"memoryKB"`
	TestCases   []TestCaseSpec `json:"test_cases" yaml:"testCases"`
}

// VisibleTestCases returns the non-hidden test cases in declaration order.
func (p *Problem) VisibleTestCases() []TestCaseSpec {
	out := make([]TestCaseSpec, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		if !tc.IsHidden {
			out = append(out, tc)
		}
	}
	return out
}

// HiddenTestCases returns the hidden test cases in declaration order.
func (p *Problem) HiddenTestCases() []TestCaseSpec {
	out := make([]TestCaseSpec, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		if tc.IsHidden {
			out = append(out, tc)
		}
	}
	return out
}

// Language is a static language configuration entry.
type Language struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"displayName"`
	EditorTag   string `json:"editor_tag" yaml:"editorTag"`
}

// SubmissionRequest is the payload for one remote execution dispatch.
// Created per run, never persisted.
type SubmissionRequest struct {
	ProblemID  string `json:"problemId"`
	SourceCode string `json:"sourceCode"`
	LanguageID string `json:"languageId"`
	Stdin      string `json:"input"`
	TestCaseID string `json:"testCaseId,omitempty"`
}

// TestCaseResult is the mutable record for one test-case execution, keyed
// by test-case id within a run. Transitions only forward; once the status
// is terminal the record is immutable.
type TestCaseResult struct {
	SubmissionID  string  `json:"submission_id"`
	TestCaseID    string  `json:"test_case_id"`
	Status        Verdict `json:"status"`
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	CompileOutput string  `json:"compile_output"`
	Message       string  `json:"message"`
	TimeMs        int64   `json:"time_ms"`
	MemoryKB      int64   `json:"memory_kb"`
}

// SubmissionRun is one logical run or submit operation over a problem's
// test cases. Results accumulate under the aggregator's merge rule; the
// overall verdict is always derived, never stored.
type SubmissionRun struct {
	ID          string
	ProblemID   string
	LanguageID  string
	SourceCode  string
	SubmittedAt time.Time

	// ExpectedOrder lists the test-case ids this run will judge, in
	// dispatch order.
	ExpectedOrder []string

	// Dispatches maps test-case id to the remote submission id issued for
	// it. A result whose submission id does not match is stale and must
	// be discarded.
	Dispatches map[string]string

	// Results holds the current per-test-case state, keyed by test-case id.
	Results map[string]TestCaseResult
}

// NewSubmissionRun creates an empty run for the given problem snapshot.
func NewSubmissionRun(id, problemID, languageID, sourceCode string, expected []string, at time.Time) *SubmissionRun {
	order := make([]string, len(expected))
	copy(order, expected)
	return &SubmissionRun{
		ID:            id,
		ProblemID:     problemID,
		LanguageID:    languageID,
		SourceCode:    sourceCode,
		SubmittedAt:   at,
		ExpectedOrder: order,
		Dispatches:    make(map[string]string, len(expected)),
		Results:       make(map[string]TestCaseResult, len(expected)),
	}
}

// Clone returns a deep copy, used to hand read-only snapshots to the view
// layer while the orchestrator keeps mutating the original.
func (r *SubmissionRun) Clone() *SubmissionRun {
	if r == nil {
		return nil
	}
	out := &SubmissionRun{
		ID:            r.ID,
		ProblemID:     r.ProblemID,
		LanguageID:    r.LanguageID,
		SourceCode:    r.SourceCode,
		SubmittedAt:   r.SubmittedAt,
		ExpectedOrder: make([]string, len(r.ExpectedOrder)),
		Dispatches:    make(map[string]string, len(r.Dispatches)),
		Results:       make(map[string]TestCaseResult, len(r.Results)),
	}
	copy(out.ExpectedOrder, r.ExpectedOrder)
	for k, v := range r.Dispatches {
		out.Dispatches[k] = v
	}
	for k, v := range r.Results {
		out.Results[k] = v
	}
	return out
}
