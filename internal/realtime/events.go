package realtime

// Event names exchanged with the execution service's push channel.
const (
	EventRegister         = "register"
	EventTestCaseResult   = "testCaseResult"
	EventSubmissionResult = "submissionResult"
)

// RegisterPayload is the outbound identity registration body. It must be
// re-sent after every reconnect so pushed events are addressed correctly.
type RegisterPayload struct {
	UserID string `json:"userId"`
}

// TestCaseResultPayload is the inbound per-test-case event body. The
// submissionId/testCaseId pair is the correlation key; the channel gives
// no deduplication guarantee, so consumers must merge idempotently.
type TestCaseResultPayload struct {
	SubmissionID  string `json:"submissionId"`
	TestCaseID    string `json:"testCaseId"`
	StatusID      int    `json:"statusId"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compileOutput"`
	Message       string `json:"message"`
	TimeMs        int64  `json:"executionTimeMs"`
	MemoryKB      int64  `json:"memoryUsedKb"`
}

// SubmissionResultPayload is the inbound whole-submission summary event.
type SubmissionResultPayload struct {
	SubmissionID string `json:"submissionId"`
	StatusID     int    `json:"statusId"`
	Verdict      string `json:"verdict"`
}
