package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Transport errors (remote execution service, push channel)
// 12000-12999: Solution cache errors
// 13000-13999: Run orchestration errors
const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError      ErrorCode = 10001
	InvalidParams      ErrorCode = 10002
	NotFound           ErrorCode = 10003
	ServiceUnavailable ErrorCode = 10004
	Timeout            ErrorCode = 10005

	// Validation errors (10100-10199)
	ValidationFailed   ErrorCode = 10100
	RequiredFieldEmpty ErrorCode = 10101

	// ========== Transport Errors (11000-11999) ==========

	// Remote execution service (11000-11099)
	TransportError  ErrorCode = 11000
	SubmitFailed    ErrorCode = 11001
	StatusFetchFail ErrorCode = 11002
	BadStatusCode   ErrorCode = 11003
	BadPayload      ErrorCode = 11004

	// Push channel (11100-11199)
	ChannelConnectFailed  ErrorCode = 11100
	ChannelRegisterFailed ErrorCode = 11101
	ChannelClosed         ErrorCode = 11102

	// ========== Solution Cache Errors (12000-12999) ==========

	CacheError       ErrorCode = 12000
	CacheCorrupted   ErrorCode = 12001
	LanguageMismatch ErrorCode = 12002
	StoreUnavailable ErrorCode = 12003

	// ========== Run Orchestration Errors (13000-13999) ==========

	RunAlreadyActive   ErrorCode = 13000
	RunInvalidated     ErrorCode = 13001
	PollTimedOut       ErrorCode = 13002
	NoProblemSelected  ErrorCode = 13003
	NoLanguageSelected ErrorCode = 13004
	EmptySourceCode    ErrorCode = 13005
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:            "Success",
	InternalError:      "Internal error",
	InvalidParams:      "Invalid parameters",
	NotFound:           "Resource not found",
	ServiceUnavailable: "Service temporarily unavailable",
	Timeout:            "Request timeout",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Transport
	TransportError:  "Remote execution service request failed",
	SubmitFailed:    "Failed to submit code for execution",
	StatusFetchFail: "Failed to fetch submission status",
	BadStatusCode:   "Remote execution service returned an unexpected status code",
	BadPayload:      "Remote execution service returned an unparseable payload",

	// Push channel
	ChannelConnectFailed:  "Failed to connect to the push channel",
	ChannelRegisterFailed: "Failed to register identity on the push channel",
	ChannelClosed:         "Push channel connection closed",

	// Solution cache
	CacheError:       "Solution cache operation failed",
	CacheCorrupted:   "Cached solution entry is corrupted",
	LanguageMismatch: "Cached solution entry language does not match",
	StoreUnavailable: "Solution cache store is unavailable",

	// Run orchestration
	RunAlreadyActive:   "A run is already in progress for this problem",
	RunInvalidated:     "The run was invalidated before it completed",
	PollTimedOut:       "Polling attempts exhausted without a terminal status",
	NoProblemSelected:  "No problem is selected",
	NoLanguageSelected: "No language is selected",
	EmptySourceCode:    "Source code is empty",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}
