// Package execution is the stateless HTTP transport to the remote
// code-execution service. It issues run requests and fetches the current
// status of a submission id. No retries and no backoff here: the polling
// cadence belongs to the orchestrator so it can be shared with
// cancellation.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"ojcli/internal/model"
	appErr "ojcli/pkg/errors"
)

// Client wraps HTTP requests to the execution service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBaseURL changes the target service address.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

type submitResponse struct {
	SubmissionID string `json:"submissionId"`
}

type statusPayload struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout        string      `json:"stdout"`
	Stderr        string      `json:"stderr"`
	CompileOutput string      `json:"compile_output"`
	Message       string      `json:"message"`
	Time          json.Number `json:"time"`
	Memory        int64       `json:"memory"`
}

// Submit dispatches one execution request and returns the remote
// submission id. Fails with a TransportError-class error on network or
// protocol failure; it never retries.
func (c *Client) Submit(ctx context.Context, req model.SubmissionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", appErr.Wrap(err, appErr.SubmitFailed)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions/run", bytes.NewReader(body))
	if err != nil {
		return "", appErr.Wrap(err, appErr.SubmitFailed)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", appErr.Wrap(err, appErr.TransportError).WithMessagef("submit request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", appErr.New(appErr.BadStatusCode).WithMessagef("submit returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", appErr.Wrap(err, appErr.TransportError)
	}
	var out submitResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", appErr.Wrap(err, appErr.BadPayload)
	}
	if out.SubmissionID == "" {
		return "", appErr.New(appErr.BadPayload).WithMessage("submit response missing submission id")
	}
	return out.SubmissionID, nil
}

// FetchStatus retrieves the current state of a submission. The caller
// decides the retry policy.
func (c *Client) FetchStatus(ctx context.Context, submissionID string) (model.TestCaseResult, error) {
	var zero model.TestCaseResult
	if submissionID == "" {
		return zero, appErr.New(appErr.InvalidParams).WithMessage("submission id is empty")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/submissions/%s", c.baseURL, submissionID), nil)
	if err != nil {
		return zero, appErr.Wrap(err, appErr.StatusFetchFail)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return zero, appErr.Wrap(err, appErr.TransportError).WithMessagef("status request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return zero, appErr.New(appErr.BadStatusCode).WithMessagef("status returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, appErr.Wrap(err, appErr.TransportError)
	}
	var payload statusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return zero, appErr.Wrap(err, appErr.BadPayload)
	}

	return model.TestCaseResult{
		SubmissionID:  submissionID,
		Status:        model.VerdictFromStatusID(payload.Status.ID),
		Stdout:        payload.Stdout,
		Stderr:        payload.Stderr,
		CompileOutput: payload.CompileOutput,
		Message:       payload.Message,
		TimeMs:        parseTimeMs(payload.Time),
		MemoryKB:      payload.Memory,
	}, nil
}

// parseTimeMs converts the service's seconds-as-string field to
// milliseconds.
func parseTimeMs(raw json.Number) int64 {
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw.String(), 64)
	if err != nil {
		return 0
	}
	return int64(seconds * 1000)
}
