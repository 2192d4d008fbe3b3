package execution_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ojcli/internal/execution"
	"ojcli/internal/model"
	appErr "ojcli/pkg/errors"
)

func TestSubmitReturnsSubmissionID(t *testing.T) {
	t.Parallel()
	var captured model.SubmissionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/submissions/run" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request failed: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"submissionId":"sub-42"}`))
	}))
	defer server.Close()

	client := execution.New(server.URL, 2*time.Second)
	id, err := client.Submit(context.Background(), model.SubmissionRequest{
		ProblemID:  "p1",
		SourceCode: "print(1)",
		LanguageID: "python",
		Stdin:      "1 2",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if id != "sub-42" {
		t.Fatalf("unexpected submission id: %s", id)
	}
	if captured.ProblemID != "p1" || captured.Stdin != "1 2" {
		t.Fatalf("request body not forwarded: %+v", captured)
	}
}

func TestSubmitTransportError(t *testing.T) {
	t.Parallel()
	client := execution.New("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.Submit(context.Background(), model.SubmissionRequest{ProblemID: "p1"})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if code := appErr.GetCode(err); code != appErr.TransportError {
		t.Fatalf("expected TransportError code, got %d", code)
	}
}

func TestFetchStatusMapsVerdictAndUnits(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions/sub-7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"status": {"id": 4, "description": "Wrong Answer"},
			"stdout": "2",
			"stderr": "",
			"compile_output": "",
			"message": "",
			"time": "0.031",
			"memory": 1024
		}`))
	}))
	defer server.Close()

	client := execution.New(server.URL, 2*time.Second)
	res, err := client.FetchStatus(context.Background(), "sub-7")
	if err != nil {
		t.Fatalf("fetch status failed: %v", err)
	}
	if res.Status != model.VerdictWrongAnswer {
		t.Fatalf("expected WRONG_ANSWER, got %s", res.Status)
	}
	if res.TimeMs != 31 {
		t.Fatalf("expected 31ms, got %d", res.TimeMs)
	}
	if res.MemoryKB != 1024 {
		t.Fatalf("expected 1024kb, got %d", res.MemoryKB)
	}
	if res.SubmissionID != "sub-7" {
		t.Fatalf("expected submission id propagated, got %s", res.SubmissionID)
	}
}

func TestFetchStatusRuntimeErrorClass(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": {"id": 11, "description": "Runtime Error (NZEC)"}}`))
	}))
	defer server.Close()

	client := execution.New(server.URL, 2*time.Second)
	res, err := client.FetchStatus(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("fetch status failed: %v", err)
	}
	if res.Status != model.VerdictRuntimeError {
		t.Fatalf("expected RUNTIME_ERROR for id 11, got %s", res.Status)
	}
}

func TestFetchStatusBadPayload(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := execution.New(server.URL, 2*time.Second)
	_, err := client.FetchStatus(context.Background(), "sub-1")
	if code := appErr.GetCode(err); code != appErr.BadPayload {
		t.Fatalf("expected BadPayload code, got %d (err=%v)", code, err)
	}
}
