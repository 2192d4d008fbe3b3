package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ojcli/internal/model"
	"ojcli/internal/realtime"
	"ojcli/pkg/utils/logger"
)

// Source directives let a client script the outcome of a submission:
//
//	@@verdict=WRONG_ANSWER     force this verdict for every input
//	@@fail-on=<substring>      wrong answer only when stdin contains it
//
// Without directives every submission is accepted.
const (
	directiveVerdict = "@@verdict="
	directiveFailOn  = "@@fail-on="
)

type submission struct {
	id        string
	req       model.SubmissionRequest
	createdAt time.Time
	verdict   model.Verdict
	pushed    bool
}

// engine is the in-memory judge. State progresses on the wall clock:
// in-queue for the queue latency, processing for the processing latency,
// then terminal.
type engine struct {
	mu      sync.Mutex
	subs    map[string]*submission
	latency LatencyConfig
	hub     *hub
	dupPush bool
}

func newEngine(latency LatencyConfig, h *hub, dupPush bool) *engine {
	return &engine{
		subs:    make(map[string]*submission),
		latency: latency,
		hub:     h,
		dupPush: dupPush,
	}
}

func (e *engine) accept(req model.SubmissionRequest) string {
	sub := &submission{
		id:        uuid.NewString(),
		req:       req,
		createdAt: time.Now(),
		verdict:   judge(req),
	}
	e.mu.Lock()
	e.subs[sub.id] = sub
	e.mu.Unlock()

	terminalAt := e.latency.Queue + e.latency.Processing
	time.AfterFunc(terminalAt, func() { e.push(sub.id) })
	return sub.id
}

// judge decides the terminal verdict from the source directives.
func judge(req model.SubmissionRequest) model.Verdict {
	for _, line := range strings.Split(req.SourceCode, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, directiveVerdict); ok {
			v := model.Verdict(strings.TrimSpace(rest))
			if v.IsTerminal() && v != model.VerdictError {
				return v
			}
		}
		if rest, ok := strings.CutPrefix(line, directiveFailOn); ok {
			if strings.Contains(req.Stdin, strings.TrimSpace(rest)) {
				return model.VerdictWrongAnswer
			}
		}
	}
	return model.VerdictAccepted
}

// status returns the wire payload for a submission at the current time.
func (e *engine) status(id string) (map[string]interface{}, bool) {
	e.mu.Lock()
	sub, ok := e.subs[id]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}

	elapsed := time.Since(sub.createdAt)
	verdict := model.VerdictInQueue
	switch {
	case elapsed >= e.latency.Queue+e.latency.Processing:
		verdict = sub.verdict
	case elapsed >= e.latency.Queue:
		verdict = model.VerdictProcessing
	}
	return e.payload(sub, verdict), true
}

func (e *engine) payload(sub *submission, verdict model.Verdict) map[string]interface{} {
	out := map[string]interface{}{
		"status": map[string]interface{}{
			"id":          verdict.StatusID(),
			"description": string(verdict),
		},
	}
	if !verdict.IsTerminal() {
		return out
	}
	out["time"] = fmt.Sprintf("%.3f", e.latency.Processing.Seconds())
	out["memory"] = int64(10240)
	switch verdict {
	case model.VerdictAccepted:
		out["stdout"] = "ok"
	case model.VerdictWrongAnswer:
		out["stdout"] = "not ok"
	case model.VerdictCompilationError:
		out["compile_output"] = "mock compile error"
	case model.VerdictRuntimeError:
		out["stderr"] = "mock runtime fault"
		out["message"] = "Exited with error status 1"
	case model.VerdictTimeLimitExceeded:
		out["message"] = "Time limit exceeded"
	}
	return out
}

// push broadcasts the terminal result over the websocket hub.
func (e *engine) push(id string) {
	e.mu.Lock()
	sub, ok := e.subs[id]
	if !ok || sub.pushed {
		e.mu.Unlock()
		return
	}
	sub.pushed = true
	verdict := sub.verdict
	e.mu.Unlock()

	payload := realtime.TestCaseResultPayload{
		SubmissionID: sub.id,
		TestCaseID:   sub.req.TestCaseID,
		StatusID:     verdict.StatusID(),
		TimeMs:       e.latency.Processing.Milliseconds(),
		MemoryKB:     10240,
	}
	switch verdict {
	case model.VerdictAccepted:
		payload.Stdout = "ok"
	case model.VerdictWrongAnswer:
		payload.Stdout = "not ok"
	case model.VerdictCompilationError:
		payload.CompileOutput = "mock compile error"
	case model.VerdictRuntimeError:
		payload.Stderr = "mock runtime fault"
	}

	e.hub.broadcast(realtime.EventTestCaseResult, payload)
	if e.dupPush {
		e.hub.broadcast(realtime.EventTestCaseResult, payload)
	}
	logger.Info(context.Background(), "pushed terminal result",
		zap.String("submission_id", sub.id),
		zap.String("verdict", string(verdict)))
}
