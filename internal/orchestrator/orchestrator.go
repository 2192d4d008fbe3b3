// Package orchestrator coordinates the execution client, the push
// channel, the verdict aggregator and the solution cache into the three
// user-facing operations: run a custom input, run the visible tests, and
// submit the solution.
//
// Results for one logical fact can arrive twice (a poll response and a
// pushed event racing each other); both paths go through the aggregator's
// single merge rule, so the race outcome is governed in one place.
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ojcli/internal/model"
	"ojcli/internal/realtime"
	"ojcli/internal/solutioncache"
	"ojcli/internal/verdict"
	appErr "ojcli/pkg/errors"
	"ojcli/pkg/utils/contextkey"
	"ojcli/pkg/utils/logger"
)

// CustomTestCaseID keys ad-hoc runs that are not part of a SubmissionRun.
const CustomTestCaseID = "custom"

// ExecutionClient is the transport the orchestrator dispatches through.
type ExecutionClient interface {
	Submit(ctx context.Context, req model.SubmissionRequest) (string, error)
	FetchStatus(ctx context.Context, submissionID string) (model.TestCaseResult, error)
}

// EventSource is the push channel. It may be absent; the orchestrator
// never assumes push delivery and always keeps the polling loop running.
type EventSource interface {
	Connect(ctx context.Context) error
	RegisterIdentity(ctx context.Context, userID string) error
	OnEvent(name string, h realtime.Handler) int
	Off(name string, subID int)
}

// Config holds orchestrator settings.
type Config struct {
	UserID string     `yaml:"userID"`
	Poll   PollConfig `yaml:"poll"`
}

// Snapshot is the read-only view handed to subscribers after every state
// change.
type Snapshot struct {
	Run          *model.SubmissionRun
	Overall      model.Verdict
	Progress     float64
	IsTestingAll bool
	IsRunning    bool
}

// Orchestrator owns the active SubmissionRun for the selected problem.
type Orchestrator struct {
	exec   ExecutionClient
	events EventSource
	cache  *solutioncache.Cache
	cfg    Config

	mu           sync.Mutex
	epoch        uint64
	problem      *model.Problem
	language     model.Language
	source       func() string
	run          *model.SubmissionRun
	isTestingAll bool
	isRunning    bool
	nextObsID    int
	observers    map[int]func(Snapshot)
	eventSubs    []int
}

// New builds an orchestrator with injected dependencies. events and cache
// may be nil (polling-only, no persistence).
func New(exec ExecutionClient, events EventSource, cache *solutioncache.Cache, cfg Config) *Orchestrator {
	cfg.Poll.applyDefaults()
	return &Orchestrator{
		exec:      exec,
		events:    events,
		cache:     cache,
		cfg:       cfg,
		observers: make(map[int]func(Snapshot)),
	}
}

// Start connects the push channel, registers the configured identity and
// wires pushed results into the aggregator. Push failures are logged,
// never fatal: polling covers for the channel.
func (o *Orchestrator) Start(ctx context.Context) {
	if o.events == nil {
		return
	}
	if err := o.events.Connect(ctx); err != nil {
		logger.Warn(ctx, "push channel unavailable, relying on polling", zap.Error(err))
		return
	}
	if o.cfg.UserID != "" {
		if err := o.events.RegisterIdentity(ctx, o.cfg.UserID); err != nil {
			logger.Warn(ctx, "push channel registration failed", zap.Error(err))
		}
	}
	sub := o.events.OnEvent(realtime.EventTestCaseResult, o.handleTestCaseEvent)
	o.mu.Lock()
	o.eventSubs = append(o.eventSubs, sub)
	o.mu.Unlock()
}

// Stop unsubscribes from the push channel.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	subs := o.eventSubs
	o.eventSubs = nil
	o.mu.Unlock()
	if o.events == nil {
		return
	}
	for _, sub := range subs {
		o.events.Off(realtime.EventTestCaseResult, sub)
	}
}

// SetSourceProvider installs the getter for the current editor text. The
// editor itself is an opaque buffer owned elsewhere.
func (o *Orchestrator) SetSourceProvider(get func() string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.source = get
}

// SetProblem selects a problem, invalidating any in-flight run and
// loading the cached solution for the current language, if any.
func (o *Orchestrator) SetProblem(ctx context.Context, p *model.Problem) string {
	o.mu.Lock()
	o.problem = p
	languageID := o.language.ID
	o.invalidateLocked()
	o.mu.Unlock()

	if o.cache == nil || p == nil || languageID == "" {
		return ""
	}
	code, _ := o.cache.Load(ctx, p.ID, languageID)
	return code
}

// SetLanguage selects a language, invalidating any in-flight run. Returns
// the cached code for the (problem, language) pair so the caller can
// restore the buffer; the previous language's code is never shown.
func (o *Orchestrator) SetLanguage(ctx context.Context, lang model.Language) string {
	o.mu.Lock()
	o.language = lang
	problem := o.problem
	o.invalidateLocked()
	o.mu.Unlock()

	if o.cache == nil || problem == nil || lang.ID == "" {
		return ""
	}
	code, _ := o.cache.Load(ctx, problem.ID, lang.ID)
	return code
}

// Invalidate discards the active run, e.g. when the view unmounts. The
// remote executions cannot be aborted; their late results are discarded
// on arrival instead.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	o.invalidateLocked()
	o.mu.Unlock()
}

func (o *Orchestrator) invalidateLocked() {
	o.epoch++
	o.run = nil
	o.isTestingAll = false
	o.isRunning = false
}

// Subscribe registers an observer notified after every state change.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextObsID++
	o.observers[o.nextObsID] = fn
	return o.nextObsID
}

// Unsubscribe removes an observer.
func (o *Orchestrator) Unsubscribe(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observers, id)
}

// CurrentSnapshot returns the present state without waiting for a change.
func (o *Orchestrator) CurrentSnapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Run:          o.run.Clone(),
		Overall:      verdict.OverallVerdict(o.run),
		Progress:     verdict.ProgressFraction(o.run),
		IsTestingAll: o.isTestingAll,
		IsRunning:    o.isRunning,
	}
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	snap := o.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(o.observers))
	for _, fn := range o.observers {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// SaveSolution persists the current buffer for the selected pair. Wired
// to the caller's periodic tick and to save-before-run.
func (o *Orchestrator) SaveSolution(ctx context.Context) error {
	o.mu.Lock()
	problem, lang, source := o.problem, o.language, o.source
	o.mu.Unlock()
	if o.cache == nil || problem == nil || lang.ID == "" || source == nil {
		return nil
	}
	return o.cache.Save(ctx, problem.ID, lang, source())
}

// RunCustomTest submits the current buffer against an ad-hoc stdin and
// resolves a single result. Not scored, not part of a SubmissionRun.
// Guarded so a second invocation while one is active is rejected.
func (o *Orchestrator) RunCustomTest(ctx context.Context, stdin string) (model.TestCaseResult, error) {
	var zero model.TestCaseResult
	o.mu.Lock()
	if o.isRunning {
		o.mu.Unlock()
		return zero, appErr.New(appErr.RunAlreadyActive).WithMessage("a custom test is already running")
	}
	problem, lang, source, err := o.requireSelectionLocked()
	if err != nil {
		o.mu.Unlock()
		return zero, err
	}
	o.isRunning = true
	epoch := o.epoch
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.epoch == epoch {
			o.isRunning = false
		}
		o.mu.Unlock()
		o.notify()
	}()
	o.notify()

	_ = o.SaveSolution(ctx)

	req := model.SubmissionRequest{
		ProblemID:  problem.ID,
		SourceCode: source(),
		LanguageID: lang.ID,
		Stdin:      stdin,
		TestCaseID: CustomTestCaseID,
	}
	submissionID, err := o.exec.Submit(ctx, req)
	if err != nil {
		return zero, err
	}

	return o.pollUntilTerminal(ctx, epoch, submissionID, CustomTestCaseID)
}

// RunVisibleTests dispatches every non-hidden test case sequentially and
// returns the finished run snapshot. A second invocation while a batch is
// active is a no-op returning the in-flight state.
func (o *Orchestrator) RunVisibleTests(ctx context.Context) (Snapshot, error) {
	return o.runBatch(ctx, false)
}

// SubmitSolution runs the visible tests and, only if every one of them is
// accepted, continues into the hidden tests. Hidden quota is never spent
// on a solution already known to be wrong.
func (o *Orchestrator) SubmitSolution(ctx context.Context) (Snapshot, error) {
	return o.runBatch(ctx, true)
}

func (o *Orchestrator) runBatch(ctx context.Context, includeHidden bool) (Snapshot, error) {
	o.mu.Lock()
	if o.isTestingAll {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, nil
	}
	problem, lang, source, err := o.requireSelectionLocked()
	if err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}

	visible := problem.VisibleTestCases()
	expected := make([]string, 0, len(visible))
	for _, tc := range visible {
		expected = append(expected, tc.ID)
	}
	code := source()
	run := model.NewSubmissionRun(uuid.NewString(), problem.ID, lang.ID, code, expected, time.Now())
	o.run = run
	o.isTestingAll = true
	epoch := o.epoch
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.epoch == epoch {
			o.isTestingAll = false
		}
		o.mu.Unlock()
		o.notify()
	}()
	o.notify()

	_ = o.SaveSolution(ctx)

	runCtx := context.WithValue(ctx, contextkey.RunID, run.ID)
	logger.Info(runCtx, "batch run started",
		zap.String("problem_id", problem.ID),
		zap.String("language_id", lang.ID),
		zap.Int("visible_tests", len(visible)),
		zap.Bool("submit", includeHidden))

	if err := o.dispatchSequential(runCtx, epoch, run.ID, code, problem, lang, visible); err != nil {
		return o.CurrentSnapshot(), err
	}

	if includeHidden {
		if !o.visibleAllAccepted(epoch, visible) {
			logger.Info(runCtx, "visible tests failed, skipping hidden tests")
			return o.CurrentSnapshot(), nil
		}
		hidden := problem.HiddenTestCases()
		if !o.extendExpected(epoch, hidden) {
			return o.CurrentSnapshot(), appErr.New(appErr.RunInvalidated)
		}
		o.notify()
		if err := o.dispatchSequential(runCtx, epoch, run.ID, code, problem, lang, hidden); err != nil {
			return o.CurrentSnapshot(), err
		}
	}

	snap := o.CurrentSnapshot()
	logger.Info(runCtx, "batch run finished", zap.String("overall", string(snap.Overall)))
	return snap, nil
}

// dispatchSequential submits test cases strictly in declaration order,
// waiting for each dispatch's terminal result before starting the next.
// A failing test case does not stop subsequent dispatches; only run
// invalidation or context cancellation does.
func (o *Orchestrator) dispatchSequential(ctx context.Context, epoch uint64, runID, code string, problem *model.Problem, lang model.Language, cases []model.TestCaseSpec) error {
	for _, tc := range cases {
		if o.invalidated(epoch) {
			return appErr.New(appErr.RunInvalidated)
		}
		if err := ctx.Err(); err != nil {
			return appErr.Wrap(err, appErr.RunInvalidated)
		}

		req := model.SubmissionRequest{
			ProblemID:  problem.ID,
			SourceCode: code,
			LanguageID: lang.ID,
			Stdin:      tc.Input,
			TestCaseID: tc.ID,
		}
		submissionID, err := o.exec.Submit(ctx, req)
		if err != nil {
			// Recover at the smallest possible scope: this test case is
			// marked unverified and the batch moves on.
			logger.Warn(ctx, "dispatch failed", zap.String("test_case", tc.ID), zap.Error(err))
			o.recordDispatch(epoch, tc.ID, "")
			o.applyResult(model.TestCaseResult{
				TestCaseID: tc.ID,
				Status:     model.VerdictError,
				Message:    err.Error(),
			})
			continue
		}
		o.recordDispatch(epoch, tc.ID, submissionID)
		o.applyResult(model.TestCaseResult{
			SubmissionID: submissionID,
			TestCaseID:   tc.ID,
			Status:       model.VerdictPending,
		})

		if _, err := o.pollUntilTerminal(ctx, epoch, submissionID, tc.ID); err != nil {
			if appErr.Is(err, appErr.RunInvalidated) {
				return err
			}
			logger.Warn(ctx, "test case unresolved", zap.String("test_case", tc.ID), zap.Error(err))
			o.applyResult(model.TestCaseResult{
				SubmissionID: submissionID,
				TestCaseID:   tc.ID,
				Status:       model.VerdictError,
				Message:      err.Error(),
			})
		}
	}
	return nil
}

// pollUntilTerminal polls the submission status until a terminal verdict
// is seen, the attempt ceiling is hit, or the run is invalidated. A
// pushed event can satisfy the wait between polls.
func (o *Orchestrator) pollUntilTerminal(ctx context.Context, epoch uint64, submissionID, testCaseID string) (model.TestCaseResult, error) {
	var zero model.TestCaseResult
	state := newPollState(o.cfg.Poll)
	for {
		if o.invalidated(epoch) {
			return zero, appErr.New(appErr.RunInvalidated)
		}
		if res, ok := o.terminalResult(testCaseID, submissionID); ok {
			return res, nil
		}
		if state.exhausted() {
			return zero, appErr.New(appErr.PollTimedOut).
				WithMessagef("no terminal status after %d attempts", state.attempt)
		}

		res, err := o.exec.FetchStatus(ctx, submissionID)
		state.next()
		if err != nil {
			return zero, err
		}
		res.TestCaseID = testCaseID
		o.applyResult(res)
		if res.Status.IsTerminal() {
			return res, nil
		}

		select {
		case <-ctx.Done():
			return zero, appErr.Wrap(ctx.Err(), appErr.RunInvalidated)
		case <-time.After(state.interval):
		}
	}
}

// handleTestCaseEvent feeds a pushed result through the same merge path
// as polling. Duplicate or stale deliveries fall out in the aggregator.
func (o *Orchestrator) handleTestCaseEvent(payload json.RawMessage) {
	var p realtime.TestCaseResultPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logger.Warn(context.Background(), "unparseable push event", zap.Error(err))
		return
	}
	o.applyResult(model.TestCaseResult{
		SubmissionID:  p.SubmissionID,
		TestCaseID:    p.TestCaseID,
		Status:        model.VerdictFromStatusID(p.StatusID),
		Stdout:        p.Stdout,
		Stderr:        p.Stderr,
		CompileOutput: p.CompileOutput,
		Message:       p.Message,
		TimeMs:        p.TimeMs,
		MemoryKB:      p.MemoryKB,
	})
}

// applyResult merges a result into the active run if one exists and the
// result belongs to it.
func (o *Orchestrator) applyResult(res model.TestCaseResult) {
	o.mu.Lock()
	applied := verdict.ApplyResult(o.run, res)
	o.mu.Unlock()
	if applied {
		o.notify()
	}
}

func (o *Orchestrator) recordDispatch(epoch uint64, testCaseID, submissionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != epoch || o.run == nil {
		return
	}
	o.run.Dispatches[testCaseID] = submissionID
}

func (o *Orchestrator) terminalResult(testCaseID, submissionID string) (model.TestCaseResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run == nil {
		return model.TestCaseResult{}, false
	}
	res, ok := o.run.Results[testCaseID]
	if !ok || res.SubmissionID != submissionID || !res.Status.IsTerminal() {
		return model.TestCaseResult{}, false
	}
	return res, true
}

func (o *Orchestrator) invalidated(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.epoch != epoch
}

func (o *Orchestrator) visibleAllAccepted(epoch uint64, visible []model.TestCaseSpec) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != epoch || o.run == nil {
		return false
	}
	for _, tc := range visible {
		if res, ok := o.run.Results[tc.ID]; !ok || res.Status != model.VerdictAccepted {
			return false
		}
	}
	return true
}

func (o *Orchestrator) extendExpected(epoch uint64, hidden []model.TestCaseSpec) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != epoch || o.run == nil {
		return false
	}
	for _, tc := range hidden {
		o.run.ExpectedOrder = append(o.run.ExpectedOrder, tc.ID)
	}
	return true
}

func (o *Orchestrator) requireSelectionLocked() (*model.Problem, model.Language, func() string, error) {
	if o.problem == nil {
		return nil, model.Language{}, nil, appErr.New(appErr.NoProblemSelected)
	}
	if o.language.ID == "" {
		return nil, model.Language{}, nil, appErr.New(appErr.NoLanguageSelected)
	}
	if o.source == nil || o.source() == "" {
		return nil, model.Language{}, nil, appErr.New(appErr.EmptySourceCode)
	}
	return o.problem, o.language, o.source, nil
}
