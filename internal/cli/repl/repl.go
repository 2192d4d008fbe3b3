// Package repl implements the interactive session driving the
// orchestration layer from a terminal.
package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"ojcli/internal/cli/problems"
	"ojcli/internal/cli/state"
	"ojcli/internal/model"
	"ojcli/internal/orchestrator"
	"ojcli/internal/solutioncache"
	"ojcli/internal/viewmodel"
)

// StatusFetcher refetches results for historical views.
type StatusFetcher = viewmodel.StatusFetcher

// Session holds REPL state. The code buffer stands in for the editor: the
// orchestrator reads it through a source provider and never owns it.
type Session struct {
	orch      *orchestrator.Orchestrator
	fetcher   StatusFetcher
	cache     *solutioncache.Cache
	catalog   *problems.Catalog
	statePath string
	autosave  time.Duration

	mu       sync.Mutex
	buffer   string
	problem  *model.Problem
	language model.Language
	st       state.SessionState

	rl   *readline.Instance
	stop chan struct{}
}

func New(orch *orchestrator.Orchestrator, fetcher StatusFetcher, cache *solutioncache.Cache, catalog *problems.Catalog, st state.SessionState, statePath string, autosave time.Duration) *Session {
	s := &Session{
		orch:      orch,
		fetcher:   fetcher,
		cache:     cache,
		catalog:   catalog,
		statePath: statePath,
		autosave:  autosave,
		st:        st,
		stop:      make(chan struct{}),
	}
	orch.SetSourceProvider(s.currentBuffer)
	return s
}

func (s *Session) currentBuffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Run drives the read-eval loop until EOF or exit.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ojcli> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	s.rl = rl
	defer rl.Close()

	s.restoreSelection(ctx)
	go s.autosaveLoop(ctx)
	defer close(s.stop)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			s.persistState()
			return nil
		}
		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

// restoreSelection replays the persisted problem and language selection.
func (s *Session) restoreSelection(ctx context.Context) {
	s.mu.Lock()
	st := s.st
	s.mu.Unlock()
	if st.LanguageID != "" {
		if lang, ok := s.catalog.Language(st.LanguageID); ok {
			s.selectLanguage(ctx, lang)
		}
	}
	if st.ProblemID != "" {
		if p, ok := s.catalog.Problem(st.ProblemID); ok {
			s.selectProblem(ctx, p)
		}
	}
}

func (s *Session) autosaveLoop(ctx context.Context) {
	if s.autosave <= 0 {
		return
	}
	ticker := time.NewTicker(s.autosave)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.orch.SaveSolution(ctx)
		}
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	cmd, args := tokens[0], tokens[1:]
	switch cmd {
	case "help":
		s.printHelp()
		return nil
	case "problems":
		return s.cmdProblems()
	case "use":
		return s.cmdUse(ctx, args)
	case "langs":
		return s.cmdLangs()
	case "lang":
		return s.cmdLang(ctx, args)
	case "edit":
		return s.cmdEdit(args)
	case "code":
		s.printLine("%s", s.currentBuffer())
		return nil
	case "test":
		return s.cmdTest(ctx, args)
	case "run":
		return s.cmdRun(ctx)
	case "submit":
		return s.cmdSubmit(ctx)
	case "status":
		s.renderView(viewmodel.FromSnapshot(s.orch.CurrentSnapshot()))
		return nil
	case "history":
		return s.cmdHistory()
	case "view":
		return s.cmdView(ctx, args)
	case "save":
		return s.orch.SaveSolution(ctx)
	case "sweep":
		removed := s.cache.Sweep(ctx)
		s.printLine("removed %d stale cache entries", removed)
		return nil
	default:
		return fmt.Errorf("unknown command: %s (try help)", cmd)
	}
}

func (s *Session) cmdProblems() error {
	for _, p := range s.catalog.Problems {
		visible := len(p.VisibleTestCases())
		hidden := len(p.HiddenTestCases())
		s.printLine("%-12s %-30s %s (%d visible, %d hidden)", p.ID, p.Title, p.Difficulty, visible, hidden)
	}
	return nil
}

func (s *Session) cmdUse(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <problemId>")
	}
	p, ok := s.catalog.Problem(args[0])
	if !ok {
		return fmt.Errorf("unknown problem: %s", args[0])
	}
	s.selectProblem(ctx, p)
	s.printLine("using %s: %s", p.ID, p.Title)
	return nil
}

func (s *Session) selectProblem(ctx context.Context, p *model.Problem) {
	cached := s.orch.SetProblem(ctx, p)
	s.mu.Lock()
	s.problem = p
	s.st.ProblemID = p.ID
	// The buffer always tracks the selection; a cache miss clears it so
	// the previous problem's code is never submitted by accident.
	s.buffer = cached
	s.mu.Unlock()
	if cached != "" {
		s.printLine("restored cached solution (%d bytes)", len(cached))
	}
	s.persistState()
}

func (s *Session) cmdLangs() error {
	for _, lang := range s.catalog.Languages {
		s.printLine("%-12s %s", lang.ID, lang.DisplayName)
	}
	return nil
}

func (s *Session) cmdLang(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: lang <languageId>")
	}
	lang, ok := s.catalog.Language(args[0])
	if !ok {
		return fmt.Errorf("unknown language: %s", args[0])
	}
	s.selectLanguage(ctx, lang)
	s.printLine("language set to %s", lang.DisplayName)
	return nil
}

func (s *Session) selectLanguage(ctx context.Context, lang model.Language) {
	cached := s.orch.SetLanguage(ctx, lang)
	s.mu.Lock()
	s.language = lang
	s.st.LanguageID = lang.ID
	s.buffer = cached
	s.mu.Unlock()
	if cached != "" {
		s.printLine("restored cached solution (%d bytes)", len(cached))
	}
	s.persistState()
}

func (s *Session) cmdEdit(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: edit <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source file failed: %w", err)
	}
	s.mu.Lock()
	s.buffer = string(data)
	s.mu.Unlock()
	s.printLine("loaded %d bytes from %s", len(data), args[0])
	return nil
}

func (s *Session) cmdTest(ctx context.Context, args []string) error {
	stdin := strings.Join(args, " ")
	res, err := s.orch.RunCustomTest(ctx, stdin)
	if err != nil {
		return err
	}
	s.printLine("status: %s", viewmodel.Label(res.Status))
	if res.CompileOutput != "" {
		s.printLine("compile output:\n%s", res.CompileOutput)
	}
	if res.Stdout != "" {
		s.printLine("stdout:\n%s", res.Stdout)
	}
	if res.Stderr != "" {
		s.printLine("stderr:\n%s", res.Stderr)
	}
	if res.Status.IsTerminal() {
		s.printLine("time: %dms  memory: %dKB", res.TimeMs, res.MemoryKB)
	}
	return nil
}

func (s *Session) cmdRun(ctx context.Context) error {
	snap, err := s.orch.RunVisibleTests(ctx)
	if err != nil {
		return err
	}
	s.renderView(viewmodel.FromSnapshot(snap))
	return nil
}

func (s *Session) cmdSubmit(ctx context.Context) error {
	snap, err := s.orch.SubmitSolution(ctx)
	if err != nil {
		return err
	}
	s.renderView(viewmodel.FromSnapshot(snap))
	if snap.Run != nil {
		s.mu.Lock()
		s.st.AddHistory(viewmodel.RecordOf(snap.Run))
		s.mu.Unlock()
		s.persistState()
	}
	return nil
}

func (s *Session) cmdHistory() error {
	s.mu.Lock()
	records := s.st.History
	s.mu.Unlock()
	if len(records) == 0 {
		s.printLine("no submissions yet")
		return nil
	}
	for _, rec := range records {
		s.printLine("%-38s %-12s %-10s %s", rec.RunID, rec.ProblemID, rec.LanguageID, rec.SubmittedAt.Format(time.RFC3339))
	}
	return nil
}

func (s *Session) cmdView(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: view <runId>")
	}
	s.mu.Lock()
	rec, ok := s.st.FindHistory(args[0])
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown run id: %s", args[0])
	}
	run, err := viewmodel.Reconstruct(ctx, s.fetcher, rec)
	if err != nil {
		return err
	}
	s.renderView(viewmodel.FromRun(run))
	return nil
}

func (s *Session) renderView(v viewmodel.View) {
	if v.RunID == "" {
		s.printLine("no active run")
		return
	}
	header := v.OverallLabel
	if v.Running {
		header = fmt.Sprintf("%s (%.0f%%)", header, v.Progress*100)
	}
	s.printLine("run %s [%s]  %s", v.RunID, v.Source, header)
	for _, tc := range v.TestCases {
		line := fmt.Sprintf("  %-10s %s", tc.ID, tc.StatusLabel)
		if tc.Terminal && tc.Status != model.VerdictError {
			line += fmt.Sprintf("  %dms %dKB", tc.TimeMs, tc.MemoryKB)
		}
		if tc.Message != "" {
			line += "  " + tc.Message
		}
		s.printLine("%s", line)
		if tc.Status == model.VerdictCompilationError && tc.CompileOutput != "" {
			s.printLine("    %s", strings.ReplaceAll(tc.CompileOutput, "\n", "\n    "))
		}
	}
}

func (s *Session) persistState() {
	s.mu.Lock()
	st := s.st
	s.mu.Unlock()
	if err := state.Save(s.statePath, st); err != nil {
		s.printLine("save session state failed: %v", err)
	}
}

func (s *Session) printHelp() {
	s.printLine("commands:")
	s.printLine("  problems            list the problem catalog")
	s.printLine("  use <problemId>     select a problem")
	s.printLine("  langs               list languages")
	s.printLine("  lang <languageId>   select a language")
	s.printLine("  edit <file>         load source code into the buffer")
	s.printLine("  code                show the buffer")
	s.printLine("  test [stdin]        run the buffer against a custom input")
	s.printLine("  run                 run the visible test cases")
	s.printLine("  submit              run visible tests, then hidden on full pass")
	s.printLine("  status              show the active run")
	s.printLine("  history             list finished submissions")
	s.printLine("  view <runId>        refetch and show a finished submission")
	s.printLine("  save                persist the buffer to the solution cache")
	s.printLine("  sweep               remove stale solution cache entries")
	s.printLine("  exit                quit")
}

func (s *Session) printLine(format string, args ...interface{}) {
	if s.rl != nil {
		fmt.Fprintf(s.rl.Stdout(), format+"\n", args...)
		return
	}
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}
