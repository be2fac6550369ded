// Package testing provides helpers for driving workflows end to end in tests.
package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DomeenoH/MuMuAINovel/internal/backend"
	"github.com/DomeenoH/MuMuAINovel/internal/catalog"
	"github.com/DomeenoH/MuMuAINovel/internal/handoff"
	"github.com/DomeenoH/MuMuAINovel/internal/log"
	"github.com/DomeenoH/MuMuAINovel/internal/wizard"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

// TestFixture represents a test workflow fixture
type TestFixture struct {
	Name        string
	YAMLPath    string
	Description string
}

// Script answers the questions a workflow asks.
type Script struct {
	// Values fills form fields and template variables by name. Required
	// fields and variables with no value here and none prefilled get
	// "test <name>".
	Values map[string]string

	// Templates picks the template id for a prompt step. Without an entry
	// the step's named template is used if offered, else the first candidate.
	Templates map[string]string

	// Replies is the AI output per prompt step id. Without an entry the
	// reply is a JSON block carrying every expected output of the step.
	Replies map[string]string

	// Skip lists optional step ids to skip.
	Skip map[string]bool
}

// TestResult holds the results of running a workflow
type TestResult struct {
	Finished  bool
	Context   map[string]string
	Steps     []wizard.StepResult
	Projects  []handoff.Project
	ProjectID string
	Requests  []backend.Request
	Duration  time.Duration
}

// TestRunner provides utilities for running workflow tests
type TestRunner struct {
	RepoRoot     string
	FixturesDir  string
	TemplatesDir string
	Catalog      *catalog.Catalog
	t            *testing.T
}

// NewTestRunner creates a test runner whose catalog serves the templates
// under testdata/templates.
func NewTestRunner(t *testing.T) (*TestRunner, error) {
	t.Helper()

	// Find repository root
	repoRoot, err := findRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find repo root: %w", err)
	}

	templatesDir := filepath.Join(repoRoot, "testdata", "templates")
	return &TestRunner{
		RepoRoot:     repoRoot,
		FixturesDir:  filepath.Join(repoRoot, "testdata", "fixtures"),
		TemplatesDir: templatesDir,
		Catalog: catalog.New(catalog.NewFSSource(os.DirFS(templatesDir)),
			catalog.WithLogger(log.Discard())),
		t: t,
	}, nil
}

// findRepoRoot finds the repository root by looking for go.mod
func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}

// GetFixture returns a test fixture by name
func (r *TestRunner) GetFixture(name string) TestFixture {
	return TestFixture{
		Name:     name,
		YAMLPath: filepath.Join(r.FixturesDir, name+".yaml"),
	}
}

// ListFixtures returns all available fixtures
func (r *TestRunner) ListFixtures() ([]TestFixture, error) {
	files, err := filepath.Glob(filepath.Join(r.FixturesDir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	fixtures := make([]TestFixture, len(files))
	for i, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), ".yaml")
		fixtures[i] = TestFixture{
			Name:     name,
			YAMLPath: f,
		}
	}
	return fixtures, nil
}

// LoadFixture parses and validates the workflows of a fixture.
func (r *TestRunner) LoadFixture(fixture TestFixture) ([]*workflow.Definition, error) {
	defs, err := workflow.LoadWorkflows(fixture.YAMLPath)
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateAll(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Run drives def to completion with the answers in script. It fails when
// the workflow asks for something the script cannot answer or does not
// finish within timeout.
func (r *TestRunner) Run(def *workflow.Definition, script Script, timeout time.Duration) (*TestResult, error) {
	r.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	llm := &replyBackend{}
	sink := &projectSink{id: "test-project"}
	e, err := wizard.New(def, r.Catalog, llm,
		wizard.WithLogger(log.Discard()),
		wizard.WithHandoff(sink),
		wizard.WithClock(func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := e.Start(ctx); err != nil {
		return nil, err
	}

	// Every step needs at most four actions; anything beyond is a loop.
	for budget := 4*def.Len() + 1; !e.Done(); budget-- {
		if budget == 0 {
			return nil, fmt.Errorf("workflow %s did not finish", def.ID)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.act(ctx, e, llm, script); err != nil {
			st := e.State()
			return nil, fmt.Errorf("step %s (%s): %w", st.Step.Header().ID, st.Phase, err)
		}
	}

	return &TestResult{
		Finished:  e.Done(),
		Context:   e.Context(),
		Steps:     e.Results(),
		Projects:  sink.all(),
		ProjectID: e.State().ProjectID,
		Requests:  llm.all(),
		Duration:  time.Since(start),
	}, nil
}

// act performs the one action the current phase calls for.
func (r *TestRunner) act(ctx context.Context, e *wizard.Executor, llm *replyBackend, script Script) error {
	st := e.State()
	id := st.Step.Header().ID

	switch st.Phase {
	case wizard.PhaseFillForm:
		if script.Skip[id] {
			return e.Skip(ctx)
		}
		for _, f := range st.Step.(workflow.FormStep).Fields {
			value, ok := script.Values[f.Name]
			if !ok {
				if !f.Required || st.Values[f.Name] != "" {
					continue
				}
				value = "test " + f.Name
			}
			if err := e.SetValue(f.Name, value); err != nil {
				return err
			}
		}
		return e.SubmitForm(ctx)

	case wizard.PhaseSelectTemplate:
		if script.Skip[id] {
			return e.Skip(ctx)
		}
		tpl, err := chooseTemplate(st, script.Templates[id])
		if err != nil {
			return err
		}
		return e.SelectTemplate(ctx, tpl)

	case wizard.PhaseFillVariables:
		for _, v := range st.Inputs {
			value, ok := script.Values[v.Name]
			if !ok {
				if st.Values[v.Name] != "" {
					continue
				}
				value = "test " + v.Name
			}
			if err := e.SetValue(v.Name, value); err != nil {
				return err
			}
		}
		reply, ok := script.Replies[id]
		if !ok {
			reply = defaultReply(st)
		}
		llm.set(reply)
		return e.Execute(ctx)

	case wizard.PhaseShowResult:
		return e.Commit(ctx)
	}
	return fmt.Errorf("unexpected phase %s", st.Phase)
}

func chooseTemplate(st wizard.State, want string) (string, error) {
	if st.CandidatesErr != nil {
		return "", st.CandidatesErr
	}
	if len(st.Candidates) == 0 {
		return "", fmt.Errorf("no candidate templates")
	}
	if want != "" {
		return want, nil
	}
	if name := st.Step.(workflow.PromptStep).TemplateName; name != "" {
		for _, c := range st.Candidates {
			if c.Name == name {
				return c.ID, nil
			}
		}
	}
	return st.Candidates[0].ID, nil
}

// defaultReply answers with every expected output of the step, each set
// to "<name> from <step id>".
func defaultReply(st wizard.State) string {
	names := st.Step.(workflow.PromptStep).Outputs
	if len(names) == 0 {
		names = st.Slots.Outputs
	}
	id := st.Step.Header().ID
	obj := make(map[string]string, len(names))
	for _, n := range names {
		obj[n] = n + " from " + id
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	return "Result for " + id + ":\n```json\n" + string(b) + "\n```\n"
}

// replyBackend streams the reply set before each Execute in two fragments.
type replyBackend struct {
	mu       sync.Mutex
	reply    string
	requests []backend.Request
}

func (b *replyBackend) set(reply string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reply = reply
}

func (b *replyBackend) all() []backend.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Request(nil), b.requests...)
}

func (b *replyBackend) Stream(_ context.Context, req backend.Request) (backend.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	half := len(b.reply) / 2
	for half > 0 && half < len(b.reply) && !utf8Start(b.reply[half]) {
		half--
	}
	return &fragmentStream{parts: []string{b.reply[:half], b.reply[half:]}}, nil
}

func (b *replyBackend) Name() string { return "scripted" }
func (b *replyBackend) Close() error { return nil }

func utf8Start(c byte) bool { return c&0xC0 != 0x80 }

type fragmentStream struct {
	parts []string
}

func (s *fragmentStream) Recv() (string, error) {
	for len(s.parts) > 0 {
		p := s.parts[0]
		s.parts = s.parts[1:]
		if p != "" {
			return p, nil
		}
	}
	return "", io.EOF
}

func (s *fragmentStream) Close() error { return nil }

type projectSink struct {
	mu       sync.Mutex
	id       string
	projects []handoff.Project
}

func (p *projectSink) CreateProject(_ context.Context, project handoff.Project) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projects = append(p.projects, project)
	return p.id, nil
}

func (p *projectSink) all() []handoff.Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]handoff.Project(nil), p.projects...)
}

// Assertions provides test assertion helpers
type Assertions struct {
	t      *testing.T
	result *TestResult
}

// NewAssertions creates a new assertions helper
func NewAssertions(t *testing.T, result *TestResult) *Assertions {
	return &Assertions{t: t, result: result}
}

// Completed asserts the workflow finished and handed off one project
func (a *Assertions) Completed() *Assertions {
	a.t.Helper()
	if !a.result.Finished {
		a.t.Errorf("workflow did not finish")
	}
	if len(a.result.Projects) != 1 {
		a.t.Errorf("expected one project handoff, got %d", len(a.result.Projects))
	}
	return a
}

// ContextHasValue asserts a context variable contains an expected value
func (a *Assertions) ContextHasValue(key, expected string) *Assertions {
	a.t.Helper()
	actual, ok := a.result.Context[key]
	if !ok {
		a.t.Errorf("key %q not found in context", key)
		return a
	}
	if !strings.Contains(strings.TrimSpace(actual), strings.TrimSpace(expected)) {
		a.t.Errorf("context[%s] = %q, expected to contain %q", key, actual, expected)
	}
	return a
}

// ContextLacks asserts a context variable was never written
func (a *Assertions) ContextLacks(key string) *Assertions {
	a.t.Helper()
	if v, ok := a.result.Context[key]; ok {
		a.t.Errorf("context[%s] should be unset, got %q", key, v)
	}
	return a
}

// StepSkipped asserts the step with the given id was skipped
func (a *Assertions) StepSkipped(id string) *Assertions {
	a.t.Helper()
	for _, s := range a.result.Steps {
		if s.StepID == id {
			if !s.Skipped {
				a.t.Errorf("step %s was not skipped", id)
			}
			return a
		}
	}
	a.t.Errorf("step %s not found", id)
	return a
}

// StepUsedTemplate asserts which template completed a step
func (a *Assertions) StepUsedTemplate(id, templateID string) *Assertions {
	a.t.Helper()
	for _, s := range a.result.Steps {
		if s.StepID == id {
			if s.TemplateID != templateID {
				a.t.Errorf("step %s used template %q, expected %q", id, s.TemplateID, templateID)
			}
			return a
		}
	}
	a.t.Errorf("step %s not found", id)
	return a
}

// RequestCount asserts how many AI calls were made
func (a *Assertions) RequestCount(expected int) *Assertions {
	a.t.Helper()
	if len(a.result.Requests) != expected {
		a.t.Errorf("expected %d AI requests, got %d", expected, len(a.result.Requests))
	}
	return a
}

// ProjectTitle asserts the title of the handed-off project
func (a *Assertions) ProjectTitle(expected string) *Assertions {
	a.t.Helper()
	if len(a.result.Projects) == 0 {
		a.t.Errorf("no project handed off")
		return a
	}
	if got := a.result.Projects[0].Title; got != expected {
		a.t.Errorf("project title = %q, expected %q", got, expected)
	}
	return a
}

// DurationLessThan asserts the execution took less than the specified duration
func (a *Assertions) DurationLessThan(d time.Duration) *Assertions {
	a.t.Helper()
	if a.result.Duration >= d {
		a.t.Errorf("execution took %v, expected less than %v", a.result.Duration, d)
	}
	return a
}
