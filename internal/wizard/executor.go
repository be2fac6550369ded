// Package wizard runs a workflow definition step by step.
//
// An Executor owns the workflow context and the per-step results for one
// session. Exactly one step is active at a time; form steps collect values
// directly, prompt steps go through template selection, variable filling,
// a streamed AI call and an explicit commit. All context writes happen in
// SubmitForm, Commit and Skip.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DomeenoH/MuMuAINovel/internal/backend"
	"github.com/DomeenoH/MuMuAINovel/internal/catalog"
	"github.com/DomeenoH/MuMuAINovel/internal/handoff"
	"github.com/DomeenoH/MuMuAINovel/internal/log"
	"github.com/DomeenoH/MuMuAINovel/internal/prompt"
	"github.com/DomeenoH/MuMuAINovel/internal/runtime"
	"github.com/DomeenoH/MuMuAINovel/internal/tracing"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

// TemplateFinder supplies candidate templates for a prompt step.
type TemplateFinder interface {
	Find(ctx context.Context, q catalog.Query) ([]catalog.TemplateItem, error)
}

// StepResult records how a step was completed.
type StepResult struct {
	StepID       string
	TemplateID   string
	TemplateName string
	// Variables are the values the step was completed with.
	Variables map[string]string
	// Output is the raw AI output of a prompt step.
	Output    string
	Completed bool
	Skipped   bool
}

// Executor is the step state machine. It is safe for concurrent use; the
// only blocking call, Execute, releases the lock while streaming.
type Executor struct {
	mu sync.Mutex

	def     *workflow.Definition
	finder  TemplateFinder
	llm     backend.LLMBackend
	handoff handoff.Handoff
	logger  *logrus.Entry
	tracer  trace.Tracer
	onChunk func(string)
	now     func() time.Time

	sessionID   string
	model       string
	maxTokens   int
	temperature float32

	vars     *runtime.Context
	results  []StepResult
	index    int
	furthest int
	finished bool
	project  string

	// State of the active step, reset on every step change.
	phase         Phase
	values        map[string]string
	candidates    []catalog.TemplateItem
	candidatesErr error
	template      *catalog.TemplateItem
	slots         prompt.Slots
	inputs        []prompt.Variable
	output        strings.Builder
	lastErr       error

	// gen changes whenever the active step changes so that a stream started
	// for an earlier step can tell it was abandoned.
	gen     uint64
	running bool
	cancel  context.CancelFunc
}

type Option func(*Executor)

func WithLogger(l *logrus.Entry) Option {
	return func(e *Executor) { e.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithHandoff sets where the finished workflow is sent. The default only logs.
func WithHandoff(h handoff.Handoff) Option {
	return func(e *Executor) { e.handoff = h }
}

// WithModel overrides the backend's default model.
func WithModel(model string) Option {
	return func(e *Executor) { e.model = model }
}

// WithGeneration sets the token limit and temperature sent with each call.
// Zero values leave the backend defaults.
func WithGeneration(maxTokens int, temperature float32) Option {
	return func(e *Executor) {
		e.maxTokens = maxTokens
		e.temperature = temperature
	}
}

// WithChunkHandler registers fn to receive every streamed fragment in
// delivery order. fn runs on the goroutine calling Execute, without the
// executor lock held.
func WithChunkHandler(fn func(chunk string)) Option {
	return func(e *Executor) { e.onChunk = fn }
}

func WithSessionID(id string) Option {
	return func(e *Executor) { e.sessionID = id }
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New returns an executor positioned on the first step of def. Call Start
// to load the candidates of a leading prompt step.
func New(def *workflow.Definition, finder TemplateFinder, llm backend.LLMBackend, opts ...Option) (*Executor, error) {
	if def == nil {
		return nil, errors.New("nil workflow definition")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow: %w", err)
	}

	e := &Executor{
		def:       def,
		finder:    finder,
		llm:       llm,
		tracer:    tracing.Tracer(),
		now:       time.Now,
		sessionID: uuid.NewString(),
		vars:      runtime.NewContext(),
		results:   make([]StepResult, len(def.Steps)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.WithModule("wizard")
	}
	e.logger = e.logger.WithFields(logrus.Fields{
		"workflow_id": def.ID,
		"session_id":  e.sessionID,
	})
	if e.handoff == nil {
		e.handoff = handoff.LogHandoff{Logger: e.logger}
	}

	for i, s := range def.Steps {
		e.results[i].StepID = s.Header().ID
	}
	e.enterLocked(0)
	return e, nil
}

// Start loads the candidates of the first step when it is a prompt step.
// A failed lookup is returned and can be retried with LoadCandidates.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if e.phase != PhaseSelectTemplate || e.candidates != nil {
		return nil
	}
	return e.loadCandidatesLocked(ctx)
}

func (e *Executor) SessionID() string { return e.sessionID }

func (e *Executor) Definition() *workflow.Definition { return e.def }

// stepLogger returns the logger annotated with the active step.
func (e *Executor) stepLogger() *logrus.Entry {
	return e.logger.WithFields(logrus.Fields{
		"step_id":    e.def.Steps[e.index].Header().ID,
		"step_index": e.index,
	})
}

func (e *Executor) spanAttrs(extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.WorkflowIDKey, e.def.ID),
		attribute.String(tracing.SessionIDKey, e.sessionID),
		attribute.String(tracing.StepIDKey, e.def.Steps[e.index].Header().ID),
		attribute.Int(tracing.StepIndexKey, e.index),
	}
	return append(attrs, extra...)
}

// enterLocked makes step i active and resets the per-step state. Form
// fields are prefilled from the context.
func (e *Executor) enterLocked(i int) {
	if e.running && e.cancel != nil {
		e.cancel()
	}
	e.running = false
	e.cancel = nil
	e.gen++

	e.index = i
	if i > e.furthest {
		e.furthest = i
	}
	e.values = map[string]string{}
	e.candidates = nil
	e.candidatesErr = nil
	e.template = nil
	e.slots = prompt.Slots{}
	e.inputs = nil
	e.output.Reset()
	e.lastErr = nil

	switch s := e.def.Steps[i].(type) {
	case workflow.FormStep:
		e.phase = PhaseFillForm
		e.values = e.vars.Prefill(s.FieldNames())
	case workflow.PromptStep:
		e.phase = PhaseSelectTemplate
	}
	e.stepLogger().WithField("phase", e.phase.String()).Debug("step entered")
}

// arriveLocked enters step i and, for a prompt step, fetches candidates.
// A failed fetch is logged and kept in the state for a later retry.
func (e *Executor) arriveLocked(ctx context.Context, i int) {
	e.enterLocked(i)
	if e.phase == PhaseSelectTemplate {
		_ = e.loadCandidatesLocked(ctx)
	}
}

// advanceLocked moves past the active step, finishing after the last one.
func (e *Executor) advanceLocked(ctx context.Context) error {
	if e.index+1 >= len(e.def.Steps) {
		return e.finishLocked(ctx)
	}
	e.arriveLocked(ctx, e.index+1)
	return nil
}

// finishLocked marks the workflow finished and hands the context off. A
// handoff failure is reported but changes nothing else.
func (e *Executor) finishLocked(ctx context.Context) error {
	e.finished = true
	e.running = false
	e.gen++

	ctx, span := tracing.StartSpan(ctx, e.tracer, "wizard.finish", e.spanAttrs()...)
	defer span.End()

	p := handoff.ProjectFromContext(e.vars, e.def.Name, e.def.Genre, e.now())
	id, err := e.handoff.CreateProject(ctx, p)
	if err != nil {
		tracing.SetError(span, err)
		e.logger.WithError(err).Error("workflow finished but project handoff failed")
		return fmt.Errorf("%w: %w", ErrHandoff, err)
	}
	e.project = id
	span.SetAttributes(attribute.String(tracing.ProjectIDKey, id))
	e.logger.WithField("project_id", id).Info("workflow finished")
	return nil
}

// GoTo makes step i active again. Only steps already reached can be
// revisited. Results and context are kept; a stream in flight is aborted
// and its output discarded.
func (e *Executor) GoTo(ctx context.Context, i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if i < 0 || i > e.furthest {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, i)
	}
	if e.running {
		e.stepLogger().Info("aborting in-flight execution")
	}
	e.arriveLocked(ctx, i)
	return nil
}

// Back returns to the previous step.
func (e *Executor) Back(ctx context.Context) error {
	e.mu.Lock()
	i := e.index - 1
	e.mu.Unlock()
	return e.GoTo(ctx, i)
}

// State is a copy of the executor's observable state.
type State struct {
	Index         int
	Step          workflow.Step
	Phase         Phase
	Finished      bool
	ProjectID     string
	Values        map[string]string
	Candidates    []catalog.TemplateItem
	CandidatesErr error
	Template      *catalog.TemplateItem
	Slots         prompt.Slots
	Inputs        []prompt.Variable
	Output        string
	LastError     error
}

func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Index:         e.index,
		Step:          e.def.Steps[e.index],
		Phase:         e.phase,
		Finished:      e.finished,
		ProjectID:     e.project,
		Values:        copyMap(e.values),
		Candidates:    append([]catalog.TemplateItem(nil), e.candidates...),
		CandidatesErr: e.candidatesErr,
		Slots:         e.slots,
		Inputs:        append([]prompt.Variable(nil), e.inputs...),
		Output:        e.output.String(),
		LastError:     e.lastErr,
	}
	if e.template != nil {
		t := *e.template
		st.Template = &t
	}
	return st
}

func (e *Executor) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Executor) Done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// Output returns the output accumulated so far by the active step.
func (e *Executor) Output() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output.String()
}

// Context returns a copy of the workflow context.
func (e *Executor) Context() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vars.Snapshot()
}

// Results returns a copy of the per-step results.
func (e *Executor) Results() []StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]StepResult, len(e.results))
	for i, r := range e.results {
		r.Variables = copyMap(r.Variables)
		out[i] = r
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
