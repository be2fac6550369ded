package wizard

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/DomeenoH/MuMuAINovel/internal/backend"
	"github.com/DomeenoH/MuMuAINovel/internal/catalog"
	"github.com/DomeenoH/MuMuAINovel/internal/prompt"
	"github.com/DomeenoH/MuMuAINovel/internal/tracing"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

// LoadCandidates fetches the candidate templates of the active prompt step,
// replacing any previous list. On failure the list is empty and the error
// is kept in the state; a mandatory step stays here until a retry succeeds.
func (e *Executor) LoadCandidates(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if e.phase != PhaseSelectTemplate {
		return ErrWrongPhase
	}
	return e.loadCandidatesLocked(ctx)
}

func (e *Executor) loadCandidatesLocked(ctx context.Context) error {
	step := e.def.Steps[e.index].(workflow.PromptStep)
	q := catalog.Query{
		Category:     step.Category,
		Keywords:     step.Keywords,
		TemplateName: step.TemplateName,
	}

	var (
		items []catalog.TemplateItem
		err   error
	)
	if e.finder == nil {
		err = ErrNoCatalog
	} else {
		items, err = e.finder.Find(ctx, q)
	}
	if err != nil {
		e.candidates = nil
		e.candidatesErr = err
		e.stepLogger().WithError(err).Warn("loading templates failed")
		return err
	}

	e.candidates = items
	if e.candidates == nil {
		e.candidates = []catalog.TemplateItem{}
	}
	e.candidatesErr = nil
	e.stepLogger().WithField("count", len(items)).Debug("templates loaded")
	return nil
}

// SelectTemplate chooses one of the candidates, parses its slots and moves
// to PhaseFillVariables. Inputs with a non-empty context value are
// prefilled. Templates without an input slot section take every
// placeholder as an input.
func (e *Executor) SelectTemplate(ctx context.Context, templateID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if e.phase != PhaseSelectTemplate {
		return ErrWrongPhase
	}

	var tpl *catalog.TemplateItem
	for i := range e.candidates {
		if e.candidates[i].ID == templateID {
			t := e.candidates[i]
			tpl = &t
			break
		}
	}
	if tpl == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}

	_, span := tracing.StartSpan(ctx, e.tracer, "wizard.select_template", e.spanAttrs(
		attribute.String(tracing.TemplateIDKey, tpl.ID),
		attribute.String(tracing.TemplateNameKey, tpl.Name),
	)...)
	defer span.End()

	e.template = tpl
	e.slots = prompt.ParseSlots(tpl.Content)
	if prompt.HasInputSection(tpl.Content) {
		e.inputs = e.slots.Inputs
	} else {
		e.inputs = prompt.ParseVariables(tpl.Content)
	}
	names := make([]string, len(e.inputs))
	for i, v := range e.inputs {
		names[i] = v.Name
	}
	e.values = e.vars.Prefill(names)
	e.phase = PhaseFillVariables

	e.stepLogger().WithFields(logrus.Fields{
		"template_id": tpl.ID,
		"inputs":      len(e.inputs),
		"prefilled":   len(e.values),
	}).Debug("template selected")
	return nil
}

// ChangeTemplate drops the chosen template and returns to template
// selection. Entered values are discarded.
func (e *Executor) ChangeTemplate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if e.phase != PhaseFillVariables {
		return ErrWrongPhase
	}
	e.template = nil
	e.slots = prompt.Slots{}
	e.inputs = nil
	e.values = map[string]string{}
	e.lastErr = nil
	e.phase = PhaseSelectTemplate
	return nil
}

// Execute validates the inputs, resolves the template and streams the AI
// output. Fragments are appended in delivery order and passed to the chunk
// handler. The call returns when the stream ends:
//   - on success the step is in PhaseShowResult;
//   - on a stream failure the partial output is discarded and the step
//     returns to PhaseFillVariables with its inputs intact;
//   - if the user navigated away meanwhile, ErrAborted is returned and the
//     output is dropped.
//
// A second Execute while one is in flight returns ErrBusy.
func (e *Executor) Execute(ctx context.Context) error {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return ErrFinished
	}
	if e.running {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.phase != PhaseFillVariables {
		e.mu.Unlock()
		return ErrWrongPhase
	}
	if e.llm == nil {
		e.mu.Unlock()
		return ErrNoBackend
	}
	if v := prompt.Validate(e.inputs, e.values); !v.Valid {
		e.mu.Unlock()
		return &ValidationError{Missing: v.Missing}
	}

	names := make([]string, len(e.inputs))
	for i, v := range e.inputs {
		names[i] = v.Name
	}
	resolved := prompt.Resolve(e.template.Content, e.values)
	req := backend.Request{
		Messages:    backend.BuildMessages(resolved, names, e.values),
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}

	streamCtx, cancel := context.WithCancel(ctx)
	streamCtx, span := tracing.StartSpan(streamCtx, e.tracer, "wizard.execute", e.spanAttrs(
		attribute.String(tracing.TemplateIDKey, e.template.ID),
		attribute.String(tracing.BackendKey, e.llm.Name()),
	)...)
	defer span.End()
	defer cancel()

	gen := e.gen
	e.running = true
	e.cancel = cancel
	e.phase = PhaseExecuting
	e.output.Reset()
	e.lastErr = nil
	logger := e.stepLogger().WithField("template_id", e.template.ID)
	llm, onChunk := e.llm, e.onChunk
	e.mu.Unlock()

	logger.Debug("execution started")
	err := e.stream(streamCtx, llm, req, gen, onChunk)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		span.SetAttributes(attribute.Bool("mumu.aborted", true))
		logger.Info("execution abandoned after navigation")
		return ErrAborted
	}
	e.running = false
	e.cancel = nil

	if err != nil {
		tracing.SetError(span, err)
		e.output.Reset()
		e.phase = PhaseFillVariables
		e.lastErr = err
		logger.WithError(err).Warn("execution failed")
		return fmt.Errorf("%w: %w", ErrExecution, err)
	}

	span.SetAttributes(attribute.Int(tracing.OutputBytesKey, e.output.Len()))
	e.phase = PhaseShowResult
	logger.WithField("bytes", e.output.Len()).Info("execution finished")
	return nil
}

// stream reads the response without holding the lock, appending each
// fragment while the step is still the one that started the call.
func (e *Executor) stream(ctx context.Context, llm backend.LLMBackend, req backend.Request, gen uint64, onChunk func(string)) error {
	s, err := llm.Stream(ctx, req)
	if err != nil {
		return err
	}

	abandoned := false
	_, err = backend.Collect(s, func(chunk string) {
		if abandoned {
			return
		}
		e.mu.Lock()
		if e.gen != gen {
			e.mu.Unlock()
			abandoned = true
			return
		}
		e.output.WriteString(chunk)
		e.mu.Unlock()
		if onChunk != nil {
			onChunk(chunk)
		}
	})
	return err
}

// Redo discards the shown result and returns to variable filling.
func (e *Executor) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if e.phase != PhaseShowResult {
		return ErrWrongPhase
	}
	e.output.Reset()
	e.phase = PhaseFillVariables
	return nil
}

// Commit accepts the shown result. It stores the whole output under
// "<step id>_output", merges the values extracted for the step's expected
// outputs (the template's output slots when the step declares none),
// records the result and advances.
func (e *Executor) Commit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if e.phase != PhaseShowResult {
		return ErrWrongPhase
	}
	step := e.def.Steps[e.index].(workflow.PromptStep)

	_, span := tracing.StartSpan(ctx, e.tracer, "wizard.commit", e.spanAttrs(
		attribute.String(tracing.TemplateIDKey, e.template.ID),
	)...)
	defer span.End()

	output := e.output.String()
	expected := step.Outputs
	if len(expected) == 0 {
		expected = e.slots.Outputs
	}
	extracted := prompt.ExtractOutputs(output, expected)

	e.vars.Set(step.ID+"_output", output)
	e.vars.Merge(extracted)
	e.results[e.index] = StepResult{
		StepID:       step.ID,
		TemplateID:   e.template.ID,
		TemplateName: e.template.Name,
		Variables:    copyMap(e.values),
		Output:       output,
		Completed:    true,
	}
	e.stepLogger().WithFields(logrus.Fields{
		"template_id": e.template.ID,
		"extracted":   len(extracted),
	}).Info("result committed")

	return e.advanceLocked(ctx)
}
