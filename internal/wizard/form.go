package wizard

import (
	"context"
	"strings"

	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

// SetValue sets a form field or template variable of the active step.
func (e *Executor) SetValue(name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}

	if err := e.acceptsLocked(name); err != nil {
		return err
	}
	e.values[name] = value
	return nil
}

// acceptsLocked checks that the active phase takes input and declares name.
func (e *Executor) acceptsLocked(name string) error {
	switch e.phase {
	case PhaseFillForm:
		form := e.def.Steps[e.index].(workflow.FormStep)
		if !contains(form.FieldNames(), name) {
			return ErrUnknownField
		}
	case PhaseFillVariables:
		for _, v := range e.inputs {
			if v.Name == name {
				return nil
			}
		}
		return ErrUnknownField
	default:
		return ErrWrongPhase
	}
	return nil
}

// FillFromContext copies the context value of name into the active step's
// inputs. It reports whether a non-empty value was found.
func (e *Executor) FillFromContext(name string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return false, ErrFinished
	}
	if err := e.acceptsLocked(name); err != nil {
		return false, err
	}
	v := e.vars.Value(name)
	if v == "" {
		return false, nil
	}
	e.values[name] = v
	return true, nil
}

// SubmitForm completes a form step. Every required field must be non-blank;
// otherwise a *ValidationError lists the missing labels and nothing changes.
// On success the field values are merged into the context and the workflow
// advances.
func (e *Executor) SubmitForm(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	if e.phase != PhaseFillForm {
		return ErrWrongPhase
	}
	form := e.def.Steps[e.index].(workflow.FormStep)

	var missing []string
	for _, f := range form.Fields {
		if f.Required && strings.TrimSpace(e.values[f.Name]) == "" {
			missing = append(missing, f.Label)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	submitted := make(map[string]string, len(form.Fields))
	for _, f := range form.Fields {
		if v, ok := e.values[f.Name]; ok {
			submitted[f.Name] = v
		}
	}
	e.vars.Merge(submitted)
	e.results[e.index] = StepResult{
		StepID:    form.ID,
		Variables: submitted,
		Completed: true,
	}
	e.stepLogger().WithField("fields", len(submitted)).Info("form submitted")

	return e.advanceLocked(ctx)
}

// Skip completes an optional step without writing to the context. It is
// available before a template is chosen or while a form is open.
func (e *Executor) Skip(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	step := e.def.Steps[e.index]
	if !step.Header().Optional {
		return ErrNotOptional
	}
	if e.phase != PhaseSelectTemplate && e.phase != PhaseFillForm {
		return ErrWrongPhase
	}

	e.results[e.index] = StepResult{
		StepID:    step.Header().ID,
		Completed: true,
		Skipped:   true,
	}
	e.stepLogger().Info("step skipped")

	return e.advanceLocked(ctx)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
