package wizard

import (
	"errors"
	"strings"
)

var (
	// ErrWrongPhase is returned when an action is not available in the
	// current phase of the active step.
	ErrWrongPhase = errors.New("action not available in current phase")
	// ErrBusy is returned by Execute while a stream is in flight.
	ErrBusy = errors.New("execution already in progress")
	// ErrNotOptional is returned when skipping a mandatory step.
	ErrNotOptional = errors.New("step is not optional")
	// ErrUnknownTemplate is returned when selecting a template that is not
	// among the step's candidates.
	ErrUnknownTemplate = errors.New("template is not a candidate for this step")
	// ErrUnknownField is returned when setting a value the active step does
	// not declare.
	ErrUnknownField = errors.New("field not declared by this step")
	// ErrStepOutOfRange is returned when navigating to a step that does not
	// exist or has not been reached yet.
	ErrStepOutOfRange = errors.New("step not reachable")
	// ErrFinished is returned by any action after the workflow completed.
	ErrFinished = errors.New("workflow already finished")
	// ErrExecution wraps a failed AI invocation.
	ErrExecution = errors.New("execution failed")
	// ErrAborted is returned by Execute when the user navigated away while
	// the stream was in flight.
	ErrAborted = errors.New("execution aborted")
	// ErrHandoff wraps a failed project handoff. The workflow still counts
	// as finished.
	ErrHandoff = errors.New("project handoff failed")
	// ErrNoCatalog and ErrNoBackend report missing collaborators.
	ErrNoCatalog = errors.New("no template catalog configured")
	ErrNoBackend = errors.New("no LLM backend configured")
)

// ValidationError lists the labels of required inputs that are blank, in
// declaration order.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required values: " + strings.Join(e.Missing, ", ")
}
