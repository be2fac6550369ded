package wizard

// Phase is the sub-state of the active step.
type Phase int

const (
	// PhaseFillForm is the only phase of a form step.
	PhaseFillForm Phase = iota
	// PhaseSelectTemplate waits for the user to pick a candidate template.
	PhaseSelectTemplate
	// PhaseFillVariables edits the chosen template's input slots.
	PhaseFillVariables
	// PhaseExecuting has one stream in flight.
	PhaseExecuting
	// PhaseShowResult holds the finished output until commit or redo.
	PhaseShowResult
)

func (p Phase) String() string {
	switch p {
	case PhaseFillForm:
		return "fill_form"
	case PhaseSelectTemplate:
		return "select_template"
	case PhaseFillVariables:
		return "fill_variables"
	case PhaseExecuting:
		return "executing"
	case PhaseShowResult:
		return "show_result"
	default:
		return "unknown"
	}
}
