package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is an ordered list of steps guiding one creative task.
type Definition struct {
	ID          string `validate:"required"`
	Name        string `validate:"required"`
	Description string
	// Genre is forwarded to the project created when the workflow finishes.
	Genre string
	Steps []Step `validate:"required,min=1"`
}

type StepKind string

const (
	StepForm   StepKind = "form"
	StepPrompt StepKind = "prompt"
)

// Step is either a FormStep or a PromptStep. The set is closed; switch on
// the concrete type to handle each kind.
type Step interface {
	Header() StepHeader
	Kind() StepKind
	sealed()
}

// StepHeader carries what every step kind shares.
type StepHeader struct {
	ID          string `validate:"required"`
	Name        string `validate:"required"`
	Description string
	Optional    bool
}

func (h StepHeader) Header() StepHeader { return h }

type FieldControl string

const (
	FieldText     FieldControl = "text"
	FieldTextarea FieldControl = "textarea"
	FieldSelect   FieldControl = "select"
)

// Field is one input of a form step.
type Field struct {
	Name        string       `yaml:"name" validate:"required"`
	Label       string       `yaml:"label" validate:"required"`
	Control     FieldControl `yaml:"type,omitempty" validate:"omitempty,oneof=text textarea select"`
	Required    bool         `yaml:"required,omitempty"`
	Placeholder string       `yaml:"placeholder,omitempty"`
	Description string       `yaml:"description,omitempty"`
	Options     []string     `yaml:"options,omitempty"`
}

// FormStep collects raw user input.
type FormStep struct {
	StepHeader
	Fields  []Field `validate:"required,min=1,dive"`
	Outputs []string
}

func (FormStep) Kind() StepKind { return StepForm }
func (FormStep) sealed()        {}

// FieldNames returns the names of the form's fields in order.
func (s FormStep) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// PromptStep runs an AI call over a template chosen from the catalog.
type PromptStep struct {
	StepHeader
	// Category and Keywords select candidate templates.
	Category string
	Keywords []string
	// TemplateName optionally names the preferred template exactly.
	TemplateName string
	// Outputs are the variable names the step is expected to produce.
	Outputs []string
}

func (PromptStep) Kind() StepKind { return StepPrompt }
func (PromptStep) sealed()        {}

// Len returns the number of steps.
func (d *Definition) Len() int {
	return len(d.Steps)
}

// Index returns the position of the step with the given id, or -1.
func (d *Definition) Index(id string) int {
	for i, s := range d.Steps {
		if s.Header().ID == id {
			return i
		}
	}
	return -1
}

// YAML shape of a workflow document.
type rawWorkflow struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Genre       string    `yaml:"genre,omitempty"`
	Steps       []rawStep `yaml:"steps"`
}

type rawStep struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description,omitempty"`
	Type         StepKind `yaml:"type"`
	Optional     bool     `yaml:"optional,omitempty"`
	Category     string   `yaml:"category,omitempty"`
	TemplateName string   `yaml:"template_name,omitempty"`
	Keywords     []string `yaml:"keywords,omitempty"`
	Fields       []Field  `yaml:"fields,omitempty"`
	Outputs      []string `yaml:"outputs,omitempty"`
}

// UnmarshalYAML decodes a workflow document, turning each step's type tag
// into the matching concrete step.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	var raw rawWorkflow
	if err := node.Decode(&raw); err != nil {
		return err
	}

	def := Definition{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Genre:       raw.Genre,
	}
	for i, rs := range raw.Steps {
		step, err := rs.toStep()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		def.Steps = append(def.Steps, step)
	}
	*d = def
	return nil
}

// MarshalYAML writes the definition back in its document shape.
func (d Definition) MarshalYAML() (interface{}, error) {
	raw := rawWorkflow{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Genre:       d.Genre,
	}
	for _, s := range d.Steps {
		h := s.Header()
		rs := rawStep{
			ID:          h.ID,
			Name:        h.Name,
			Description: h.Description,
			Type:        s.Kind(),
			Optional:    h.Optional,
		}
		switch st := s.(type) {
		case FormStep:
			rs.Fields = st.Fields
			rs.Outputs = st.Outputs
		case PromptStep:
			rs.Category = st.Category
			rs.TemplateName = st.TemplateName
			rs.Keywords = st.Keywords
			rs.Outputs = st.Outputs
		}
		raw.Steps = append(raw.Steps, rs)
	}
	return raw, nil
}

func (rs rawStep) toStep() (Step, error) {
	header := StepHeader{
		ID:          rs.ID,
		Name:        rs.Name,
		Description: rs.Description,
		Optional:    rs.Optional,
	}
	switch rs.Type {
	case StepForm:
		return FormStep{
			StepHeader: header,
			Fields:     rs.Fields,
			Outputs:    rs.Outputs,
		}, nil
	case StepPrompt:
		return PromptStep{
			StepHeader:   header,
			Category:     rs.Category,
			Keywords:     rs.Keywords,
			TemplateName: rs.TemplateName,
			Outputs:      rs.Outputs,
		}, nil
	default:
		return nil, fmt.Errorf("unknown step type: %q", rs.Type)
	}
}
