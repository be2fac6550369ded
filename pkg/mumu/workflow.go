package mumu

import (
	"fmt"

	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

// StepType represents the type of a workflow step.
type StepType string

const (
	// StepTypeForm collects raw user input through form fields.
	StepTypeForm StepType = "form"

	// StepTypePrompt runs an AI call over a template chosen from the catalog.
	StepTypePrompt StepType = "prompt"
)

// Workflow is an ordered list of steps guiding one creative task.
type Workflow struct {
	// ID is the unique identifier for this workflow.
	ID string

	// Name is shown to the user and becomes the title of the created project.
	Name string

	Description string

	// Genre is forwarded to the project created when the workflow finishes.
	Genre string

	// Steps contains the ordered list of workflow steps.
	Steps []*Step
}

// Field is one input of a form step.
type Field struct {
	Name        string
	Label       string
	Control     string // text, textarea or select
	Required    bool
	Placeholder string
	Description string
	Options     []string
}

// Step represents a single step in a workflow.
type Step struct {
	// ID is the unique identifier for this step within the workflow.
	ID string

	Name        string
	Description string

	// Type specifies the kind of step (form, prompt).
	Type StepType

	// Optional steps can be skipped without writing to the context.
	Optional bool

	// Fields are the inputs of a form step.
	Fields []Field

	// Category and Keywords select candidate templates for a prompt step.
	Category string
	Keywords []string

	// TemplateName optionally names the preferred template exactly.
	TemplateName string

	// Outputs are the context variable names the step is expected to produce.
	Outputs []string
}

// NewWorkflow creates a new workflow with the given id and name.
func NewWorkflow(id, name string) *Workflow {
	return &Workflow{
		ID:    id,
		Name:  name,
		Steps: make([]*Step, 0),
	}
}

// AddStep appends a step to the workflow.
func (w *Workflow) AddStep(step *Step) *Workflow {
	w.Steps = append(w.Steps, step)
	return w
}

// WithGenre sets the genre passed on to the created project.
func (w *Workflow) WithGenre(genre string) *Workflow {
	w.Genre = genre
	return w
}

// StepBuilder provides a fluent API for constructing steps.
type StepBuilder struct {
	step *Step
}

// FormStep creates a new form step.
func FormStep(id, name string) *StepBuilder {
	return &StepBuilder{
		step: &Step{
			ID:   id,
			Name: name,
			Type: StepTypeForm,
		},
	}
}

// PromptStep creates a new prompt step drawing templates from category.
func PromptStep(id, name, category string) *StepBuilder {
	return &StepBuilder{
		step: &Step{
			ID:       id,
			Name:     name,
			Type:     StepTypePrompt,
			Category: category,
		},
	}
}

// WithField adds a form field.
func (b *StepBuilder) WithField(f Field) *StepBuilder {
	b.step.Fields = append(b.step.Fields, f)
	return b
}

// WithTextField adds a required single-line field.
func (b *StepBuilder) WithTextField(name, label string) *StepBuilder {
	return b.WithField(Field{Name: name, Label: label, Control: "text", Required: true})
}

// WithOutputs sets the variable names the step produces.
func (b *StepBuilder) WithOutputs(names ...string) *StepBuilder {
	b.step.Outputs = names
	return b
}

// WithKeywords sets the keywords narrowing a large template category.
func (b *StepBuilder) WithKeywords(keywords ...string) *StepBuilder {
	b.step.Keywords = keywords
	return b
}

// WithTemplateName names the preferred template.
func (b *StepBuilder) WithTemplateName(name string) *StepBuilder {
	b.step.TemplateName = name
	return b
}

// WithDescription sets the help text shown for the step.
func (b *StepBuilder) WithDescription(desc string) *StepBuilder {
	b.step.Description = desc
	return b
}

// Optional marks the step as skippable.
func (b *StepBuilder) Optional() *StepBuilder {
	b.step.Optional = true
	return b
}

// Build returns the constructed Step.
func (b *StepBuilder) Build() *Step {
	return b.step
}

// Conversion helpers

func (w *Workflow) toInternal() (*workflow.Definition, error) {
	def := &workflow.Definition{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Genre:       w.Genre,
	}
	for _, s := range w.Steps {
		if s == nil {
			def.Steps = append(def.Steps, nil)
			continue
		}
		header := workflow.StepHeader{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Optional:    s.Optional,
		}
		switch s.Type {
		case StepTypeForm:
			fields := make([]workflow.Field, len(s.Fields))
			for i, f := range s.Fields {
				fields[i] = workflow.Field{
					Name:        f.Name,
					Label:       f.Label,
					Control:     workflow.FieldControl(f.Control),
					Required:    f.Required,
					Placeholder: f.Placeholder,
					Description: f.Description,
					Options:     f.Options,
				}
			}
			def.Steps = append(def.Steps, workflow.FormStep{
				StepHeader: header,
				Fields:     fields,
				Outputs:    s.Outputs,
			})
		case StepTypePrompt:
			def.Steps = append(def.Steps, workflow.PromptStep{
				StepHeader:   header,
				Category:     s.Category,
				Keywords:     s.Keywords,
				TemplateName: s.TemplateName,
				Outputs:      s.Outputs,
			})
		default:
			return nil, fmt.Errorf("step %s: unknown step type: %q", s.ID, s.Type)
		}
	}
	return def, nil
}

func fromInternalWorkflow(def *workflow.Definition) *Workflow {
	w := &Workflow{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Genre:       def.Genre,
		Steps:       make([]*Step, len(def.Steps)),
	}
	for i, s := range def.Steps {
		h := s.Header()
		step := &Step{
			ID:          h.ID,
			Name:        h.Name,
			Description: h.Description,
			Type:        StepType(s.Kind()),
			Optional:    h.Optional,
		}
		switch st := s.(type) {
		case workflow.FormStep:
			step.Outputs = st.Outputs
			for _, f := range st.Fields {
				step.Fields = append(step.Fields, Field{
					Name:        f.Name,
					Label:       f.Label,
					Control:     string(f.Control),
					Required:    f.Required,
					Placeholder: f.Placeholder,
					Description: f.Description,
					Options:     f.Options,
				})
			}
		case workflow.PromptStep:
			step.Category = st.Category
			step.Keywords = st.Keywords
			step.TemplateName = st.TemplateName
			step.Outputs = st.Outputs
		}
		w.Steps[i] = step
	}
	return w
}
