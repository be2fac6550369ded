// Package mumu provides a public API for running MuMu writing workflows.
//
// A workflow is an ordered list of form and prompt steps. Form steps
// collect raw input; prompt steps pick a template from the catalog, fill
// its input slots from the shared context, stream an AI answer and, once
// accepted, extract the template's output slots back into the context.
//
// Basic usage:
//
//	workflows, err := mumu.BuiltinWorkflows()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := mumu.NewSession(workflows[0], mumu.WithTemplatesDir("./templates"))
//
// Programmatic workflow construction:
//
//	wf := mumu.NewWorkflow("short", "短篇")
//	wf.AddStep(mumu.FormStep("intro", "简介").WithTextField("project_brief", "项目简介").Build())
//	wf.AddStep(mumu.PromptStep("outline", "大纲", "短篇").WithOutputs("outline").Build())
//
// Template helpers:
//
//	slots := mumu.ParseSlots(text)
//	prompt := mumu.Resolve(text, map[string]string{"project_brief": "..."})
package mumu

import (
	"errors"

	"github.com/DomeenoH/MuMuAINovel/internal/backend"
	"github.com/DomeenoH/MuMuAINovel/internal/catalog"
	"github.com/DomeenoH/MuMuAINovel/internal/handoff"
	"github.com/DomeenoH/MuMuAINovel/internal/prompt"
	"github.com/DomeenoH/MuMuAINovel/internal/wizard"
	"github.com/DomeenoH/MuMuAINovel/internal/workflow"
)

// Template types re-exported from the parser.
type (
	Slots           = prompt.Slots
	Variable        = prompt.Variable
	Sections        = prompt.Sections
	Phase           = wizard.Phase
	State           = wizard.State
	Template        = catalog.TemplateItem
	ValidationError = wizard.ValidationError
)

// LoadWorkflows loads and parses workflow definitions from a YAML file.
// The file can contain several workflows separated by "---".
//
// Example:
//
//	workflows, err := mumu.LoadWorkflows("workflows.yaml")
//	for _, wf := range workflows {
//	    fmt.Printf("Workflow: %s (%d steps)\n", wf.Name, len(wf.Steps))
//	}
func LoadWorkflows(inputPath string) ([]*Workflow, error) {
	defs, err := workflow.LoadWorkflows(inputPath)
	if err != nil {
		return nil, err
	}
	return fromInternal(defs), nil
}

// BuiltinWorkflows returns the workflows shipped with the module.
func BuiltinWorkflows() ([]*Workflow, error) {
	defs, err := workflow.Builtin()
	if err != nil {
		return nil, err
	}
	return fromInternal(defs), nil
}

func fromInternal(defs []*workflow.Definition) []*Workflow {
	result := make([]*Workflow, len(defs))
	for i, d := range defs {
		result[i] = fromInternalWorkflow(d)
	}
	return result
}

// Validate checks a workflow for errors without running it.
func Validate(wf *Workflow) error {
	def, err := wf.toInternal()
	if err != nil {
		return err
	}
	return def.Validate()
}

// ParseSlots extracts the declared input and output slots of a template.
func ParseSlots(text string) Slots {
	return prompt.ParseSlots(text)
}

// ParseVariables returns a template's input variables, falling back to
// every placeholder for templates without an input slot section.
func ParseVariables(text string) []Variable {
	return prompt.ParseVariables(text)
}

// ExtractSections splits a template into its conventional sections.
func ExtractSections(text string) Sections {
	return prompt.ExtractSections(text)
}

// Resolve substitutes values into the template's placeholders.
func Resolve(text string, values map[string]string) string {
	return prompt.Resolve(text, values)
}

// ExtractOutputs maps an AI response onto the expected output names.
func ExtractOutputs(output string, expected []string) map[string]string {
	return prompt.ExtractOutputs(output, expected)
}

// Session runs one workflow. It embeds the step executor; Close releases
// the backend and catalog connections.
type Session struct {
	*wizard.Executor

	closers []func() error
}

// NewSession prepares wf for running with the collaborators named by opts.
//
// Example:
//
//	s, err := mumu.NewSession(wf,
//	    mumu.WithAPI("http://localhost:8000"),
//	    mumu.WithCreateProject(),
//	)
//	defer s.Close()
//	err = s.Start(ctx) // then SubmitForm, SelectTemplate, Execute, Commit...
func NewSession(wf *Workflow, opts ...Option) (*Session, error) {
	def, err := wf.toInternal()
	if err != nil {
		return nil, err
	}
	o := ApplyOptions(opts...)
	cfg := o.config()

	cat, closeCatalog, err := catalog.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	s := &Session{closers: []func() error{closeCatalog}}

	registry, err := backend.FromConfig(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, registry.Close)
	llm, err := registry.MustLLM("")
	if err != nil {
		s.Close()
		return nil, err
	}

	wopts := []wizard.Option{
		wizard.WithModel(o.Model),
		wizard.WithChunkHandler(o.OnChunk),
	}
	if o.CreateProject {
		wopts = append(wopts, wizard.WithHandoff(handoff.NewHTTPHandoff(cfg.API.BaseURL, cfg.API.Timeout)))
	}

	s.Executor, err = wizard.New(def, cat, llm, wopts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the session's connections.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
