// Package prompt parses the slot declarations of prompt templates, resolves
// placeholder values into them and extracts named outputs from AI responses.
//
// Templates are markdown documents. Placeholders are written {{name}}. A
// template may declare its inputs under an "## 输入插槽" (or "## Input Slots")
// heading and its outputs under "## 输出插槽" (or "## Output Slots"). Section
// detection is a best-effort heuristic over heading text, not a grammar.
package prompt

import (
	"regexp"
	"strings"
)

// Slots holds the declared inputs and outputs of a template, each in first
// occurrence order without duplicates.
type Slots struct {
	Inputs  []Variable `json:"input_slots" yaml:"input_slots"`
	Outputs []string   `json:"output_slots" yaml:"output_slots"`
}

// InputNames returns the names of the input slots in declaration order.
func (s Slots) InputNames() []string {
	names := make([]string, len(s.Inputs))
	for i, v := range s.Inputs {
		names[i] = v.Name
	}
	return names
}

const headingMarker = "## "

var (
	inputHeadings  = []string{"输入插槽", "Input Slots"}
	outputHeadings = []string{"输出插槽", "Output Slots"}
)

// placeholderRe matches one {{name}} token. Braces are not allowed inside,
// so a nested pair yields only the innermost token.
var placeholderRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// ParseSlots extracts the input and output slots of a template. Missing
// sections produce empty slot sets; ParseSlots never fails.
func ParseSlots(text string) Slots {
	var slots Slots
	if section, ok := findSection(text, inputHeadings); ok {
		for _, name := range placeholderNames(section) {
			slots.Inputs = append(slots.Inputs, newVariable(name))
		}
	}
	if section, ok := findSection(text, outputHeadings); ok {
		slots.Outputs = placeholderNames(section)
	}
	return slots
}

// HasInputSection reports whether the template declares an input slot section.
func HasInputSection(text string) bool {
	_, ok := findSection(text, inputHeadings)
	return ok
}

// ParseVariables returns the input variables of a template. Templates with
// an input slot section get exactly those slots; legacy templates without one
// get every distinct placeholder found anywhere in the text.
func ParseVariables(text string) []Variable {
	if HasInputSection(text) {
		return ParseSlots(text).Inputs
	}
	var vars []Variable
	for _, name := range placeholderNames(text) {
		vars = append(vars, newVariable(name))
	}
	return vars
}

// Placeholders returns every distinct placeholder name in text, in first
// occurrence order.
func Placeholders(text string) []string {
	return placeholderNames(text)
}

// findSection returns the text from the earliest matching heading up to the
// next "## " marker or the end of text.
func findSection(text string, headings []string) (string, bool) {
	start := -1
	var heading string
	for _, h := range headings {
		idx := strings.Index(text, headingMarker+h)
		if idx >= 0 && (start < 0 || idx < start) {
			start, heading = idx, h
		}
	}
	if start < 0 {
		return "", false
	}

	bodyStart := start + len(headingMarker) + len(heading)
	body := text[bodyStart:]
	if end := strings.Index(body, headingMarker); end >= 0 {
		body = body[:end]
	}
	return text[start:bodyStart] + body, true
}

func placeholderNames(text string) []string {
	matches := placeholderRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
