package prompt

import (
	"fmt"
	"strings"
)

// MissingValue is the text substituted for a declared variable whose value
// is empty, so unresolved slots stay visible in the final prompt.
func MissingValue(name string) string {
	return fmt.Sprintf("[missing: %s]", name)
}

// Resolve substitutes values into the {{name}} placeholders of template.
// Only names present as keys in values are replaced; an empty value is
// replaced by MissingValue. Placeholders for other names are left as they
// are. Substituted values are not rescanned for placeholders.
func Resolve(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-2])
		value, ok := values[name]
		if !ok {
			return token
		}
		if value == "" {
			return MissingValue(name)
		}
		return value
	})
}

// Validation is the outcome of checking required variables.
type Validation struct {
	Valid   bool
	Missing []string // display names, in declaration order
}

// Validate checks that every required variable has a non-blank value.
func Validate(vars []Variable, values map[string]string) Validation {
	var missing []string
	for _, v := range vars {
		if v.Required && strings.TrimSpace(values[v.Name]) == "" {
			missing = append(missing, v.DisplayName)
		}
	}
	return Validation{Valid: len(missing) == 0, Missing: missing}
}
