package workflow

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the definition can be run: every step has an id and
// a name, ids are unique, and form steps declare uniquely named fields.
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return describe(fmt.Sprintf("workflow %q", d.ID), err)
	}

	seen := make(map[string]int, len(d.Steps))
	for i, step := range d.Steps {
		if step == nil {
			return fmt.Errorf("step %d is empty", i+1)
		}
		if err := validate.Struct(step); err != nil {
			return describe(fmt.Sprintf("step %d", i+1), err)
		}

		id := step.Header().ID
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("step %d reuses id %q of step %d", i+1, id, prev+1)
		}
		seen[id] = i

		if form, ok := step.(FormStep); ok {
			names := make(map[string]bool, len(form.Fields))
			for _, f := range form.Fields {
				if names[f.Name] {
					return fmt.Errorf("form step %s declares field %q twice", id, f.Name)
				}
				names[f.Name] = true
			}
		}
	}
	return nil
}

// ValidateAll validates every definition and rejects duplicate workflow ids.
func ValidateAll(defs []*Definition) error {
	ids := make(map[string]bool, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
		if ids[d.ID] {
			return fmt.Errorf("workflow id %q is defined twice", d.ID)
		}
		ids[d.ID] = true
	}
	return nil
}

func describe(subject string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%s: %w", subject, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is missing %s", subject, fe.Namespace())
	case "min":
		return fmt.Errorf("%s must have at least %s entries in %s", subject, fe.Param(), fe.Namespace())
	case "oneof":
		return fmt.Errorf("%s has invalid %s %q (want one of %s)", subject, fe.Namespace(), fe.Value(), fe.Param())
	default:
		return fmt.Errorf("%s: %s failed %s", subject, fe.Namespace(), fe.Tag())
	}
}
