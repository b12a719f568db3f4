// Package config loads declarative form definitions from YAML or JSON.
//
// A definition names a form's fields, their initial values, and their
// constraints. NewForm compiles a definition into a running
// formflow.Form with the constraints registered as a validator.
package config

import (
	"fmt"
	"regexp"

	"github.com/formflow-go/formflow/pkg/formflow"
)

// Definition is a declarative form description.
type Definition struct {
	Form FormDef `yaml:"form" json:"form"`
}

// FormDef describes one form.
type FormDef struct {
	// ID identifies the form. Optional; a random ID is assigned if empty.
	ID string `yaml:"id" json:"id"`

	// Fields lists the form's fields. At least one is required.
	Fields []FieldDef `yaml:"fields" json:"fields"`
}

// FieldDef describes one field and its constraints.
// Constraint fields use pointers so that zero is distinguishable from unset.
type FieldDef struct {
	// Name is the field key. Required, must be unique within the form.
	Name string `yaml:"name" json:"name"`

	// Initial is the field's starting value.
	Initial any `yaml:"initial" json:"initial"`

	// Required rejects empty string and nil values.
	Required bool `yaml:"required" json:"required"`

	// MinLength and MaxLength bound string length in bytes.
	MinLength *int `yaml:"min_length" json:"min_length"`
	MaxLength *int `yaml:"max_length" json:"max_length"`

	// Pattern is a regular expression the string value must match.
	Pattern string `yaml:"pattern" json:"pattern"`

	// Min and Max bound numeric values.
	Min *float64 `yaml:"min" json:"min"`
	Max *float64 `yaml:"max" json:"max"`

	// Message overrides the generated finding message for any
	// constraint violation on this field.
	Message string `yaml:"message" json:"message"`
}

// Validate checks the definition for structural problems:
// missing fields, duplicate or empty names, invalid patterns,
// and inverted bounds.
func (d Definition) Validate() error {
	if len(d.Form.Fields) == 0 {
		return fmt.Errorf("definition has no fields")
	}

	seen := make(map[string]bool, len(d.Form.Fields))
	for i, f := range d.Form.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: name is empty", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q: duplicate name", f.Name)
		}
		seen[f.Name] = true

		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return fmt.Errorf("field %q: invalid pattern: %w", f.Name, err)
			}
		}
		if f.MinLength != nil && *f.MinLength < 0 {
			return fmt.Errorf("field %q: min_length is negative", f.Name)
		}
		if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
			return fmt.Errorf("field %q: min_length exceeds max_length", f.Name)
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("field %q: min exceeds max", f.Name)
		}
	}
	return nil
}

// InitialValues returns the initial value map described by the definition.
func (d Definition) InitialValues() formflow.Values {
	vals := make(formflow.Values, len(d.Form.Fields))
	for _, f := range d.Form.Fields {
		vals[f.Name] = f.Initial
	}
	return vals
}

// NewForm compiles the definition into a Form. The definition's
// constraints are registered as a single synchronous validator, and
// the definition's ID (if set) becomes the form's ID. Additional
// options are applied after the ID, so callers can override it.
func NewForm(d Definition, opts ...formflow.Option) (*formflow.Form, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	validator, err := d.RuleValidator()
	if err != nil {
		return nil, err
	}

	if d.Form.ID != "" {
		opts = append([]formflow.Option{formflow.WithID(d.Form.ID)}, opts...)
	}

	form, err := formflow.New(d.InitialValues(), opts...)
	if err != nil {
		return nil, err
	}
	form.RegisterValidator(validator)
	return form, nil
}
