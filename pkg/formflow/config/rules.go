package config

import (
	"context"
	"fmt"
	"regexp"

	"github.com/formflow-go/formflow/pkg/formflow"
)

// compiledRule holds one field's constraints with its pattern precompiled.
type compiledRule struct {
	field   FieldDef
	pattern *regexp.Regexp
}

// RuleValidator compiles the definition's constraints into a synchronous
// validator. For each field the constraints are checked in order
// (required, length, pattern, numeric bounds) and the first violation
// produces that field's finding. Fields with no violations produce none.
func (d Definition) RuleValidator() (formflow.Validator, error) {
	rules := make([]compiledRule, 0, len(d.Form.Fields))
	for _, f := range d.Form.Fields {
		rule := compiledRule{field: f}
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return nil, fmt.Errorf("field %q: invalid pattern: %w", f.Name, err)
			}
			rule.pattern = re
		}
		rules = append(rules, rule)
	}

	return func(_ context.Context, values formflow.Values) (formflow.Errors, error) {
		findings := make(formflow.Errors)
		for _, rule := range rules {
			if msg := rule.check(values[rule.field.Name]); msg != "" {
				findings[rule.field.Name] = msg
			}
		}
		return findings, nil
	}, nil
}

// check returns the first violation message for value, or "" if none.
func (r compiledRule) check(value any) string {
	f := r.field

	if f.Required && isEmpty(value) {
		return r.message("is required")
	}

	// Length and pattern constraints apply to string values only.
	if s, ok := value.(string); ok {
		if f.MinLength != nil && len(s) < *f.MinLength {
			return r.message(fmt.Sprintf("must be at least %d characters", *f.MinLength))
		}
		if f.MaxLength != nil && len(s) > *f.MaxLength {
			return r.message(fmt.Sprintf("must be at most %d characters", *f.MaxLength))
		}
		if r.pattern != nil && s != "" && !r.pattern.MatchString(s) {
			return r.message("has invalid format")
		}
	}

	// Numeric bounds apply to numeric values only.
	if n, ok := asFloat(value); ok {
		if f.Min != nil && n < *f.Min {
			return r.message(fmt.Sprintf("must be at least %v", *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return r.message(fmt.Sprintf("must be at most %v", *f.Max))
		}
	}

	return ""
}

// message returns the field's override message if set, otherwise a
// generated one.
func (r compiledRule) message(generated string) string {
	if r.field.Message != "" {
		return r.field.Message
	}
	return fmt.Sprintf("%s %s", r.field.Name, generated)
}

// isEmpty reports whether value counts as missing for a required field.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	return false
}

// asFloat converts numeric values to float64.
// JSON decoding yields float64; YAML decoding yields int or float64.
func asFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
