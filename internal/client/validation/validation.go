// Package validation holds the default form rules of the claim wizard.
// The session only sees the Validator interface; swapping rule sets does
// not touch the persistence core.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Validator checks form answers and returns human-readable errors.
// An empty result means the data is acceptable.
type Validator interface {
	Validate(fields map[string]any) []string
}

// Func adapts an ordinary function to Validator.
type Func func(fields map[string]any) []string

func (f Func) Validate(fields map[string]any) []string { return f(fields) }

// Rule checks a single field value. present is false when the key is
// missing or blank.
type Rule func(value any, present bool) string

// Step is one page of the wizard.
type Step struct {
	Name  string
	Rules map[string][]Rule
}

// Rules validates a sequence of wizard steps.
type Rules struct {
	Steps []Step
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,19}$`)

// Required fails when the field is missing or blank.
func Required(label string) Rule {
	return func(_ any, present bool) string {
		if !present {
			return fmt.Sprintf("%s is required", label)
		}
		return ""
	}
}

// Phone accepts international numbers such as +15551234567.
func Phone(label string) Rule {
	return func(v any, present bool) string {
		if !present {
			return ""
		}
		s, _ := v.(string)
		if !phonePattern.MatchString(strings.TrimSpace(s)) {
			return fmt.Sprintf("%s must be a valid phone number", label)
		}
		return ""
	}
}

// Date accepts YYYY-MM-DD, optionally followed by a time.
func Date(label string) Rule {
	return func(v any, present bool) string {
		if !present {
			return ""
		}
		s, _ := v.(string)
		for _, layout := range []string{time.DateOnly, "2006-01-02T15:04", time.RFC3339} {
			if _, err := time.Parse(layout, s); err == nil {
				return ""
			}
		}
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", label)
	}
}

// OneOf restricts a field to a fixed set of values.
func OneOf(label string, allowed ...string) Rule {
	return func(v any, present bool) string {
		if !present {
			return ""
		}
		s, _ := v.(string)
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		return fmt.Sprintf("%s has an unknown value %q", label, s)
	}
}

// Accepted requires a true checkbox.
func Accepted(label string) Rule {
	return func(v any, _ bool) string {
		if b, ok := v.(bool); ok && b {
			return ""
		}
		if s, ok := v.(string); ok && (s == "true" || s == "on") {
			return ""
		}
		return fmt.Sprintf("%s must be accepted", label)
	}
}

// Default returns the rules of the standard claim wizard.
func Default() *Rules {
	return &Rules{Steps: []Step{
		{Name: "insured", Rules: map[string][]Rule{
			"insured-name": {Required("Insured name")},
			"phone":        {Required("Phone"), Phone("Phone")},
		}},
		{Name: "accident", Rules: map[string][]Rule{
			"accident-time": {Required("Accident date"), Date("Accident date")},
			"accident-situation": {Required("Accident situation"),
				OneOf("Accident situation", "traffic-accident", "theft", "fire", "water-damage", "injury", "other")},
		}},
		{Name: "confirmation", Rules: map[string][]Rule{
			"agreement": {Accepted("Agreement")},
		}},
	}}
}

// Validate runs every step.
func (r *Rules) Validate(fields map[string]any) []string {
	var errs []string
	for _, s := range r.Steps {
		errs = append(errs, s.validate(fields)...)
	}
	return errs
}

// ValidateStep runs the step with the given name only. Unknown steps have
// no rules.
func (r *Rules) ValidateStep(name string, fields map[string]any) []string {
	for _, s := range r.Steps {
		if s.Name == name {
			return s.validate(fields)
		}
	}
	return nil
}

func (s Step) validate(fields map[string]any) []string {
	keys := make([]string, 0, len(s.Rules))
	for k := range s.Rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, k := range keys {
		v, ok := fields[k]
		present := ok && !blank(v)
		for _, rule := range s.Rules[k] {
			if msg := rule(v, present); msg != "" {
				errs = append(errs, msg)
				break
			}
		}
	}
	return errs
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
