package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validClaim() map[string]any {
	return map[string]any{
		"insured-name":       "Jane Doe",
		"phone":              "+15551234567",
		"accident-time":      "2024-01-01",
		"accident-situation": "traffic-accident",
		"agreement":          true,
	}
}

func TestDefault_ValidClaim(t *testing.T) {
	assert.Empty(t, Default().Validate(validClaim()))
}

func TestDefault_MissingEverything(t *testing.T) {
	errs := Default().Validate(map[string]any{})
	assert.Len(t, errs, 5)
	assert.Contains(t, errs, "Insured name is required")
	assert.Contains(t, errs, "Agreement must be accepted")
}

func TestDefault_BadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{"phone letters", "phone", "call me", "Phone must be a valid phone number"},
		{"blank name", "insured-name", "   ", "Insured name is required"},
		{"bad date", "accident-time", "01/02/2024", "Accident date must be a date (YYYY-MM-DD)"},
		{"unknown situation", "accident-situation", "meteor", `Accident situation has an unknown value "meteor"`},
		{"agreement false", "agreement", false, "Agreement must be accepted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validClaim()
			f[tt.key] = tt.value
			assert.Equal(t, []string{tt.want}, Default().Validate(f))
		})
	}
}

func TestAccepted_StringForms(t *testing.T) {
	r := Accepted("A")
	assert.Empty(t, r("true", true))
	assert.Empty(t, r("on", true))
	assert.NotEmpty(t, r("false", true))
}

func TestValidateStep(t *testing.T) {
	r := Default()
	assert.Empty(t, r.ValidateStep("insured", map[string]any{"insured-name": "J", "phone": "+1 555 123 4567"}))
	assert.Len(t, r.ValidateStep("accident", map[string]any{}), 2)
	assert.Nil(t, r.ValidateStep("nope", map[string]any{}))
}

func TestFunc(t *testing.T) {
	var v Validator = Func(func(map[string]any) []string { return []string{"x"} })
	assert.Equal(t, []string{"x"}, v.Validate(nil))
}
