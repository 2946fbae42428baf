package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teranos/promptvars/types"
)

func emailVariables() []types.Variable {
	return []types.Variable{
		{Name: "recipient_name", Type: types.TypeString, Required: true, DefaultValue: ""},
		{Name: "topic", Type: types.TypeString, Required: true, DefaultValue: ""},
		{Name: "tone", Type: types.TypeEnum, DefaultValue: "friendly", Options: []string{"concise", "friendly"}},
	}
}

const emailTemplate = "Write to {{recipient_name}} about {{topic}} in a {{tone}} tone."

func TestRender_MissingRequired(t *testing.T) {
	result := Render(emailTemplate, emailVariables(), map[string]any{"recipient_name": "Alex"})

	assert.Equal(t, []string{"topic"}, result.MissingRequired)
	assert.Equal(t, "Write to Alex about {{topic}} in a friendly tone.", result.Rendered)
}

func TestRender_AllFilled(t *testing.T) {
	result := Render(emailTemplate, emailVariables(), map[string]any{
		"recipient_name": "Alex",
		"topic":          "pricing",
		"tone":           "concise",
	})

	assert.Equal(t, []string{}, result.MissingRequired)
	assert.Equal(t, "Write to Alex about pricing in a concise tone.", result.Rendered)
}

func TestRender_EmptyAndNilFallBackToDefault(t *testing.T) {
	vars := []types.Variable{
		{Name: "tone", Type: types.TypeEnum, DefaultValue: "friendly", Options: []string{"friendly"}},
		{Name: "length", Type: types.TypeEnum, DefaultValue: "short", Options: []string{"short"}},
	}
	result := Render("{{tone}}/{{length}}", vars, map[string]any{"tone": "", "length": nil})

	assert.Equal(t, "friendly/short", result.Rendered)
}

func TestRender_Coercion(t *testing.T) {
	vars := []types.Variable{
		{Name: "enabled", Type: types.TypeBoolean, DefaultValue: "false"},
		{Name: "count", Type: types.TypeNumber, DefaultValue: "5"},
		{Name: "ratio", Type: types.TypeNumber, DefaultValue: 0.25},
		{Name: "notes", Type: types.TypeText, DefaultValue: nil},
	}
	result := Render("{{enabled}} {{count}} {{ratio}} [{{notes}}]", vars, map[string]any{
		"enabled": true,
		"count":   float64(12),
	})

	assert.Equal(t, "true 12 0.25 []", result.Rendered)
	assert.Empty(t, result.MissingRequired)
}

func TestRender_FalseIsAValue(t *testing.T) {
	vars := []types.Variable{{Name: "flag", Type: types.TypeBoolean, Required: true, DefaultValue: "true"}}
	result := Render("{{flag}}", vars, map[string]any{"flag": false})

	assert.Equal(t, "false", result.Rendered)
	assert.Empty(t, result.MissingRequired)
}

func TestRender_UnknownPlaceholdersVerbatim(t *testing.T) {
	vars := []types.Variable{{Name: "name", Type: types.TypeString, DefaultValue: "Sam"}}
	result := Render("Hi {{name}}, {{ Undeclared }} stays.", vars, map[string]any{"undeclared": "x"})

	assert.Equal(t, "Hi Sam, {{ Undeclared }} stays.", result.Rendered)
}

func TestRender_WhitespaceAndCaseTolerant(t *testing.T) {
	vars := []types.Variable{{Name: "recipient_name", Type: types.TypeString, Required: true}}
	result := Render("Dear {{ Recipient Name }},", vars, map[string]any{"Recipient-Name": "Kim"})

	assert.Equal(t, "Dear Kim,", result.Rendered)
}

func TestRender_SinglePass(t *testing.T) {
	vars := []types.Variable{
		{Name: "a", Type: types.TypeString, DefaultValue: "{{b}}"},
		{Name: "b", Type: types.TypeString, DefaultValue: "B"},
	}
	result := Render("{{a}} {{b}}", vars, nil)

	assert.Equal(t, "{{b}} B", result.Rendered, "substituted values are not rescanned")
}

func TestRender_OrderIndependent(t *testing.T) {
	vars := emailVariables()
	reversed := []types.Variable{vars[2], vars[1], vars[0]}
	values := map[string]any{"recipient_name": "Alex", "topic": "pricing"}

	assert.Equal(t, Render(emailTemplate, vars, values).Rendered, Render(emailTemplate, reversed, values).Rendered)
}
