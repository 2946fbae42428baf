package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teranos/promptvars/types"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name     string
		wantType types.VariableType
		wantDef  any
		required bool
		options  []string
	}{
		{"tone", types.TypeEnum, "concise", false, []string{"concise", "friendly", "direct", "formal"}},
		{"audience", types.TypeEnum, "general", false, []string{"general", "technical", "executive", "beginner"}},
		{"format", types.TypeEnum, "bullets", false, []string{"bullets", "paragraph", "table", "json"}},
		{"output_format", types.TypeEnum, "markdown", false, []string{"markdown", "plain_text", "json", "table"}},
		{"length", types.TypeEnum, "short", false, []string{"short", "medium", "long"}},
		{"email_tone", types.TypeEnum, "concise", false, []string{"concise", "friendly", "direct", "formal"}},
		{"risk_profile", types.TypeEnum, "conservative", false, []string{"conservative", "moderate", "aggressive"}},
		{"relationship", types.TypeEnum, "concise", false, []string{"concise", "friendly", "direct", "formal"}},
		{"user_profile", types.TypeEnum, "concise", false, []string{"concise", "friendly", "direct", "formal"}},
		{"max_words", types.TypeNumber, "5", false, nil},
		{"max_bullets", types.TypeNumber, "5", false, nil},
		{"item_count", types.TypeNumber, "5", false, nil},
		{"days", types.TypeNumber, "5", false, nil},
		{"enable_logging", types.TypeBoolean, "false", false, nil},
		{"include_examples", types.TypeBoolean, "false", false, nil},
		{"is_urgent", types.TypeBoolean, "false", false, nil},
		{"preserve_whitespace", types.TypeBoolean, "true", false, nil},
		{"preserve_formatting", types.TypeEnum, "bullets", false, []string{"bullets", "paragraph", "table", "json"}},
		{"context", types.TypeText, "", false, nil},
		{"notes", types.TypeText, "", false, nil},
		{"diff", types.TypeText, "", false, nil},
		{"source_notes", types.TypeString, "", true, nil},
		{"topic", types.TypeString, "", true, nil},
		{"recipient_name", types.TypeString, "", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.name)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantDef, got.DefaultValue)
			assert.Equal(t, tt.required, got.Required)
			assert.Equal(t, tt.options, got.Options)
		})
	}
}

func TestInfer_Deterministic(t *testing.T) {
	for _, name := range []string{"tone", "source_notes", "max_bullets", "whatever"} {
		assert.Equal(t, Infer(name), Infer(name))
	}
}

func TestInfer_OptionsAreCopies(t *testing.T) {
	first := Infer("tone")
	first.Options[0] = "mutated"
	assert.Equal(t, "concise", Infer("tone").Options[0])

	opts, ok := DomainOptions("tone")
	assert.True(t, ok)
	opts[0] = "mutated"
	assert.Equal(t, "concise", Domains[0].Options[0])
}

func TestInferenceVariable(t *testing.T) {
	v := Infer("tone").Variable("tone")
	assert.NoError(t, v.Validate())
	assert.Equal(t, "tone", v.Name)
	assert.Equal(t, types.TypeEnum, v.Type)

	v = Infer("topic").Variable("topic")
	assert.NoError(t, v.Validate())
	assert.True(t, v.Required)
}
