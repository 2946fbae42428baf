package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/promptvars/types"
)

var vars = []types.Variable{
	{Name: "topic", Type: types.TypeString, Required: true},
	{Name: "tone", Type: types.TypeEnum, Required: true, DefaultValue: "neutral",
		Options: []string{"neutral", "formal", "friendly"}},
	{Name: "max_bullets", Type: types.TypeNumber, Required: true, DefaultValue: "5"},
	{Name: "include_summary", Type: types.TypeBoolean, DefaultValue: "false"},
	{Name: "context", Type: types.TypeText},
}

func TestDocument(t *testing.T) {
	doc := Document(vars)

	assert.Equal(t, Draft, doc["$schema"])
	assert.Equal(t, []interface{}{"topic", "tone", "max_bullets"}, doc["required"])

	props := doc["properties"].(map[string]interface{})
	require.Len(t, props, 5)

	tone := props["tone"].(map[string]interface{})
	assert.Equal(t, "string", tone["type"])
	assert.Equal(t, []interface{}{"neutral", "formal", "friendly"}, tone["enum"])
	assert.Equal(t, "neutral", tone["default"])

	bullets := props["max_bullets"].(map[string]interface{})
	assert.Equal(t, "number", bullets["type"])
	assert.Equal(t, 5.0, bullets["default"])

	flag := props["include_summary"].(map[string]interface{})
	assert.Equal(t, "boolean", flag["type"])
	assert.Equal(t, false, flag["default"])

	context := props["context"].(map[string]interface{})
	assert.Equal(t, true, context["x-multiline"])
	assert.NotContains(t, context, "default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		values     map[string]any
		wantFields []string
	}{
		{
			name:   "defaults fill the gaps",
			values: map[string]any{"topic": "release notes"},
		},
		{
			name:   "string numbers and booleans are coerced",
			values: map[string]any{"topic": "x", "max_bullets": "3", "include_summary": "TRUE"},
		},
		{
			name:   "native numbers and booleans",
			values: map[string]any{"topic": "x", "max_bullets": 7, "include_summary": true},
		},
		{
			name:   "keys are canonicalized",
			values: map[string]any{"Topic": "x", "Max Bullets": "2"},
		},
		{
			name:       "missing required",
			values:     map[string]any{},
			wantFields: []string{"topic"},
		},
		{
			name:       "empty string counts as missing",
			values:     map[string]any{"topic": ""},
			wantFields: []string{"topic"},
		},
		{
			name:       "enum outside options",
			values:     map[string]any{"topic": "x", "tone": "sarcastic"},
			wantFields: []string{"tone"},
		},
		{
			name:       "not a number",
			values:     map[string]any{"topic": "x", "max_bullets": "several"},
			wantFields: []string{"max_bullets"},
		},
		{
			name:       "not a boolean",
			values:     map[string]any{"topic": "x", "include_summary": "maybe"},
			wantFields: []string{"include_summary"},
		},
		{
			name:   "unknown keys are ignored",
			values: map[string]any{"topic": "x", "unused": 1},
		},
		{
			name:       "several failures",
			values:     map[string]any{"tone": "loud", "max_bullets": "lots"},
			wantFields: []string{"max_bullets", "tone", "topic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(vars, tt.values)
			require.NoError(t, err)

			fields := []string{}
			for _, e := range res.Errors {
				fields = append(fields, e.Field)
				assert.NotEmpty(t, e.Message)
			}
			if tt.wantFields == nil {
				assert.True(t, res.Valid, "errors: %v", res.Errors)
				assert.Empty(t, fields)
				return
			}
			assert.False(t, res.Valid)
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidateEmptySchema(t *testing.T) {
	res, err := Validate(nil, map[string]any{"anything": "goes"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.NotNil(t, res.Errors)
}
