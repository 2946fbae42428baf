// Package schema describes a variable list as a JSON Schema document and
// validates value sets against it before rendering.
package schema

import (
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/placeholder"
	"github.com/teranos/promptvars/types"
)

// Draft is the JSON Schema dialect of generated documents
const Draft = "http://json-schema.org/draft-07/schema#"

// FieldError is one failed constraint
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of Validate. Errors is never nil.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

// Document builds a draft-07 object schema with one property per variable.
// Text variables carry "x-multiline"; every property carries its default.
func Document(vars []types.Variable) map[string]interface{} {
	properties := make(map[string]interface{}, len(vars))
	required := []interface{}{}

	for _, v := range vars {
		prop := map[string]interface{}{}
		switch v.Type {
		case types.TypeNumber:
			prop["type"] = "number"
		case types.TypeBoolean:
			prop["type"] = "boolean"
		case types.TypeEnum:
			prop["type"] = "string"
			options := make([]interface{}, len(v.Options))
			for i, o := range v.Options {
				options[i] = o
			}
			prop["enum"] = options
		case types.TypeText:
			prop["type"] = "string"
			prop["x-multiline"] = true
		default:
			prop["type"] = "string"
		}
		if def := coerce(v, v.DefaultValue); def != nil {
			prop["default"] = def
		}
		properties[v.Name] = prop
		if v.Required {
			required = append(required, v.Name)
		}
	}

	return map[string]interface{}{
		"$schema":              Draft,
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": true,
	}
}

// Validate checks values the way Render would resolve them: keys are
// canonicalized, absent or empty values fall back to the default, and
// numeric or boolean strings are coerced before type checks.
func Validate(vars []types.Variable, values map[string]any) (*Result, error) {
	supplied := make(map[string]any, len(values))
	for k, v := range values {
		if name, ok := placeholder.CanonicalName(k); ok {
			supplied[name] = v
		}
	}

	document := make(map[string]interface{}, len(vars))
	for _, v := range vars {
		value, ok := supplied[v.Name]
		if !ok || value == nil || value == "" {
			value = v.DefaultValue
		}
		if value = coerce(v, value); value != nil {
			document[v.Name] = value
		}
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(Document(vars)),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate values")
	}

	out := &Result{Valid: res.Valid(), Errors: []FieldError{}}
	for _, e := range res.Errors() {
		field := e.Field()
		if e.Type() == "required" {
			if p, ok := e.Details()["property"].(string); ok {
				field = p
			}
		}
		out.Errors = append(out.Errors, FieldError{Field: field, Message: e.Description()})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out, nil
}

// coerce maps a supplied value onto the JSON type of v. Strings that do not
// parse are returned unchanged so the schema reports them.
func coerce(v types.Variable, value any) any {
	switch x := value.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		switch v.Type {
		case types.TypeNumber:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f
			}
		case types.TypeBoolean:
			if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(x))); err == nil {
				return b
			}
		}
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case bool, float64:
		if v.Type == types.TypeString || v.Type == types.TypeText || v.Type == types.TypeEnum {
			return types.FormatValue(x)
		}
		return x
	default:
		return types.FormatValue(x)
	}
}
