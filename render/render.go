// Package render substitutes values into canonical templates.
package render

import (
	"github.com/teranos/promptvars/placeholder"
	"github.com/teranos/promptvars/types"
)

// Result is the outcome of one render
type Result struct {
	Rendered        string   `json:"rendered"`
	MissingRequired []string `json:"missingRequired"`
}

// Render resolves an effective value for every declared variable and
// substitutes it into template in a single pass.
//
// A value is taken from values when present, non-nil and not the empty
// string; otherwise the variable's default is used. Value keys are matched
// by canonical name. A required variable whose effective value is empty is
// reported in MissingRequired and its placeholder is left in the output.
// Placeholders with no declared variable are left verbatim.
func Render(template string, variables []types.Variable, values map[string]any) Result {
	supplied := make(map[string]any, len(values))
	for k, v := range values {
		if name, ok := placeholder.CanonicalName(k); ok {
			supplied[name] = v
		}
	}

	resolved := make(map[string]string, len(variables))
	missing := []string{}
	for _, v := range variables {
		value, ok := supplied[v.Name]
		if !ok || value == nil || value == "" {
			value = v.DefaultValue
		}
		text := types.FormatValue(value)
		if v.Required && text == "" {
			missing = append(missing, v.Name)
			continue
		}
		resolved[v.Name] = text
	}

	rendered := placeholder.Replace(template, func(name string) (string, bool) {
		text, ok := resolved[name]
		return text, ok
	})

	return Result{Rendered: rendered, MissingRequired: missing}
}
