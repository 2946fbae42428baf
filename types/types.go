// Package types defines the template data model shared by extraction,
// rendering and storage.
package types

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/placeholder"
)

// VariableType is the closed set of variable kinds
type VariableType string

const (
	TypeString  VariableType = "string"
	TypeText    VariableType = "text"
	TypeNumber  VariableType = "number"
	TypeBoolean VariableType = "boolean"
	TypeEnum    VariableType = "enum"
)

// Valid reports whether t is one of the known variable types
func (t VariableType) Valid() bool {
	switch t {
	case TypeString, TypeText, TypeNumber, TypeBoolean, TypeEnum:
		return true
	}
	return false
}

var canonicalName = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// IsCanonicalName reports whether name is lowercase [a-z0-9_]+ without
// leading, trailing or doubled underscores.
func IsCanonicalName(name string) bool {
	return canonicalName.MatchString(name)
}

// Variable is one entry of a template's variable schema.
// DefaultValue holds a string, a number, a bool or nil.
type Variable struct {
	Name         string       `json:"name" yaml:"name"`
	Type         VariableType `json:"type" yaml:"type"`
	Required     bool         `json:"required" yaml:"required"`
	DefaultValue any          `json:"defaultValue" yaml:"defaultValue"`
	Options      []string     `json:"options,omitempty" yaml:"options,omitempty"`
}

// Clone returns a copy that shares no slices with v
func (v Variable) Clone() Variable {
	v.Options = slices.Clone(v.Options)
	return v
}

// Validate checks the name and enum invariants
func (v Variable) Validate() error {
	if !IsCanonicalName(v.Name) {
		return errors.NewInvalidRequestError("variable name %q is not canonical", v.Name)
	}
	if !v.Type.Valid() {
		return errors.NewInvalidRequestError("variable %s has unknown type %q", v.Name, v.Type)
	}
	if v.Type != TypeEnum {
		if len(v.Options) > 0 {
			return errors.NewInvalidRequestError("variable %s has options but is not an enum", v.Name)
		}
		return nil
	}
	if len(v.Options) == 0 {
		return errors.NewInvalidRequestError("enum variable %s has no options", v.Name)
	}
	if def := FormatValue(v.DefaultValue); !slices.Contains(v.Options, def) {
		return errors.NewInvalidRequestError("enum variable %s default %q is not an option", v.Name, def)
	}
	return nil
}

// CloneVariables deep-copies a variable schema. A nil input stays nil.
func CloneVariables(vars []Variable) []Variable {
	if vars == nil {
		return nil
	}
	out := make([]Variable, len(vars))
	for i, v := range vars {
		out[i] = v.Clone()
	}
	return out
}

// ValidateVariables checks every variable and that names are unique
func ValidateVariables(vars []Variable) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if err := v.Validate(); err != nil {
			return err
		}
		if seen[v.Name] {
			return errors.NewInvalidRequestError("duplicate variable %s", v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// Template is a stored, parameterized prompt. Template text only contains
// canonical {{name}} placeholders.
type Template struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Template  string     `json:"template" yaml:"template"`
	Variables []Variable `json:"variables" yaml:"variables"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// Validate checks the variable schema, that the text only uses {{name}}
// placeholders and that every placeholder has a declared variable.
func (t *Template) Validate() error {
	if err := ValidateVariables(t.Variables); err != nil {
		return err
	}
	if placeholder.Normalize(t.Template) != t.Template {
		return errors.NewInvalidRequestError("template text has placeholders not written as {{name}}")
	}
	declared := make(map[string]bool, len(t.Variables))
	for _, v := range t.Variables {
		declared[v.Name] = true
	}
	var missing []string
	for _, name := range placeholder.Names(t.Template) {
		if !declared[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.WithHint(
			errors.NewInvalidRequestError("undeclared variable(s) in template text: %v", missing),
			"declare them in variables, or save with extraction enabled")
	}
	return nil
}

// Clone returns a deep copy of t
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.Variables = CloneVariables(t.Variables)
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}

// Version is an immutable snapshot of a template, taken on every save
type Version struct {
	VersionID     string     `json:"version_id"`
	VersionNumber int        `json:"version_number"`
	TemplateID    string     `json:"template_id"`
	Name          string     `json:"name"`
	Template      string     `json:"template"`
	Variables     []Variable `json:"variables"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	SnapshotAt    time.Time  `json:"snapshot_at"`
}

// Clone returns a deep copy of v
func (v *Version) Clone() *Version {
	if v == nil {
		return nil
	}
	c := *v
	c.Variables = CloneVariables(v.Variables)
	if v.UpdatedAt != nil {
		u := *v.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}

// FormatValue coerces a variable value to the text substituted into a
// template: nil becomes "", booleans "true"/"false", numbers without
// trailing zeros.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
