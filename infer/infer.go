// Package infer classifies a canonical variable name into a variable type
// and proposes a default value. Classification is a pure function of the
// name.
package infer

import (
	"slices"
	"strings"

	"github.com/teranos/promptvars/types"
)

// Inference is the classification of one variable name
type Inference struct {
	Type         types.VariableType
	Required     bool
	DefaultValue any
	Options      []string
	Rule         string // which rule fired, for proposal notes
}

// Variable turns the inference into a schema entry for name
func (in Inference) Variable(name string) types.Variable {
	return types.Variable{
		Name:         name,
		Type:         in.Type,
		Required:     in.Required,
		DefaultValue: in.DefaultValue,
		Options:      slices.Clone(in.Options),
	}
}

// Domain is a named enum vocabulary
type Domain struct {
	Name    string
	Options []string
}

// Domains is the enum vocabulary table. Order matters: exact names are
// checked first, then substrings in this order, so output_format is tried
// before format.
var Domains = []Domain{
	{Name: "tone", Options: []string{"concise", "friendly", "direct", "formal"}},
	{Name: "audience", Options: []string{"general", "technical", "executive", "beginner"}},
	{Name: "output_format", Options: []string{"markdown", "plain_text", "json", "table"}},
	{Name: "format", Options: []string{"bullets", "paragraph", "table", "json"}},
	{Name: "length", Options: []string{"short", "medium", "long"}},
	{Name: "style", Options: []string{"professional", "casual", "academic", "playful"}},
	{Name: "language", Options: []string{"english", "spanish", "french", "german"}},
	{Name: "risk_profile", Options: []string{"conservative", "moderate", "aggressive"}},
}

// DomainOptions returns a copy of the option list for a domain name
func DomainOptions(name string) ([]string, bool) {
	for _, d := range Domains {
		if d.Name == name {
			return slices.Clone(d.Options), true
		}
	}
	return nil, false
}

var enumish = []string{"tone", "audience", "format", "length", "language", "relationship", "profile", "style"}

var (
	numericPrefixes = []string{"max_"}
	numericHints    = []string{"count", "num", "total", "bullets", "items", "lines", "days", "months", "years"}

	booleanPrefixes = []string{"is_", "has_", "preserve_", "enable_"}
	booleanHints    = []string{"include", "exclude", "enabled", "allow", "deny"}

	// Free-text hints match the whole name only, so source_notes stays a
	// plain string while notes becomes text.
	textHints = []string{"context", "notes", "transcript", "thread", "paste", "input", "source", "message", "diff", "schema", "constraints", "benefits"}
)

// Infer classifies name. Rules are tried in order and the first match wins:
// enum domain, enum-ish name, numeric, boolean, free text, plain string.
// Only plain strings are required.
func Infer(name string) Inference {
	if d, ok := matchDomain(name); ok {
		return enum(d.Options, "domain:"+d.Name)
	}

	if containsAny(name, enumish) {
		tone, _ := DomainOptions("tone")
		return enum(tone, "enumish")
	}

	if hasAnyPrefix(name, numericPrefixes) || containsAny(name, numericHints) {
		return Inference{Type: types.TypeNumber, DefaultValue: "5", Rule: "numeric"}
	}

	if hasAnyPrefix(name, booleanPrefixes) || containsAny(name, booleanHints) {
		def := "false"
		if strings.HasPrefix(name, "preserve_") {
			def = "true"
		}
		return Inference{Type: types.TypeBoolean, DefaultValue: def, Rule: "boolean"}
	}

	if slices.Contains(textHints, name) {
		return Inference{Type: types.TypeText, DefaultValue: "", Rule: "text"}
	}

	return Inference{Type: types.TypeString, Required: true, DefaultValue: "", Rule: "string"}
}

func enum(options []string, rule string) Inference {
	return Inference{
		Type:         types.TypeEnum,
		DefaultValue: options[0],
		Options:      slices.Clone(options),
		Rule:         rule,
	}
}

func matchDomain(name string) (Domain, bool) {
	for _, d := range Domains {
		if d.Name == name {
			return d, true
		}
	}
	for _, d := range Domains {
		if strings.Contains(name, d.Name) {
			return d, true
		}
	}
	return Domain{}, false
}

func containsAny(name string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(name, h) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
