// Package placeholder finds template placeholders written in any of four
// bracket syntaxes and rewrites them to the canonical {{name}} form.
//
// Recognized syntaxes, in precedence order:
//   - {{ name }}  (already canonical, only re-spelled)
//   - [name]
//   - <name>
//   - {name}
//
// Candidate names may be padded with blanks, start with a letter (or a digit
// inside double braces), continue with letters, digits, spaces, '_', '-' or
// '.', and are at most 64 characters long. Anything else, including a name
// that canonicalizes to the empty string or a single-brace body that starts
// with a statement keyword such as return, is left untouched as literal text.
package placeholder

import (
	"regexp"
	"strings"
)

// Syntax identifies which bracket form a placeholder was written in
type Syntax string

const (
	DoubleBrace Syntax = "{{name}}"
	Square      Syntax = "[name]"
	Angle       Syntax = "<name>"
	SingleBrace Syntax = "{name}"
)

// Placeholder is one recognized span of the input
type Placeholder struct {
	Raw    string // original text of the span
	Name   string // canonical name
	Syntax Syntax
}

// Canonical returns the {{name}} spelling of p
func (p Placeholder) Canonical() string {
	return "{{" + p.Name + "}}"
}

// Rewritten reports whether normalization changed the span's text
func (p Placeholder) Rewritten() bool {
	return p.Raw != p.Canonical()
}

const nameClass = `[A-Za-z0-9 _.\-]{0,63}`

// scanner alternation order is the precedence order. At any position the
// first alternative that matches wins, and matched spans are never rescanned.
var scanner = regexp.MustCompile(
	`\{\{\s*([A-Za-z0-9]` + nameClass + `?)\s*\}\}` +
		`|\[[ \t]*([A-Za-z]` + nameClass + `)\](\()?` +
		`|<[ \t]*([A-Za-z]` + nameClass + `)>` +
		`|\{[ \t]*([A-Za-z]` + nameClass + `)\}`)

// doubleBrace matches only canonical-form placeholders, tolerating case and
// inner whitespace.
var doubleBrace = regexp.MustCompile(`\{\{\s*([A-Za-z0-9]` + nameClass + `?)\s*\}\}`)

// codeKeywords start statements in common languages. A single-brace body
// beginning with one is a code block, not a placeholder.
var codeKeywords = map[string]bool{
	"return": true, "break": true, "continue": true, "else": true, "throw": true,
	"yield": true, "pass": true, "goto": true, "await": true, "raise": true,
	"true": true, "false": true, "null": true, "nil": true, "undefined": true,
}

func codeBody(candidate string) bool {
	fields := strings.Fields(candidate)
	return len(fields) > 0 && codeKeywords[strings.ToLower(fields[0])]
}

// CanonicalName lowercases raw, collapses every run of characters outside
// [a-z0-9] into one underscore and trims underscores from both ends.
// ok is false when nothing remains.
func CanonicalName(raw string) (name string, ok bool) {
	var b strings.Builder
	b.Grow(len(raw))
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	name = b.String()
	return name, name != ""
}

// Scan rewrites every recognized placeholder to {{name}} in a single
// left-to-right pass and reports the placeholders it found, in order.
func Scan(text string) (string, []Placeholder) {
	var found []Placeholder
	var out strings.Builder
	out.Grow(len(text))

	last := 0
	for _, m := range scanner.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		out.WriteString(text[last:start])
		last = end

		raw := text[start:end]
		var candidate string
		var syntax Syntax
		switch {
		case m[2] >= 0:
			candidate, syntax = text[m[2]:m[3]], DoubleBrace
		case m[4] >= 0:
			if m[6] >= 0 {
				// [text](url) is a markdown link, not a placeholder
				out.WriteString(raw)
				continue
			}
			candidate, syntax = text[m[4]:m[5]], Square
		case m[8] >= 0:
			candidate, syntax = text[m[8]:m[9]], Angle
		default:
			candidate, syntax = text[m[10]:m[11]], SingleBrace
			if codeBody(candidate) {
				out.WriteString(raw)
				continue
			}
		}

		name, ok := CanonicalName(candidate)
		if !ok {
			out.WriteString(raw)
			continue
		}
		p := Placeholder{Raw: raw, Name: name, Syntax: syntax}
		found = append(found, p)
		out.WriteString(p.Canonical())
	}
	out.WriteString(text[last:])

	return out.String(), found
}

// Normalize rewrites every recognized placeholder in text to {{name}}.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	out, _ := Scan(text)
	return out
}

// Names returns the distinct canonical names of the {{name}} placeholders in
// text, in order of first appearance. Other bracket syntaxes are ignored.
func Names(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range doubleBrace.FindAllStringSubmatch(text, -1) {
		name, ok := CanonicalName(m[1])
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Replace calls fn for every {{name}} placeholder in text, in a single pass.
// fn receives the canonical name and returns the replacement; returning
// false keeps the placeholder exactly as written.
func Replace(text string, fn func(name string) (string, bool)) string {
	return doubleBrace.ReplaceAllStringFunc(text, func(raw string) string {
		m := doubleBrace.FindStringSubmatch(raw)
		name, ok := CanonicalName(m[1])
		if !ok {
			return raw
		}
		if value, ok := fn(name); ok {
			return value
		}
		return raw
	})
}

// Strip removes every {{name}} placeholder from text
func Strip(text string) string {
	return doubleBrace.ReplaceAllString(text, " ")
}
