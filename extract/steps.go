package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/teranos/promptvars/placeholder"
)

// Finding is something a step discovered. A finding with Additive set
// suggests a variable without touching the text.
type Finding struct {
	Name     string
	Default  any // captured literal, nil when the step captured none
	Note     string
	Additive bool
}

// Present reports whether a variable name is already known, either
// referenced in the text so far or declared by the caller.
type Present func(name string) bool

// Step is one pure text transformation of the pipeline
type Step struct {
	Name  string
	Apply func(text string, present Present) (string, []Finding)
}

// maxLiteralLen bounds how much text a substitution may capture
const maxLiteralLen = 80

// NormalizeStep rewrites all placeholder syntaxes to {{name}}
func NormalizeStep() Step {
	return Step{
		Name: "normalize",
		Apply: func(text string, _ Present) (string, []Finding) {
			out, found := placeholder.Scan(text)
			var findings []Finding
			for _, p := range found {
				if !p.Rewritten() {
					continue
				}
				findings = append(findings, Finding{
					Name: p.Name,
					Note: fmt.Sprintf("Normalized %s to %s.", p.Raw, p.Canonical()),
				})
			}
			return out, findings
		},
	}
}

// LabelStep replaces the value after the first "<label>: value" with
// {{name}}. Matches whose preceding word is in notAfter are ignored, so
// "Output format:" is not taken for "Format:".
func LabelStep(label, name string, notAfter ...string) Step {
	words := strings.Fields(label)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	pattern := regexp.MustCompile(`(?i)\b` + strings.Join(words, `[ \t]+`) + `[ \t]*:[ \t]*([^\n.;,]+)`)

	return Step{
		Name: "label:" + name,
		Apply: func(text string, present Present) (string, []Finding) {
			if present(name) {
				return text, nil
			}
			for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
				if precededBy(text[:m[0]], notAfter) {
					continue
				}
				start, end, literal, ok := trimSpan(text, m[2], m[3])
				if !ok {
					return text, nil
				}
				return splice(text, start, end, name), []Finding{{
					Name:    name,
					Default: literal,
					Note:    fmt.Sprintf("Replaced %q after %q with {{%s}}.", literal, label+":", name),
				}}
			}
			return text, nil
		},
	}
}

var emailPattern = regexp.MustCompile(`(?i)\bwrite[ \t]+(?:an?[ \t]+)?(?:[a-z]+[ \t]+)?e-?mail[ \t]+to[ \t]+([^\n]+?)[ \t]+about[ \t]+([^\n]+?)[ \t]*(?:[.;!?\n]|$)`)

// EmailStep turns "write an email to X about Y" into
// "write an email to {{recipient_name}} about {{topic}}"
func EmailStep() Step {
	return Step{
		Name: "email",
		Apply: func(text string, present Present) (string, []Finding) {
			m := emailPattern.FindStringSubmatchIndex(text)
			if m == nil {
				return text, nil
			}

			var findings []Finding
			// Topic first so the recipient's offsets stay valid
			spans := []struct {
				name, what string
				lo, hi     int
			}{
				{"topic", "topic", m[4], m[5]},
				{"recipient_name", "recipient", m[2], m[3]},
			}
			for _, s := range spans {
				if present(s.name) {
					continue
				}
				start, end, literal, ok := trimSpan(text, s.lo, s.hi)
				if !ok {
					continue
				}
				text = splice(text, start, end, s.name)
				findings = append([]Finding{{
					Name:    s.name,
					Default: literal,
					Note:    fmt.Sprintf("Detected %s %q in an email request and replaced it with {{%s}}.", s.what, literal, s.name),
				}}, findings...)
			}
			return text, findings
		},
	}
}

var audienceWords = []string{
	"a general audience", "general readers", "non-technical readers", "technical readers",
	"executives", "executive", "leadership", "stakeholders", "managers",
	"engineers", "developers", "beginners", "students", "customers",
}

var audiencePattern = regexp.MustCompile(`(?i)\bfor[ \t]+(?:(?:an?|the|our|my)[ \t]+)?(` + strings.Join(quoteAll(audienceWords), "|") + `)\b`)

// AudienceStep turns "for executives" into "for {{audience}}"
func AudienceStep() Step {
	return Step{
		Name: "audience",
		Apply: func(text string, present Present) (string, []Finding) {
			if present("audience") {
				return text, nil
			}
			m := audiencePattern.FindStringSubmatchIndex(text)
			if m == nil {
				return text, nil
			}
			literal := text[m[2]:m[3]]
			return splice(text, m[2], m[3], "audience"), []Finding{{
				Name:    "audience",
				Default: literal,
				Note:    fmt.Sprintf("Detected audience %q and replaced it with {{audience}}.", literal),
			}}
		},
	}
}

var maxBulletsPattern = regexp.MustCompile(`(?i)\bmax(?:imum)?[ \t]+bullets[ \t]*:[ \t]*(\d+)`)

// MaxBulletsStep turns "max bullets: 5" into "max bullets: {{max_bullets}}"
func MaxBulletsStep() Step {
	return Step{
		Name: "max_bullets",
		Apply: func(text string, present Present) (string, []Finding) {
			if present("max_bullets") {
				return text, nil
			}
			m := maxBulletsPattern.FindStringSubmatchIndex(text)
			if m == nil {
				return text, nil
			}
			literal := text[m[2]:m[3]]
			return splice(text, m[2], m[3], "max_bullets"), []Finding{{
				Name:    "max_bullets",
				Default: literal,
				Note:    fmt.Sprintf("Detected bullet limit %s and replaced it with {{max_bullets}}.", literal),
			}}
		},
	}
}

// CueStep suggests name when the prose (placeholders excluded) matches
// pattern. The text is returned unchanged.
func CueStep(name string, pattern *regexp.Regexp) Step {
	return Step{
		Name: "cue:" + name,
		Apply: func(text string, present Present) (string, []Finding) {
			if present(name) {
				return text, nil
			}
			cue := pattern.FindString(placeholder.Strip(text))
			if cue == "" {
				return text, nil
			}
			return text, []Finding{{
				Name:     name,
				Additive: true,
				Note:     fmt.Sprintf("Suggested {{%s}} because the text mentions %q; the template text was not changed.", name, cue),
			}}
		},
	}
}

// trimSpan trims blanks from text[lo:hi] and rejects spans that are empty,
// too long or already contain braces.
func trimSpan(text string, lo, hi int) (start, end int, literal string, ok bool) {
	raw := text[lo:hi]
	literal = strings.TrimSpace(raw)
	if literal == "" || len(literal) > maxLiteralLen || strings.ContainsAny(literal, "{}") {
		return 0, 0, "", false
	}
	start = lo + strings.Index(raw, literal)
	return start, start + len(literal), literal, true
}

func splice(text string, start, end int, name string) string {
	return text[:start] + "{{" + name + "}}" + text[end:]
}

// precededBy reports whether the last word of prefix is one of words
func precededBy(prefix string, words []string) bool {
	fields := strings.Fields(prefix)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(fields[len(fields)-1])
	for _, w := range words {
		if last == w {
			return true
		}
	}
	return false
}

func quoteAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `[ \t]+`)
	}
	return out
}
