// Package extract proposes a variable schema for freeform prompt text.
//
// Propose runs an ordered pipeline of pure steps over the text (placeholder
// normalization, label and phrase substitutions, prose cues), infers a type
// for every new variable and diffs the result against the caller's existing
// schema. Existing variables are never dropped: unreferenced ones are only
// reported.
package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/teranos/promptvars/infer"
	"github.com/teranos/promptvars/placeholder"
	"github.com/teranos/promptvars/types"
)

// NoChangesNote is the only note of a proposal that found nothing new
const NoChangesNote = "No new variables detected; existing schema preserved."

// Proposal is the reviewable result of one extraction
type Proposal struct {
	NormalizedTemplate    string           `json:"normalizedTemplate"`
	DetectedNames         []string         `json:"detectedNames"`
	AddedVariables        []types.Variable `json:"addedVariables"`
	ReferencedVariables   []types.Variable `json:"referencedVariables"`
	UnreferencedVariables []types.Variable `json:"unreferencedVariables"`
	Variables             []types.Variable `json:"variables"` // full proposed schema
	InferenceNotes        []string         `json:"inferenceNotes"`
}

// Pipeline is an ordered list of steps
type Pipeline []Step

// DefaultPipeline returns the standard extraction steps in order
func DefaultPipeline() Pipeline {
	return Pipeline{
		NormalizeStep(),
		LabelStep("Output format", "output_format"),
		LabelStep("Risk profile", "risk_profile"),
		LabelStep("Tone", "tone"),
		LabelStep("Audience", "audience"),
		LabelStep("Format", "format", "output"),
		LabelStep("Length", "length"),
		LabelStep("Language", "language"),
		EmailStep(),
		AudienceStep(),
		MaxBulletsStep(),
		CueStep("context", regexp.MustCompile(`(?i)\b(context|background)\b`)),
		CueStep("notes", regexp.MustCompile(`(?i)\bnotes\b`)),
		CueStep("cta", regexp.MustCompile(`(?i)\b(call[ -]to[ -]action|cta)\b`)),
		CueStep("customer_message", regexp.MustCompile(`(?i)\bcustomer(?:'s)?[ \t]+(message|email|reply|complaint|ticket)\b`)),
		CueStep("diff", regexp.MustCompile(`(?i)\b(diff|pull request|code changes)\b`)),
		CueStep("source_text", regexp.MustCompile(`(?i)\b(the following text|source text|pasted text)\b`)),
	}
}

var defaultPipeline = DefaultPipeline()

// Propose runs the default pipeline over template
func Propose(template string, existing []types.Variable) Proposal {
	return defaultPipeline.Propose(template, existing)
}

// Run applies every step in order and returns the final text with all
// findings. A name counts as present once it is declared in existing,
// referenced in the text, or suggested by an earlier step.
func (p Pipeline) Run(text string, existing []types.Variable) (string, []Finding) {
	declared := make(map[string]bool, len(existing))
	for _, v := range existing {
		declared[v.Name] = true
	}
	suggested := make(map[string]bool)

	var findings []Finding
	for _, step := range p {
		referenced := placeholder.Names(text)
		present := func(name string) bool {
			return declared[name] || suggested[name] || slices.Contains(referenced, name)
		}

		var found []Finding
		text, found = step.Apply(text, present)
		for _, f := range found {
			if f.Additive {
				suggested[f.Name] = true
			}
		}
		findings = append(findings, found...)
	}
	return text, findings
}

// Propose runs the pipeline and builds the proposal
func (p Pipeline) Propose(template string, existing []types.Variable) Proposal {
	text, findings := p.Run(template, existing)

	byName := make(map[string]types.Variable, len(existing))
	for _, v := range existing {
		byName[v.Name] = v
	}
	captured := make(map[string]any)
	for _, f := range findings {
		if f.Default != nil && !f.Additive {
			captured[f.Name] = f.Default
		}
	}

	proposal := Proposal{
		NormalizedTemplate:    text,
		DetectedNames:         placeholder.Names(text),
		AddedVariables:        []types.Variable{},
		ReferencedVariables:   []types.Variable{},
		UnreferencedVariables: []types.Variable{},
		Variables:             []types.Variable{},
		InferenceNotes:        []string{},
	}
	if proposal.DetectedNames == nil {
		proposal.DetectedNames = []string{}
	}

	var notes []string
	for _, f := range findings {
		if !f.Additive {
			notes = append(notes, f.Note)
		}
	}

	for _, name := range proposal.DetectedNames {
		if v, ok := byName[name]; ok {
			proposal.ReferencedVariables = append(proposal.ReferencedVariables, v.Clone())
			continue
		}
		inference := infer.Infer(name)
		v := inference.Variable(name)
		if literal, ok := captured[name]; ok {
			applyCapturedDefault(&v, literal)
		}
		proposal.ReferencedVariables = append(proposal.ReferencedVariables, v)
		proposal.AddedVariables = append(proposal.AddedVariables, v)
		notes = append(notes, describe(v))
	}

	for _, v := range existing {
		if slices.Contains(proposal.DetectedNames, v.Name) {
			continue
		}
		proposal.UnreferencedVariables = append(proposal.UnreferencedVariables, v.Clone())
	}

	var suggestions []types.Variable
	for _, f := range findings {
		if !f.Additive {
			continue
		}
		v := infer.Infer(f.Name).Variable(f.Name)
		// Suggested variables carry pasted prose and are not referenced yet
		if v.Type == types.TypeString {
			v.Type = types.TypeText
		}
		v.Required = false
		suggestions = append(suggestions, v)
		proposal.AddedVariables = append(proposal.AddedVariables, v)
		notes = append(notes, f.Note)
	}

	proposal.Variables = append(proposal.Variables, types.CloneVariables(proposal.ReferencedVariables)...)
	proposal.Variables = append(proposal.Variables, types.CloneVariables(proposal.UnreferencedVariables)...)
	proposal.Variables = append(proposal.Variables, types.CloneVariables(suggestions)...)

	if len(notes) == 0 {
		notes = append(notes, NoChangesNote)
	}
	for _, v := range proposal.UnreferencedVariables {
		notes = append(notes, fmt.Sprintf("Kept %s although the template no longer references it.", v.Name))
	}
	proposal.InferenceNotes = notes

	return proposal
}

// applyCapturedDefault makes the literal a substitution replaced the
// variable's default. For enums the literal is matched against the options
// case-insensitively and appended when no option matches.
func applyCapturedDefault(v *types.Variable, literal any) {
	s := types.FormatValue(literal)
	if v.Type != types.TypeEnum {
		v.DefaultValue = s
		return
	}
	for _, opt := range v.Options {
		if strings.EqualFold(opt, s) {
			v.DefaultValue = opt
			return
		}
	}
	v.Options = append(v.Options, s)
	v.DefaultValue = s
}

func describe(v types.Variable) string {
	switch v.Type {
	case types.TypeEnum:
		return fmt.Sprintf("Inferred %s as enum (%s), default %q.", v.Name, strings.Join(v.Options, ", "), types.FormatValue(v.DefaultValue))
	case types.TypeString:
		return fmt.Sprintf("Inferred %s as a required string.", v.Name)
	default:
		return fmt.Sprintf("Inferred %s as %s, default %q.", v.Name, v.Type, types.FormatValue(v.DefaultValue))
	}
}
