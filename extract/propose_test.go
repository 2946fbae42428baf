package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/promptvars/render"
	"github.com/teranos/promptvars/types"
)

func names(vars []types.Variable) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name)
	}
	return out
}

func TestPropose_CanonicalInput(t *testing.T) {
	p := Propose("Summarize {{source_notes}} for {{audience}} in {{format}} with {{length}} length.", nil)

	assert.Equal(t, []string{"source_notes", "audience", "format", "length"}, p.DetectedNames)
	require.Len(t, p.AddedVariables, 4)

	byName := map[string]types.Variable{}
	for _, v := range p.AddedVariables {
		byName[v.Name] = v
	}
	assert.Equal(t, types.TypeString, byName["source_notes"].Type)
	assert.True(t, byName["source_notes"].Required)
	assert.Equal(t, types.TypeEnum, byName["audience"].Type)
	assert.Equal(t, types.TypeEnum, byName["format"].Type)
	assert.Equal(t, types.TypeEnum, byName["length"].Type)
	assert.Empty(t, p.UnreferencedVariables)
}

func TestPropose_FixedPoint(t *testing.T) {
	inputs := []string{
		"Rewrite {input_text} in a [tone] style.",
		"Please write an email to Alex about the Q3 launch. Tone: friendly",
		"Explain the diff for executives.\nMax bullets: 3\nOutput format: JSON",
		"Use the background notes below.",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first := Propose(in, nil)
			second := Propose(first.NormalizedTemplate, first.Variables)

			assert.Empty(t, second.AddedVariables, "second pass must not add variables")
			assert.Equal(t, first.NormalizedTemplate, second.NormalizedTemplate)
			if diff := cmp.Diff(first.Variables, second.Variables); diff != "" {
				t.Errorf("schema changed on second pass (-first +second):\n%s", diff)
			}
			assert.Equal(t, NoChangesNote, second.InferenceNotes[0])
		})
	}
}

func TestPropose_Normalizes(t *testing.T) {
	p := Propose("Rewrite {input_text} in a [tone] style.", nil)

	assert.Equal(t, "Rewrite {{input_text}} in a {{tone}} style.", p.NormalizedTemplate)
	assert.Equal(t, []string{"input_text", "tone"}, names(p.AddedVariables))
	assert.Contains(t, p.InferenceNotes, "Normalized {input_text} to {{input_text}}.")
	assert.Contains(t, p.InferenceNotes, "Normalized [tone] to {{tone}}.")
}

func TestPropose_Labels(t *testing.T) {
	p := Propose("Write a summary.\nTone: Friendly\nFormat: bullets\nOutput format: JSON", nil)

	assert.Equal(t, "Write a summary.\nTone: {{tone}}\nFormat: {{format}}\nOutput format: {{output_format}}", p.NormalizedTemplate)
	assert.Equal(t, []string{"tone", "format", "output_format"}, p.DetectedNames)

	byName := map[string]types.Variable{}
	for _, v := range p.Variables {
		byName[v.Name] = v
	}
	assert.Equal(t, "friendly", byName["tone"].DefaultValue)
	assert.Equal(t, "bullets", byName["format"].DefaultValue)
	assert.Equal(t, "json", byName["output_format"].DefaultValue)
	for _, v := range p.Variables {
		assert.NoError(t, v.Validate())
	}
}

func TestPropose_LabelLiteralOutsideOptions(t *testing.T) {
	p := Propose("Tone: warm and upbeat.", nil)

	require.Len(t, p.AddedVariables, 1)
	tone := p.AddedVariables[0]
	assert.Equal(t, "warm and upbeat", tone.DefaultValue)
	assert.Equal(t, []string{"concise", "friendly", "direct", "formal", "warm and upbeat"}, tone.Options)
	assert.NoError(t, tone.Validate())
}

func TestPropose_LabelValueStopsAtComma(t *testing.T) {
	p := Propose("Tone: friendly, audience: devs. Write an email to Bob about stuff for executives.", nil)

	assert.Equal(t, "Tone: {{tone}}, audience: {{audience}}. Write an email to {{recipient_name}} about {{topic}}.", p.NormalizedTemplate)
	defaults := map[string]any{}
	for _, v := range p.Variables {
		defaults[v.Name] = v.DefaultValue
	}
	assert.Equal(t, "friendly", defaults["tone"])
	assert.Equal(t, "devs", defaults["audience"])
}

func TestPropose_LabelSkippedWhenPresent(t *testing.T) {
	existing := []types.Variable{{Name: "output_format", Type: types.TypeString, Required: true, DefaultValue: ""}}
	p := Propose("Output format: json", existing)

	assert.Equal(t, "Output format: json", p.NormalizedTemplate, "Format: must not fire inside Output format:")
	assert.Empty(t, p.AddedVariables)
	assert.Equal(t, NoChangesNote, p.InferenceNotes[0])
}

func TestPropose_LabelSpanWithBracesSkipped(t *testing.T) {
	p := Propose("Format: {{style}} bullets", nil)

	assert.Equal(t, "Format: {{style}} bullets", p.NormalizedTemplate)
	assert.Equal(t, []string{"style"}, p.DetectedNames)
}

func TestPropose_Email(t *testing.T) {
	p := Propose("Please write an email to Alex about the Q3 launch.", nil)

	assert.Equal(t, "Please write an email to {{recipient_name}} about {{topic}}.", p.NormalizedTemplate)
	require.Equal(t, []string{"recipient_name", "topic"}, names(p.AddedVariables))
	assert.Equal(t, "Alex", p.AddedVariables[0].DefaultValue)
	assert.Equal(t, "the Q3 launch", p.AddedVariables[1].DefaultValue)
}

func TestPropose_EmailWithKnownRecipient(t *testing.T) {
	p := Propose("Write an email to {{recipient_name}} about pricing changes", nil)

	assert.Equal(t, "Write an email to {{recipient_name}} about {{topic}}", p.NormalizedTemplate)
	assert.Equal(t, []string{"recipient_name", "topic"}, p.DetectedNames)
}

func TestPropose_AudienceAndBullets(t *testing.T) {
	p := Propose("Explain the rollout for executives.\nMax bullets: 3", nil)

	assert.Equal(t, "Explain the rollout for {{audience}}.\nMax bullets: {{max_bullets}}", p.NormalizedTemplate)

	byName := map[string]types.Variable{}
	for _, v := range p.Variables {
		byName[v.Name] = v
	}
	assert.Equal(t, "executives", byName["audience"].DefaultValue)
	assert.Contains(t, byName["audience"].Options, "executives")
	assert.Equal(t, types.TypeNumber, byName["max_bullets"].Type)
	assert.Equal(t, "3", byName["max_bullets"].DefaultValue)
}

func TestPropose_DefaultsReproduceOriginal(t *testing.T) {
	original := "Please write an email to Alex about the Q3 launch.\nTone: friendly\nMax bullets: 4"
	p := Propose(original, nil)

	result := render.Render(p.NormalizedTemplate, p.Variables, nil)
	assert.Equal(t, original, result.Rendered)
	assert.Empty(t, result.MissingRequired)
}

func TestPropose_Cues(t *testing.T) {
	p := Propose("Use the background and notes below to draft a reply to the customer's complaint.", nil)

	assert.Equal(t, "Use the background and notes below to draft a reply to the customer's complaint.", p.NormalizedTemplate)
	assert.Empty(t, p.DetectedNames)
	assert.Empty(t, p.ReferencedVariables)
	assert.Equal(t, []string{"context", "notes", "customer_message"}, names(p.AddedVariables))
	for _, v := range p.AddedVariables {
		assert.Equal(t, types.TypeText, v.Type, v.Name)
		assert.False(t, v.Required, v.Name)
	}
}

func TestPropose_CueIgnoresPlaceholderNames(t *testing.T) {
	p := Propose("Summarize {{source_notes}}.", nil)
	assert.Equal(t, []string{"source_notes"}, names(p.AddedVariables))
}

func TestPropose_PreservesExisting(t *testing.T) {
	existing := []types.Variable{
		{Name: "topic", Type: types.TypeText, Required: false, DefaultValue: "pricing"},
		{Name: "legacy", Type: types.TypeString, Required: true, DefaultValue: ""},
	}
	p := Propose("Write about {{topic}} for {{name}}", existing)

	assert.Equal(t, []string{"name"}, names(p.AddedVariables))
	assert.Equal(t, []string{"topic", "name"}, names(p.ReferencedVariables))
	assert.Equal(t, existing[0], p.ReferencedVariables[0], "user-chosen definition is reused")
	assert.Equal(t, []string{"legacy"}, names(p.UnreferencedVariables))
	assert.Equal(t, []string{"topic", "name", "legacy"}, names(p.Variables))
	assert.Contains(t, p.InferenceNotes, "Kept legacy although the template no longer references it.")
}

func TestPropose_NothingNew(t *testing.T) {
	p := Propose("Just a plain instruction.", nil)

	assert.Equal(t, []string{NoChangesNote}, p.InferenceNotes)
	assert.NotNil(t, p.DetectedNames)
	assert.NotNil(t, p.AddedVariables)
	assert.NotNil(t, p.Variables)
}

func TestProposalDoesNotAliasExisting(t *testing.T) {
	existing := []types.Variable{{Name: "tone", Type: types.TypeEnum, DefaultValue: "concise", Options: []string{"concise"}}}
	p := Propose("{{tone}}", existing)

	p.Variables[0].Options[0] = "mutated"
	assert.Equal(t, "concise", existing[0].Options[0])
}

func TestLabelStep_Standalone(t *testing.T) {
	step := LabelStep("Risk profile", "risk_profile")
	absent := func(string) bool { return false }

	out, findings := step.Apply("Risk   profile : aggressive;", absent)
	assert.Equal(t, "Risk   profile : {{risk_profile}};", out)
	require.Len(t, findings, 1)
	assert.Equal(t, "aggressive", findings[0].Default)

	out, findings = step.Apply("Risk profile: aggressive", func(string) bool { return true })
	assert.Equal(t, "Risk profile: aggressive", out)
	assert.Empty(t, findings)
}

func TestPipeline_Custom(t *testing.T) {
	p := Pipeline{NormalizeStep()}.Propose("Tone: friendly for [who]", nil)
	assert.Equal(t, "Tone: friendly for {{who}}", p.NormalizedTemplate)
	assert.Equal(t, []string{"who"}, p.DetectedNames)
}
