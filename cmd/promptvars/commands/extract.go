package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/extract"
)

// ExtractCmd proposes a variable schema for a prompt
var ExtractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Propose variables for a freeform prompt",
	Long: `Normalize every placeholder syntax ([Name], <name>, {name}, {{ Name }}) to
{{name}}, replace recognizable literals (labels such as "Tone: formal",
email recipients, audiences, bullet limits) with variables and infer a
type for each.

Reads the prompt from the file argument or stdin. Nothing is saved.

Examples:
  promptvars extract prompt.txt
  echo "Write to [Customer Name]" | promptvars extract
  promptvars extract prompt.txt --existing vars.json --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

var extractExisting string

func init() {
	ExtractCmd.Flags().StringVar(&extractExisting, "existing", "", "JSON or YAML file with the current variable list")
	ExtractCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the proposal as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readText(args)
	if err != nil {
		return err
	}
	existing, err := readVariables(extractExisting)
	if err != nil {
		return err
	}

	proposal := extract.Propose(text, existing)
	if jsonOutput {
		return printJSON(proposal)
	}

	pterm.DefaultSection.Println("Normalized template")
	pterm.Println(proposal.NormalizedTemplate)
	pterm.Println()

	pterm.DefaultSection.Println(fmt.Sprintf("Variables (%d new)", len(proposal.AddedVariables)))
	if err := printVariables(proposal.Variables); err != nil {
		return err
	}

	pterm.Println()
	for _, note := range proposal.InferenceNotes {
		pterm.Info.Println(note)
	}
	return nil
}
