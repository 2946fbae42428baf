package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/render"
	"github.com/teranos/promptvars/schema"
	"github.com/teranos/promptvars/types"
)

// RenderCmd fills a template with values
var RenderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Fill a template with values",
	Long: `Substitute values into {{name}} placeholders. Missing values fall back to
the variable default; required variables that stay empty are reported and
their placeholders are left in place.

The template comes from the store (--id) or from the file argument / stdin
together with --vars.

Examples:
  promptvars render --id brief --set topic="Q3 results"
  promptvars render prompt.txt --vars vars.json --values values.yaml
  promptvars render --id brief --strict --check`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var (
	renderID         string
	renderVarsFile   string
	renderValuesFile string
	renderSet        []string
	renderStrict     bool
	renderCheck      bool
)

func init() {
	RenderCmd.Flags().StringVar(&renderID, "id", "", "Render a stored template")
	RenderCmd.Flags().StringVar(&renderVarsFile, "vars", "", "JSON or YAML file with the variable list")
	RenderCmd.Flags().StringVar(&renderValuesFile, "values", "", "JSON or YAML file with values")
	RenderCmd.Flags().StringArrayVar(&renderSet, "set", nil, "Value as key=value (repeatable)")
	RenderCmd.Flags().BoolVar(&renderStrict, "strict", false, "Fail when required variables are missing")
	RenderCmd.Flags().BoolVar(&renderCheck, "check", false, "Validate values against the variable types first")
	RenderCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
}

func runRender(cmd *cobra.Command, args []string) error {
	values, err := readValues(renderValuesFile, renderSet)
	if err != nil {
		return err
	}

	var (
		text string
		vars []types.Variable
	)
	if renderID != "" {
		h, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		t, found, err := h.Store.Get(cmd.Context(), renderID)
		if err != nil {
			return err
		}
		if !found {
			return errors.NewNotFoundError("template %s not found", renderID)
		}
		text, vars = t.Template, t.Variables
	} else {
		if text, err = readText(args); err != nil {
			return err
		}
		if vars, err = readVariables(renderVarsFile); err != nil {
			return err
		}
	}

	if renderCheck {
		res, err := schema.Validate(vars, values)
		if err != nil {
			return err
		}
		if !res.Valid {
			for _, e := range res.Errors {
				pterm.Error.WithWriter(os.Stderr).Printf("%s: %s\n", e.Field, e.Message)
			}
			return errors.NewInvalidRequestError("%d value(s) failed validation", len(res.Errors))
		}
	}

	result := render.Render(text, vars, values)
	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		fmt.Println(result.Rendered)
	}

	if len(result.MissingRequired) > 0 {
		pterm.Warning.WithWriter(os.Stderr).Printf("Missing required variables: %v\n", result.MissingRequired)
		if renderStrict {
			return errors.NewInvalidRequestError("%d required variable(s) missing", len(result.MissingRequired))
		}
	}
	return nil
}
