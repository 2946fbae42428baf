package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/extract"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/types"
)

// TemplateCmd groups the template store commands
var TemplateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"t"},
	Short:   "Save, list, get, update, delete and search templates",
	Long: `Manage stored templates. Every save and update appends a version; see
"promptvars version".

Examples:
  promptvars template save brief prompt.txt --name "Weekly brief" --extract
  promptvars template list
  promptvars template get brief
  promptvars template update brief --name "Daily brief"
  promptvars template search email --limit 5
  promptvars template delete brief`,
}

var templateSaveCmd = &cobra.Command{
	Use:   "save <id> [file]",
	Short: "Create or replace a template",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTemplateSave,
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List templates, oldest first",
	Args:    cobra.NoArgs,
	RunE:    runTemplateList,
}

var templateGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateGet,
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a template; omitted fields are kept",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateUpdate,
}

var templateDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a template and its version history",
	Args:    cobra.ExactArgs(1),
	RunE:    runTemplateDelete,
}

var templateSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search names, text and variable names",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplateSearch,
}

var (
	templateName     string
	templateVarsFile string
	templateFile     string
	templateExtract  bool
	searchLimit      int
)

func init() {
	templateSaveCmd.Flags().StringVar(&templateName, "name", "", "Display name")
	templateSaveCmd.Flags().StringVar(&templateVarsFile, "vars", "", "JSON or YAML file with the variable list")
	templateSaveCmd.Flags().BoolVar(&templateExtract, "extract", false, "Normalize the text and merge proposed variables")

	templateUpdateCmd.Flags().StringVar(&templateName, "name", "", "New display name")
	templateUpdateCmd.Flags().StringVar(&templateFile, "file", "", "Read new template text from a file")
	templateUpdateCmd.Flags().StringVar(&templateVarsFile, "vars", "", "JSON or YAML file with new variables")

	templateSearchCmd.Flags().IntVar(&searchLimit, "limit", store.DefaultSearchLimit, "Maximum results")

	for _, c := range []*cobra.Command{templateSaveCmd, templateListCmd, templateGetCmd, templateUpdateCmd, templateSearchCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	}

	TemplateCmd.AddCommand(templateSaveCmd)
	TemplateCmd.AddCommand(templateListCmd)
	TemplateCmd.AddCommand(templateGetCmd)
	TemplateCmd.AddCommand(templateUpdateCmd)
	TemplateCmd.AddCommand(templateDeleteCmd)
	TemplateCmd.AddCommand(templateSearchCmd)
}

func runTemplateSave(cmd *cobra.Command, args []string) error {
	text, err := readText(args[1:])
	if err != nil {
		return err
	}
	vars, err := readVariables(templateVarsFile)
	if err != nil {
		return err
	}
	if templateExtract {
		proposal := extract.Propose(text, vars)
		text, vars = proposal.NormalizedTemplate, proposal.Variables
	}

	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	saved, err := h.Store.Save(cmd.Context(), &types.Template{
		ID:        args[0],
		Name:      templateName,
		Template:  text,
		Variables: vars,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(saved)
	}
	pterm.Success.Printf("Saved template %s with %d variable(s)\n", saved.ID, len(saved.Variables))
	return nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	all, err := h.Store.List(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(all)
	}
	return printTemplates(all)
}

func runTemplateGet(cmd *cobra.Command, args []string) error {
	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	t, found, err := h.Store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !found {
		return errors.NewNotFoundError("template %s not found", args[0])
	}
	if jsonOutput {
		return printJSON(t)
	}
	return printTemplate(t)
}

func runTemplateUpdate(cmd *cobra.Command, args []string) error {
	patch := store.Patch{Name: templateName}
	if templateFile != "" {
		text, err := readText([]string{templateFile})
		if err != nil {
			return err
		}
		patch.Template = text
	}
	vars, err := readVariables(templateVarsFile)
	if err != nil {
		return err
	}
	patch.Variables = vars

	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	t, found, err := h.Store.Update(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}
	if !found {
		return errors.NewNotFoundError("template %s not found", args[0])
	}
	if jsonOutput {
		return printJSON(t)
	}
	pterm.Success.Printf("Updated template %s\n", t.ID)
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	deleted, err := h.Store.Delete(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return errors.NewNotFoundError("template %s not found", args[0])
	}
	pterm.Success.Printf("Deleted template %s and its versions\n", args[0])
	return nil
}

func runTemplateSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	matches, err := h.Store.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(matches)
	}
	return printTemplates(matches)
}
