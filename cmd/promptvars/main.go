package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/cmd/promptvars/commands"
	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/logger"
)

var rootCmd = &cobra.Command{
	Use:   "promptvars",
	Short: "Turn freeform prompts into typed, versioned templates",
	Long: `promptvars - Prompt template extraction, rendering and storage.

promptvars normalizes placeholder syntaxes in freeform prompts, proposes a
typed variable schema, renders templates with values and keeps every saved
template with an append-only version history.

Available commands:
  extract  - Propose variables for a prompt
  render   - Fill a template with values
  template - Save, list, get, update, delete and search templates
  version  - List and restore template versions
  export   - Write all templates to a YAML library
  import   - Save every template of a YAML library
  serve    - Serve the tools over stdio (Model Context Protocol)
  am       - Show and change configuration

Examples:
  promptvars extract prompt.txt              # Propose variables
  promptvars template save brief prompt.txt --extract
  promptvars render --id brief --set topic=Q3
  promptvars version list brief
  promptvars --storage memory serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		configured, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(cfg.Log.JSON, logger.EffectiveLevel(verbosity, configured)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().StringVar(&commands.StorageOverride, "storage", "",
		"Override storage.kind for this run (memory, sqlite, postgres, redis)")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.ExtractCmd)
	rootCmd.AddCommand(commands.RenderCmd)
	rootCmd.AddCommand(commands.TemplateCmd)
	rootCmd.AddCommand(commands.VersionCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.ServeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hints := errors.FlattenHints(err); hints != "" {
			fmt.Fprintln(os.Stderr, "hint:", hints)
		}
		os.Exit(1)
	}
}
