package commands

import (
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/library"
)

// ExportCmd writes every template to a YAML library
var ExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write all templates to a YAML library",
	Long: `Write every stored template (latest state, not history) as YAML to the file
argument or stdout.

Examples:
  promptvars export templates.yaml
  promptvars --storage sqlite export > backup.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

// ImportCmd saves every template of a YAML library
var ImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Save every template of a YAML library",
	Long: `Read a library written by "promptvars export" from the file argument or
stdin and save each template. Existing templates get a new version. An
invalid document is rejected before anything is saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var importDryRun bool

func init() {
	ImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the document without saving")
}

func runExport(cmd *cobra.Command, args []string) error {
	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	var w io.Writer = os.Stdout
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", args[0])
		}
		defer f.Close()
		w = f
	}

	n, err := library.Export(cmd.Context(), h.Store, w)
	if err != nil {
		return err
	}
	if w != os.Stdout {
		pterm.Success.Printf("Exported %d template(s) to %s\n", n, args[0])
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", args[0])
		}
		defer f.Close()
		r = f
	}

	if importDryRun {
		doc, err := library.Decode(r)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Library is valid: %d template(s)\n", len(doc.Templates))
		return nil
	}

	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	n, err := library.Import(cmd.Context(), h.Store, r)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Imported %d template(s)\n", n)
	return nil
}
