package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/store"
)

// VersionCmd groups the version history commands
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "List and restore template versions",
	Long: `Every save appends an immutable version. Restoring copies an old version's
content into a new version; history is never rewritten.

Examples:
  promptvars version list brief
  promptvars version restore brief 1f0c...`,
}

var versionListCmd = &cobra.Command{
	Use:     "list <template-id>",
	Aliases: []string{"ls"},
	Short:   "List versions, newest first",
	Args:    cobra.ExactArgs(1),
	RunE:    runVersionList,
}

var versionRestoreCmd = &cobra.Command{
	Use:   "restore <template-id> <version-id>",
	Short: "Save an earlier version as the newest version",
	Args:  cobra.ExactArgs(2),
	RunE:  runVersionRestore,
}

var versionLimit int

func init() {
	versionListCmd.Flags().IntVar(&versionLimit, "limit", store.DefaultVersionsLimit, "Maximum versions")
	versionListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	versionRestoreCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	VersionCmd.AddCommand(versionListCmd)
	VersionCmd.AddCommand(versionRestoreCmd)
}

func runVersionList(cmd *cobra.Command, args []string) error {
	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	versions, err := h.Store.ListVersions(cmd.Context(), args[0], versionLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(versions)
	}
	if len(versions) == 0 {
		pterm.Info.Printf("No versions of %s\n", args[0])
		return nil
	}

	data := pterm.TableData{{"#", "Version ID", "Name", "Variables", "Snapshot"}}
	for _, v := range versions {
		data = append(data, []string{
			strconv.Itoa(v.VersionNumber),
			v.VersionID,
			v.Name,
			strconv.Itoa(len(v.Variables)),
			formatTime(v.SnapshotAt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runVersionRestore(cmd *cobra.Command, args []string) error {
	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	t, found, err := h.Store.RestoreVersion(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if !found {
		return errors.NewNotFoundError("version %s of template %s not found", args[1], args[0])
	}
	if jsonOutput {
		return printJSON(t)
	}
	pterm.Success.Printf("Restored %s from version %s\n", t.ID, args[1])
	return nil
}
