package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Show and change promptvars configuration",
	Long: `am - Show and change promptvars configuration ("I am")

Configuration sources (later overrides earlier):
1. Built-in defaults
2. System config (/etc/promptvars/config.toml)
3. User config (~/.promptvars/config.toml)
4. Project config (promptvars.toml, searched up from the working directory)
5. Environment variables (PROMPTVARS_* prefix, DATABASE_URL)
6. The --storage flag

Examples:
  promptvars am show                       # Effective configuration as TOML
  promptvars am where                      # Which source set every key
  promptvars am set storage.kind redis     # Write to the user config
  promptvars am set log.level debug --project`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where every setting comes from",
	Args:  cobra.NoArgs,
	RunE:  runAmWhere,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to a config file",
	Long: `Write a dotted key to the user config (default) or the project config
(--project). The previous file is kept as a rotating .back1-3 backup.
Values "true", "false" and integers are stored typed.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amSetProject bool

func init() {
	amSetCmd.Flags().BoolVar(&amSetProject, "project", false, "Write to ./"+am.ProjectConfigName+" instead of the user config")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amSetCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := am.Encode(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("# promptvars configuration\n%s", out)
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")
	fmt.Println("  2. [SYSTEM]   " + am.SystemConfigPath)
	fmt.Println("  3. [USER]     " + am.UserConfigPath())
	fmt.Println("  4. [PROJECT]  ./" + am.ProjectConfigName + " (searches up directories)")
	fmt.Println("  5. [ENV]      PROMPTVARS_* environment variables")
	fmt.Println()

	data := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range am.Introspect() {
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := am.UserConfigPath()
	if amSetProject {
		path = am.ProjectConfigName
	}
	if path == "" {
		return errors.New("cannot determine the user config path; use --project")
	}

	if err := am.SetValue(path, args[0], parseScalar(args[1])); err != nil {
		return err
	}
	am.Reset()
	if _, err := loadConfig(); err != nil {
		pterm.Warning.Printf("Saved, but the configuration is now invalid: %v\n", err)
		return nil
	}
	pterm.Success.Printf("Set %s in %s\n", args[0], path)
	return nil
}

// parseScalar keeps booleans and integers typed in TOML
func parseScalar(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
