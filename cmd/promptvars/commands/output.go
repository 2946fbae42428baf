package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/types"
)

// jsonOutput switches commands from tables to indented JSON
var jsonOutput bool

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	fmt.Println(string(data))
	return nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func printVariables(vars []types.Variable) error {
	if len(vars) == 0 {
		pterm.Info.Println("No variables")
		return nil
	}
	data := pterm.TableData{{"Name", "Type", "Required", "Default", "Options"}}
	for _, v := range vars {
		data = append(data, []string{
			v.Name,
			string(v.Type),
			strconv.FormatBool(v.Required),
			types.FormatValue(v.DefaultValue),
			strings.Join(v.Options, ", "),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printTemplates(templates []*types.Template) error {
	if len(templates) == 0 {
		pterm.Info.Println("No templates")
		return nil
	}
	data := pterm.TableData{{"ID", "Name", "Variables", "Created", "Updated"}}
	for _, t := range templates {
		data = append(data, []string{
			t.ID,
			t.Name,
			strconv.Itoa(len(t.Variables)),
			formatTime(t.CreatedAt),
			formatOptionalTime(t.UpdatedAt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printTemplate(t *types.Template) error {
	pterm.DefaultSection.Println(fmt.Sprintf("%s (%s)", t.Name, t.ID))
	pterm.Printf("Created: %s   Updated: %s\n\n", formatTime(t.CreatedAt), formatOptionalTime(t.UpdatedAt))
	pterm.Println(t.Template)
	pterm.Println()
	return printVariables(t.Variables)
}
