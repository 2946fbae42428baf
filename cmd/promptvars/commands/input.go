package commands

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/types"
)

// readText reads the file named by the first argument, or stdin when there
// is none or it is "-"
func readText(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", args[0])
	}
	return string(data), nil
}

// readVariables loads a variable list from a JSON or YAML file.
// An empty path yields nil.
func readVariables(path string) ([]types.Variable, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var vars []types.Variable
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &vars)
	default:
		err = json.Unmarshal(data, &vars)
	}
	if err != nil {
		return nil, errors.NewInvalidRequestError("failed to parse variables in %s: %v", path, err)
	}
	if err := types.ValidateVariables(vars); err != nil {
		return nil, errors.Wrapf(err, "variables in %s", path)
	}
	return vars, nil
}

// readValues merges a JSON or YAML values file with key=value assignments.
// Assignments win over the file.
func readValues(path string, assignments []string) (map[string]any, error) {
	values := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &values)
		default:
			err = json.Unmarshal(data, &values)
		}
		if err != nil {
			return nil, errors.NewInvalidRequestError("failed to parse values in %s: %v", path, err)
		}
	}

	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errors.NewInvalidRequestError("expected key=value, got %q", a)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}
