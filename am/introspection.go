package am

import (
	"os"
	"sort"
	"strings"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/promptvars/config.toml
	SourceUser        ConfigSource = "user"        // ~/.promptvars/config.toml
	SourceProject     ConfigSource = "project"     // promptvars.toml in a parent directory
	SourceEnvironment ConfigSource = "environment" // PROMPTVARS_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path or environment variable name
}

// ConfigSources maps dotted keys to the file that last set them during the
// most recent load
var ConfigSources map[string]SourceInfo

// SettingInfo is one effective setting with its origin
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// sensitiveEnv lists the extra variables BindSensitiveEnvVars accepts per key
var sensitiveEnv = map[string][]string{
	"storage.postgres.dsn":   {"PROMPTVARS_POSTGRES_DSN", "DATABASE_URL"},
	"storage.redis.address":  {"PROMPTVARS_REDIS_ADDRESS"},
	"storage.redis.password": {"PROMPTVARS_REDIS_PASSWORD"},
	"storage.sqlite.path":    {"PROMPTVARS_DB_PATH"},
}

// sensitiveKeys are masked in introspection output
var sensitiveKeys = map[string]bool{
	"storage.postgres.dsn":   true,
	"storage.redis.password": true,
}

// Introspect lists every effective setting, sorted by key, with the source
// that provided it. Secrets are masked.
func Introspect() []SettingInfo {
	v := GetViper()
	var settings []SettingInfo
	flattenSettings(v.AllSettings(), "", func(key string, value interface{}) {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := ConfigSources[key]; ok {
			info = si
		}
		if env := envOverride(key); env != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: env}
		}
		if sensitiveKeys[key] && value != "" {
			value = "********"
		}
		settings = append(settings, SettingInfo{
			Key:        key,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	})
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings
}

// envOverride returns the environment variable that sets key, if any.
// Explicitly bound keys only answer to their bound names.
func envOverride(key string) string {
	candidates, ok := sensitiveEnv[key]
	if !ok {
		candidates = []string{"PROMPTVARS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	}
	for _, name := range candidates {
		if os.Getenv(name) != "" {
			return name
		}
	}
	return ""
}

func flattenSettings(settings map[string]interface{}, prefix string, visit func(key string, value interface{})) {
	for key, value := range settings {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			flattenSettings(nested, fullKey, visit)
			continue
		}
		visit(fullKey, value)
	}
}
