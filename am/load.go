package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/promptvars/errors"
)

// ProjectConfigName is looked up in the working directory and its parents
const ProjectConfigName = "promptvars.toml"

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the promptvars configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Defaults only, no environment binding for an explicit file
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	ConfigSources = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}
	viperInstance = newViper(configPaths())
	return viperInstance
}

// newViper builds a Viper instance with environment binding, defaults and
// the given config files merged in order.
func newViper(files []configFile) *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("PROMPTVARS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)
	ConfigSources = mergeConfigFiles(v, files)
	return v
}

// UserConfigPath returns ~/.promptvars/config.toml, or "" when the home
// directory cannot be determined.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".promptvars", "config.toml")
}

// SystemConfigPath is the machine-wide config file
const SystemConfigPath = "/etc/promptvars/config.toml"

// configFile is one candidate file of the cascade
type configFile struct {
	Path   string
	Source ConfigSource
}

// configPaths lists config files from lowest to highest precedence:
// system, user, project.
func configPaths() []configFile {
	files := []configFile{{Path: SystemConfigPath, Source: SourceSystem}}
	if user := UserConfigPath(); user != "" {
		files = append(files, configFile{Path: user, Source: SourceUser})
	}
	if project := findProjectConfig(); project != "" {
		files = append(files, configFile{Path: project, Source: SourceProject})
	}
	return files
}

// findProjectConfig searches for promptvars.toml by walking up the directory tree.
// Returns "" if none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles merges each existing file into v in order and returns
// which file last set every key. Later files override earlier ones;
// environment variables still override all files.
func mergeConfigFiles(v *viper.Viper, files []configFile) map[string]SourceInfo {
	sources := make(map[string]SourceInfo)
	for _, f := range files {
		if _, err := os.Stat(f.Path); err != nil {
			continue
		}

		fileViper := viper.New()
		fileViper.SetConfigFile(f.Path)
		fileViper.SetConfigType("toml")
		if err := fileViper.ReadInConfig(); err != nil {
			continue
		}
		settings := fileViper.AllSettings()
		_ = v.MergeConfigMap(settings)
		markSettingsFromSource(settings, "", f.Source, f.Path, sources)
	}
	return sources
}

// markSettingsFromSource records source for every leaf key of settings
func markSettingsFromSource(settings map[string]interface{}, prefix string, source ConfigSource, path string, sources map[string]SourceInfo) {
	for key, value := range settings {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			markSettingsFromSource(nested, fullKey, source, path, sources)
			continue
		}
		sources[fullKey] = SourceInfo{Source: source, Path: path}
	}
}
