package am

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance without user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Storage.Kind != StorageSQLite {
		t.Errorf("expected default storage kind %q, got %q", StorageSQLite, cfg.Storage.Kind)
	}
	if cfg.Storage.SQLite.Path != DefaultSQLitePath {
		t.Errorf("expected default sqlite path %q, got %q", DefaultSQLitePath, cfg.Storage.SQLite.Path)
	}
	if cfg.Storage.Redis.Prefix != DefaultRedisPrefix {
		t.Errorf("expected default redis prefix, got %q", cfg.Storage.Redis.Prefix)
	}
	if cfg.Server.Name != DefaultServerName {
		t.Errorf("expected default server name, got %q", cfg.Server.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"storage.kind", "sqlite"},
		{"storage.sqlite.path", "promptvars.db"},
		{"storage.postgres.max_connections", 10},
		{"storage.redis.address", "localhost:6379"},
		{"log.level", "warn"},
		{"metrics.enabled", false},
		{"metrics.namespace", "promptvars"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := v.Get(tt.key)
			if got != tt.expected {
				t.Errorf("default %s = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage: StorageConfig{Kind: StorageMemory},
			Log:     LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "memory needs nothing else", mutate: func(c *Config) {}},
		{name: "unknown kind", mutate: func(c *Config) { c.Storage.Kind = "dynamo" }, wantErr: true},
		{name: "empty kind", mutate: func(c *Config) { c.Storage.Kind = "" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.Kind = StorageSQLite }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Kind = StoragePostgres }, wantErr: true},
		{
			name: "postgres with dsn",
			mutate: func(c *Config) {
				c.Storage.Kind = StoragePostgres
				c.Storage.Postgres.DSN = "postgres://localhost/promptvars"
			},
		},
		{name: "redis without address", mutate: func(c *Config) { c.Storage.Kind = StorageRedis }, wantErr: true},
		{name: "negative pool size", mutate: func(c *Config) { c.Storage.Postgres.MaxConnections = -1 }, wantErr: true},
		{name: "negative redis db", mutate: func(c *Config) { c.Storage.Redis.DB = -2 }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "metrics without namespace", mutate: func(c *Config) { c.Metrics.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("found in parent directory", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test1", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)
		os.WriteFile(filepath.Join(tmpDir, "test1", ProjectConfigName), []byte(""), DefaultFilePermissions)

		t.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Fatal("expected to find config file")
		}
		if !filepath.IsAbs(result) {
			t.Error("expected absolute path")
		}
		if filepath.Base(result) != ProjectConfigName {
			t.Errorf("expected %s, got %s", ProjectConfigName, filepath.Base(result))
		}
	})

	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test2", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		t.Chdir(subDir)

		if result := findProjectConfig(); result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})
}

func TestMergeConfigFiles_Precedence(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user.toml")
	project := filepath.Join(dir, "project.toml")

	os.WriteFile(user, []byte("[storage]\nkind = \"redis\"\n[storage.redis]\nprefix = \"user\"\n"), DefaultFilePermissions)
	os.WriteFile(project, []byte("[storage.redis]\nprefix = \"project\"\n"), DefaultFilePermissions)

	cfg, err := LoadWithViper(newViper([]configFile{
		{Path: filepath.Join(dir, "missing.toml"), Source: SourceSystem},
		{Path: user, Source: SourceUser},
		{Path: project, Source: SourceProject},
	}))
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}
	if cfg.Storage.Kind != StorageRedis {
		t.Errorf("expected user file kind redis, got %q", cfg.Storage.Kind)
	}
	if cfg.Storage.Redis.Prefix != "project" {
		t.Errorf("expected project file to win, got %q", cfg.Storage.Redis.Prefix)
	}

	t.Setenv("PROMPTVARS_STORAGE_KIND", "memory")
	cfg, err = LoadWithViper(newViper([]configFile{{Path: user, Source: SourceUser}, {Path: project, Source: SourceProject}}))
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}
	if cfg.Storage.Kind != StorageMemory {
		t.Errorf("expected environment to win, got %q", cfg.Storage.Kind)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptvars.toml")
	os.WriteFile(path, []byte("[storage]\nkind = \"memory\"\n[log]\njson = true\n"), DefaultFilePermissions)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.Storage.Kind != StorageMemory {
		t.Errorf("expected memory, got %q", cfg.Storage.Kind)
	}
	if !cfg.Log.JSON {
		t.Error("expected log.json = true")
	}
	if cfg.Storage.SQLite.Path != DefaultSQLitePath {
		t.Errorf("expected defaults to fill unset keys, got %q", cfg.Storage.SQLite.Path)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := SetValue(path, "storage.kind", "redis"); err != nil {
		t.Fatalf("SetValue() failed: %v", err)
	}
	if _, err := os.Stat(path + ".back1"); !os.IsNotExist(err) {
		t.Error("first write should not create a backup")
	}

	if err := SetValue(path, "storage.redis.db", 3); err != nil {
		t.Fatalf("SetValue() failed: %v", err)
	}
	if _, err := os.Stat(path + ".back1"); err != nil {
		t.Errorf("expected .back1 after second write: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.Storage.Kind != StorageRedis {
		t.Errorf("storage.kind = %q, want redis", cfg.Storage.Kind)
	}
	if cfg.Storage.Redis.DB != 3 {
		t.Errorf("storage.redis.db = %d, want 3", cfg.Storage.Redis.DB)
	}

	if err := SetValue(path, "storage..kind", "x"); err == nil {
		t.Error("expected error for empty key segment")
	}
}

func TestCreateBackup_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	for i := 0; i < 5; i++ {
		os.WriteFile(path, []byte{byte('a' + i)}, DefaultFilePermissions)
		if err := createBackup(path); err != nil {
			t.Fatalf("createBackup() failed: %v", err)
		}
	}

	for suffix, want := range map[string]string{".back1": "e", ".back2": "d", ".back3": "c"} {
		got, err := os.ReadFile(path + suffix)
		if err != nil {
			t.Fatalf("read %s: %v", suffix, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", suffix, got, want)
		}
	}
}

func TestEncode(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			Kind:     StoragePostgres,
			Postgres: PostgresConfig{DSN: "postgres://app:hunter2@db:5432/prompts"},
			Redis:    RedisConfig{Address: "localhost:6379", Password: "s3cret"},
		},
	}

	out, err := Encode(cfg)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if !strings.Contains(out, `kind = "postgres"`) {
		t.Errorf("missing storage kind in:\n%s", out)
	}
	if strings.Contains(out, "hunter2") || strings.Contains(out, "s3cret") {
		t.Errorf("secrets leaked in:\n%s", out)
	}
	if !strings.Contains(out, "postgres://app:********@db:5432/prompts") {
		t.Errorf("expected masked dsn in:\n%s", out)
	}
	if cfg.Storage.Redis.Password != "s3cret" {
		t.Error("Encode must not modify its argument")
	}
}
