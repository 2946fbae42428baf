package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSettingsFromSource(t *testing.T) {
	settings := map[string]interface{}{
		"storage": map[string]interface{}{
			"kind": "redis",
			"redis": map[string]interface{}{
				"prefix": "team",
			},
		},
		"log": map[string]interface{}{"json": true},
	}

	sources := make(map[string]SourceInfo)
	markSettingsFromSource(settings, "", SourceUser, "/home/user/.promptvars/config.toml", sources)

	assert.Len(t, sources, 3)
	assert.Equal(t, SourceUser, sources["storage.redis.prefix"].Source)
	assert.Equal(t, "/home/user/.promptvars/config.toml", sources["storage.kind"].Path)
	assert.Contains(t, sources, "log.json")
}

func TestMergeConfigFilesTracksLastWriter(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user.toml")
	project := filepath.Join(dir, "project.toml")
	require.NoError(t, os.WriteFile(user, []byte("[storage]\nkind = \"redis\"\n[log]\nlevel = \"info\"\n"), DefaultFilePermissions))
	require.NoError(t, os.WriteFile(project, []byte("[storage]\nkind = \"memory\"\n"), DefaultFilePermissions))

	newViper([]configFile{{Path: user, Source: SourceUser}, {Path: project, Source: SourceProject}})
	t.Cleanup(Reset)

	assert.Equal(t, SourceInfo{Source: SourceProject, Path: project}, ConfigSources["storage.kind"])
	assert.Equal(t, SourceInfo{Source: SourceUser, Path: user}, ConfigSources["log.level"])
}

func TestIntrospect(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project.toml")
	require.NoError(t, os.WriteFile(project,
		[]byte("[storage]\nkind = \"redis\"\n[storage.redis]\npassword = \"hunter2\"\n"), DefaultFilePermissions))

	Reset()
	t.Cleanup(Reset)
	t.Setenv("PROMPTVARS_LOG_LEVEL", "debug")
	viperInstance = newViper([]configFile{{Path: project, Source: SourceProject}})

	byKey := make(map[string]SettingInfo)
	for _, s := range Introspect() {
		byKey[s.Key] = s
	}

	assert.Equal(t, SourceProject, byKey["storage.kind"].Source)
	assert.Equal(t, project, byKey["storage.kind"].SourcePath)

	assert.Equal(t, "********", byKey["storage.redis.password"].Value)

	assert.Equal(t, SourceEnvironment, byKey["log.level"].Source)
	assert.Equal(t, "debug", byKey["log.level"].Value)

	assert.Equal(t, SourceDefault, byKey["storage.redis.prefix"].Source)
	assert.Equal(t, DefaultRedisPrefix, byKey["storage.redis.prefix"].Value)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PROMPTVARS_LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")

	assert.Equal(t, "PROMPTVARS_LOG_LEVEL", envOverride("log.level"))
	assert.Equal(t, "DATABASE_URL", envOverride("storage.postgres.dsn"))
	assert.Empty(t, envOverride("storage.kind"))
}
