package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "dev", c.DefaultEnvironment)
	assert.Equal(t, []string{"console"}, c.Reporters)
	assert.False(t, c.GetBail())
	assert.False(t, c.GetVerbose())
	assert.False(t, c.GetNoColor())
	assert.True(t, c.IsDefault())
}

func TestFindAndLoadConfig(t *testing.T) {
	t.Run("no file yields defaults", func(t *testing.T) {
		c, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.True(t, c.IsDefault())
	})

	t.Run("first matching name wins", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".domspecrc"), []byte(`{"defaultEnvironment":"rc"}`), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "domspec.config.json"), []byte(`{
  "defaultEnvironment": "staging",
  "environments": {"staging": {"title": "Staging"}},
  "history": "runs.db",
  "bail": true
}`), 0644))

		c, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "staging", c.DefaultEnvironment)
		assert.Equal(t, "Staging", c.Environments["staging"]["title"])
		assert.True(t, c.GetBail())
		assert.Equal(t, []string{"console"}, c.Reporters, "unset fields keep defaults")
		assert.Equal(t, filepath.Join(dir, "runs.db"), c.ResolvePath(c.History))
		assert.False(t, c.IsDefault())
	})

	t.Run("invalid json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".domspec.config.json"), []byte(`{`), 0644))
		_, err := FindAndLoadConfig(dir)
		assert.ErrorContains(t, err, "parsing config")
	})
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "reading config")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Variables = map[string]any{"a": 1, "b": 1}
	base.Environments = map[string]map[string]any{"dev": {"x": 1}}

	other := &Config{
		Variables:    map[string]any{"b": 2},
		Environments: map[string]map[string]any{"ci": {"x": 2}},
		Verbose:      BoolPtr(true),
		Tags:         []string{"smoke"},
	}

	merged := base.Merge(other)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, merged.Variables)
	assert.Len(t, merged.Environments, 2)
	assert.True(t, merged.GetVerbose())
	assert.False(t, merged.GetBail())
	assert.Equal(t, []string{"smoke"}, merged.Tags)
	assert.Equal(t, "dev", merged.DefaultEnvironment)

	assert.Equal(t, map[string]any{"a": 1, "b": 1}, base.Variables, "merge must not mutate the receiver")
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".domspec.config.json")
	c := DefaultConfig()
	c.OutputDir = "reports"
	require.NoError(t, c.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "reports", loaded.OutputDir)
	assert.Equal(t, filepath.Dir(path), loaded.Dir)
}
