package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load(filepath.Join(t.TempDir(), "empty.yaml"), nil)
	require.Error(t, err, "explicit config paths must exist")
	assert.Nil(t, cfg)

	dir := t.TempDir()
	path := filepath.Join(dir, "solgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))

	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "solc", cfg.Engine)
	assert.Equal(t, "json", cfg.Output)
	assert.Empty(t, cfg.Project)
}

func TestLoadConfigFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "solgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: source\nproject: contracts\n"), 0644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "source", cfg.Engine)
	assert.Equal(t, path, GetConfigFileUsed())

	// A relative project path is anchored at the config file.
	assert.Equal(t, filepath.Join(dir, "contracts"), cfg.Project)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "solgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: source\n"), 0644))

	t.Setenv("SOLGRAPH_ENGINE", "solc")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "solc", cfg.Engine)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("SOLGRAPH_ENGINE", "solc")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine", "", "")
	require.NoError(t, flags.Set("engine", "source"))

	dir := t.TempDir()
	path := filepath.Join(dir, "solgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "source", cfg.Engine)
}

func TestUnsetFlagDoesNotClobber(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "solgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: source\n"), 0644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine", "", "")

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "source", cfg.Engine, "an unset flag must not override the config file")
}

func TestCurrentBeforeLoad(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg := Current()
	require.NotNil(t, cfg)
	assert.Equal(t, "solc", cfg.Engine)
	assert.Equal(t, "json", cfg.Output)
}

func TestFindConfigFileUpward(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	path := filepath.Join(root, "solgraph.yml")
	require.NoError(t, os.WriteFile(path, []byte("engine: source\n"), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "source", cfg.Engine)
}
