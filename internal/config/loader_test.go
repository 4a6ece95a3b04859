package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "epclake.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultDatabase), cfg.Database)
	assert.Equal(t, filepath.Join(dir, DefaultSQLRoot), cfg.SQLRoot)
	assert.Equal(t, []string{"bronze", "silver", "gold"}, cfg.Layers)
	assert.Equal(t, []string{"spatial", "postgres"}, cfg.Extensions)
	assert.Equal(t, 5000, cfg.EPC.PageSize)
	assert.Equal(t, 100000, cfg.EPC.MaxRecords)
	assert.Equal(t, "2008-01-01", cfg.EPC.StartDate)
	assert.Equal(t, 0, cfg.Verbosity)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
database: lake.duckdb
sql_root: transformations
layers: [bronze, silver]
epc:
  page_size: 1000
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "lake.duckdb"), cfg.Database)
	assert.Equal(t, filepath.Join(dir, "transformations"), cfg.SQLRoot)
	assert.Equal(t, []string{"bronze", "silver"}, cfg.Layers)
	assert.Equal(t, 1000, cfg.EPC.PageSize)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultEPCMaxRecords, cfg.EPC.MaxRecords)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "database: from_file.duckdb\n")

	t.Setenv("EPCLAKE_DATABASE", "from_env.duckdb")
	t.Setenv("EPCLAKE_EPC__PAGE_SIZE", "250")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "from_env.duckdb", filepath.Base(cfg.Database), "env var must beat config file")
	assert.Equal(t, 250, cfg.EPC.PageSize, "nested env var must apply")
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("EPCLAKE_DATABASE", "from_env.duckdb")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database", "", "")
	require.NoError(t, flags.Parse([]string{"--database", "from_flag.duckdb"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "from_flag.duckdb", filepath.Base(cfg.Database), "flag must beat env var")
}

func TestLoad_VerbosityCounts(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.CountP("verbose", "v", "")
	require.NoError(t, flags.Parse([]string{"-vv"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Verbosity, "repeated -v must accumulate")
}

func TestLoad_UnchangedFlagIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database", "flag_default.duckdb", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.NotEqual(t, "flag_default.duckdb", filepath.Base(cfg.Database),
		"unset flag must not override defaults")
}

func TestLoad_FindsConfigUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "database: found.duckdb\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "found.duckdb", filepath.Base(cfg.Database))
	assert.Equal(t, root, cfg.ProjectRoot, "project root must be the config directory")
}

func TestLoad_MemoryDatabaseNotResolved(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "database: ':memory:'\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.Database)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{
			name:      "page size above API cap",
			content:   "epc:\n  page_size: 9000\n",
			errSubstr: "page_size",
		},
		{
			name:      "zero page size",
			content:   "epc:\n  page_size: 0\n",
			errSubstr: "page_size",
		},
		{
			name:      "empty layers",
			content:   "layers: []\n",
			errSubstr: "layers",
		},
		{
			name:      "negative max records",
			content:   "epc:\n  max_records: -1\n",
			errSubstr: "max_records",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)

			_, err := Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "{{{ not yaml")

	_, err := Load(path, nil)
	require.Error(t, err)
}
