package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for
// the project config file.
const maxUpwardSearchLevels = 10

var configFileNames = []string{"epclake.yaml", "epclake.yml"}

// configExistsIn checks if an epclake config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for an epclake config
// file. Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit --config file
//  2. Search upward from CWD for epclake.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(filepath.Clean(cfgFile))
	}

	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not
// absolute. Returns the path unchanged if it's empty, absolute, or ":memory:".
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load merges configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// cfgFile may be empty; the project root is then located by searching upward
// from the working directory for epclake.yaml.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	projectRoot := inferProjectRoot(cfgFile)

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"database":          DefaultDatabase,
		"sql_root":          DefaultSQLRoot,
		"layers":            DefaultLayers,
		"extensions":        DefaultExtensions,
		"staging_dir":       DefaultStagingDir,
		"landing.manual":    DefaultManualDir,
		"landing.automated": DefaultAutoDir,
		"epc.base_url":      DefaultEPCBaseURL,
		"epc.page_size":     DefaultEPCPageSize,
		"epc.max_records":   DefaultEPCMaxRecords,
		"epc.env_file":      DefaultEPCEnvFile,
		"epc.start_date":    DefaultEPCStartDate,
		"verbose":           0,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		for _, name := range configFileNames {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables (EPCLAKE_ prefix)
	// Transform: EPCLAKE_SQL_ROOT -> sql_root, EPCLAKE_EPC__PAGE_SIZE -> epc.page_size
	if err := k.Load(env.Provider("EPCLAKE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "EPCLAKE_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// Count flags (repeatable -v) are not covered by FlagVal.
			if f.Value.Type() == "count" {
				if n, err := flags.GetCount(f.Name); err == nil {
					return key, n
				}
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.Database = resolvePathRelativeTo(cfg.Database, projectRoot)
	cfg.SQLRoot = resolvePathRelativeTo(cfg.SQLRoot, projectRoot)
	cfg.StagingDir = resolvePathRelativeTo(cfg.StagingDir, projectRoot)
	cfg.Landing.Manual = resolvePathRelativeTo(cfg.Landing.Manual, projectRoot)
	cfg.Landing.Automated = resolvePathRelativeTo(cfg.Landing.Automated, projectRoot)
	cfg.EPC.EnvFile = resolvePathRelativeTo(cfg.EPC.EnvFile, projectRoot)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if len(cfg.Layers) == 0 {
		return fmt.Errorf("layers must not be empty")
	}
	if cfg.EPC.PageSize < 1 || cfg.EPC.PageSize > 5000 {
		return fmt.Errorf("epc.page_size must be between 1 and 5000, got %d", cfg.EPC.PageSize)
	}
	if cfg.EPC.MaxRecords < 1 {
		return fmt.Errorf("epc.max_records must be positive, got %d", cfg.EPC.MaxRecords)
	}
	return nil
}
