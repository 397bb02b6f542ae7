// Package config loads CLI configuration for solgraph.
//
// Precedence (highest to lowest): flags > environment variables >
// config file > defaults. The config file is solgraph.yaml (or .yml),
// searched upward from the working directory.
package config

import (
	"fmt"
	"log/slog"
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

// maxUpwardSearchLevels limits how far up the directory tree to search
// for a config file.
const maxUpwardSearchLevels = 10

// Config holds all CLI configuration options.
type Config struct {
	Project string `koanf:"project"`
	Engine  string `koanf:"engine"`
	Solc    string `koanf:"solc"`
	Output  string `koanf:"output"`
	Verbose bool   `koanf:"verbose"`

	// Logger is assembled by the root command after loading, never
	// read from configuration sources.
	Logger *slog.Logger `koanf:"-"`
}

var (
	k              = koanf.New(".")
	configFileUsed string
	current        *Config
)

// Current returns the most recently loaded config. Commands call this
// after the root command's PersistentPreRunE has run.
func Current() *Config {
	if current == nil {
		return &Config{Engine: "solc", Output: "json"}
	}
	return current
}

// GetConfigFileUsed returns the path of the config file that was
// loaded, or empty when none was found.
func GetConfigFileUsed() string { return configFileUsed }

// Reset clears loaded state. Used by tests.
func Reset() {
	k = koanf.New(".")
	configFileUsed = ""
	current = nil
}

// findConfigFile locates the config file: an explicit path wins,
// otherwise solgraph.yaml / solgraph.yml searched upward from cwd.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{"solgraph.yaml", "solgraph.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load merges defaults, the config file, SOLGRAPH_* environment
// variables, and command-line flags into a Config.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"engine": "solc",
		"output": "json",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		configFileUsed = path
	}

	if err := k.Load(env.Provider("SOLGRAPH_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SOLGRAPH_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A relative project path in a config file is relative to that
	// file, not to wherever the command happens to run.
	if cfg.Project != "" && !filepath.IsAbs(cfg.Project) && configFileUsed != "" {
		if flags == nil || !flags.Changed("project") {
			cfg.Project = filepath.Join(filepath.Dir(configFileUsed), cfg.Project)
		}
	}

	current = &cfg
	return &cfg, nil
}
