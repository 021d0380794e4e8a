// Package config loads the import run configuration from a YAML file and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full run configuration.
type Config struct {
	// Journal is the path to the main journal file.
	Journal string
	// UncategorizedAccount receives the offsetting leg of generated
	// entries. Empty means the built-in default.
	UncategorizedAccount string `mapstructure:"uncategorized_account"`
	Sources              []SourceConfig
	API                  APIConfig
}

// SourceConfig configures one statement source.
type SourceConfig struct {
	// Type selects the source implementation, e.g. "zen" or "revolut".
	Type      string
	Directory string
	// AccountMap maps source account ids to journal accounts.
	AccountMap map[string]string `mapstructure:"account_map"`
	// DefaultAccount catches ids absent from AccountMap. A source needs
	// at least one of AccountMap and DefaultAccount.
	DefaultAccount string `mapstructure:"default_account"`
	// Currency applies to formats without a currency column.
	Currency string
}

// APIConfig configures the review API server.
type APIConfig struct {
	Addr string
}

// Load reads configuration from path, or from the default locations when
// path is empty. Env var overrides use prefix LEDGER_IMPORT_.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("api.addr", ":8080")

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ledger-import"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGER_IMPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("Load: read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	return c, nil
}

// Validate checks the structural requirements a run cannot start without.
// Account-map completeness is checked later by each source, which owns the
// semantics of its ids.
func (c Config) Validate() error {
	if c.Journal == "" {
		return fmt.Errorf("Validate: journal path is required")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("Validate: at least one source is required")
	}
	for i, s := range c.Sources {
		if s.Type == "" {
			return fmt.Errorf("Validate: sources[%d]: type is required", i)
		}
		if s.Directory == "" {
			return fmt.Errorf("Validate: sources[%d] (%s): directory is required", i, s.Type)
		}
		if len(s.AccountMap) == 0 && s.DefaultAccount == "" {
			return fmt.Errorf("Validate: sources[%d] (%s): account_map or default_account is required", i, s.Type)
		}
	}
	return nil
}
