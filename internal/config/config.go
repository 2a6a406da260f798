package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/edp1096/spicelib/pkg/library"
)

// Config is the spice tool configuration.
type Config struct {
	Library LibraryConfig `mapstructure:"library"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Export  ExportConfig  `mapstructure:"export"`
}

// LibraryConfig lists where subcircuit libraries live.
type LibraryConfig struct {
	Roots      []string `mapstructure:"roots"`
	Extensions []string `mapstructure:"extensions"`
}

// StoreConfig locates the derived attribute database. Empty disables it.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ExportConfig struct {
	Units       bool `mapstructure:"units"`
	Subcircuits bool `mapstructure:"subcircuits"`
}

const (
	configName = "spice"
	envPrefix  = "SPICE"
)

// Load reads spice.yaml from file, or from the working directory and
// $HOME/.config/spice when file is empty. Environment variables named
// SPICE_<SECTION>_<KEY> override the file.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("library.roots", []string{})
	v.SetDefault("library.extensions", library.DefaultExtensions)
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("export.units", false)
	v.SetDefault("export.subcircuits", false)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, defaults and environment only
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}

	for i, root := range cfg.Library.Roots {
		root = strings.TrimSpace(root)
		if root == "" {
			return fmt.Errorf("library.roots[%d] is empty", i)
		}
		cfg.Library.Roots[i] = root
	}
	return nil
}

// HasLibrary reports whether any library root is configured.
func (c *Config) HasLibrary() bool {
	return len(c.Library.Roots) > 0
}
