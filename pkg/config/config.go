// Package config resolves goalgraph settings from flags, GOALGRAPH_*
// environment variables and an optional config.yaml in the data directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Backend names a goal store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Config is the resolved application configuration.
type Config struct {
	DataDir string    `mapstructure:"data_dir"`
	Backend Backend   `mapstructure:"backend"`
	Log     LogConfig `mapstructure:"log"`
}

// LogConfig controls where and how much goalgraph logs.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ConfigFileName is looked up inside the data directory.
const ConfigFileName = "config.yaml"

// SQLitePath is where the sqlite backend keeps its database.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "goals.db")
}

// New returns a viper instance with goalgraph's defaults and environment
// binding. Keys map to GOALGRAPH_<KEY>, with dots replaced by underscores.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("GOALGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", string(BackendFile))
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	return v
}

// Load resolves the data directory, reads its config.yaml when present and
// returns the merged configuration. dirOverride (the --dir flag) wins over
// GOALGRAPH_DIR, GOALGRAPH_DATA_DIR and the OS default. config.yaml lives in
// the data directory, so a data_dir key there is rejected.
func Load(v *viper.Viper, dirOverride string) (*Config, error) {
	dir := dirOverride
	if dir == "" {
		dir = os.Getenv("GOALGRAPH_DIR")
	}
	if dir == "" {
		dir = v.GetString("data_dir")
	}
	if dir == "" {
		dir = DefaultDataDir()
	}
	v.Set("data_dir", dir)

	v.SetConfigFile(filepath.Join(dir, ConfigFileName))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}
	if v.InConfig("data_dir") {
		return nil, fmt.Errorf("%s: data_dir cannot be set from inside the data directory; use --dir, GOALGRAPH_DIR or GOALGRAPH_DATA_DIR", ConfigFileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.DataDir = dir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check on its own.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want file, sqlite or memory)", c.Backend)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
