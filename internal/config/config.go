package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables read by Load
const EnvPrefix = "GRIDOPS"

// Store backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendS3     = "s3"
)

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Project ProjectConfig `mapstructure:"project"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is text or json
	Format string `mapstructure:"format"`
	// SeqURL enables shipping logs to a Seq server when set
	SeqURL string `mapstructure:"seq_url"`
}

// StoreConfig selects where change data is persisted
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
}

type RunnerConfig struct {
	Partitions int `mapstructure:"partitions"`
	Workers    int `mapstructure:"workers"`
}

type ProjectConfig struct {
	ID string `mapstructure:"id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.seq_url", "")
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.dir", ".gridops/changes")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.bucket", "gridops")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.secure", false)
	v.SetDefault("runner.partitions", 4)
	v.SetDefault("runner.workers", 4)
	v.SetDefault("project.id", "default")
}

// Load fills target from defaults, then the config file at path (optional;
// when empty, gridops.{yaml,json,toml} in the working directory is used if
// present), then environment variables: PREFIX_STORE_DIR sets store.dir.
// Variables missing from the environment are read from ./.env.
func Load(prefix, path string, target *Config) error {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("gridops")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// a .env file in the working directory never overrides the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	// every key has a default, so AutomaticEnv reaches Unmarshal
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return target.Validate()
}

// Validate rejects settings the command cannot run with
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the %s backend", BackendFile)
		}
	case BackendS3:
		if c.Store.Endpoint == "" || c.Store.Bucket == "" {
			return fmt.Errorf("store.endpoint and store.bucket are required for the %s backend", BackendS3)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Runner.Partitions <= 0 {
		return fmt.Errorf("runner.partitions must be positive, got %d", c.Runner.Partitions)
	}
	if c.Runner.Workers <= 0 {
		return fmt.Errorf("runner.workers must be positive, got %d", c.Runner.Workers)
	}
	if c.Project.ID == "" {
		return fmt.Errorf("project.id is required")
	}
	return nil
}
