package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config defines gate configuration.
type Config struct {
	Roster  RosterConfig  `yaml:"roster"`
	Persist PersistConfig `yaml:"persist"`
	DB      DBConfig      `yaml:"db"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type RosterConfig struct {
	// Path is loaded at startup when set.
	Path        string `yaml:"path" env:"GATEKEEPER_ROSTER_PATH"`
	ArtifactDir string `yaml:"artifact_dir" env:"GATEKEEPER_ARTIFACT_DIR"`
	// RenderCommand is the argv of an external image encoder. {token} and
	// {path} are substituted per participant.
	RenderCommand []string `yaml:"render_command" env:"GATEKEEPER_RENDER_COMMAND" envSeparator:" "`
}

type PersistConfig struct {
	AtomicWrites bool `yaml:"atomic_writes" env:"GATEKEEPER_ATOMIC_WRITES"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"GATEKEEPER_DB_PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"GATEKEEPER_LOG_LEVEL"`
	// Path copies logs to a size-capped file in addition to stderr.
	Path string `yaml:"path" env:"GATEKEEPER_LOG_PATH"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. "127.0.0.1:9464".
	Addr string `yaml:"addr" env:"GATEKEEPER_METRICS_ADDR"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Roster: RosterConfig{
			ArtifactDir: "qrcodes",
		},
		Persist: PersistConfig{
			AtomicWrites: true,
		},
		DB: DBConfig{
			Path: "gatekeeper.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("GATEKEEPER_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
