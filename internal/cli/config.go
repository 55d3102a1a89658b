package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no --config flag is given.
const DefaultConfigFile = "lantern.yaml"

// Config is the CLI configuration. Flags override the values read from the file.
type Config struct {
	LogLevel       string            `yaml:"log_level"`
	ExperiencesDir string            `yaml:"experiences_dir"`
	MetricsAddr    string            `yaml:"metrics_addr"`
	Redis          RedisConfig       `yaml:"redis"`
	Tokens         map[string]string `yaml:"tokens"`
}

// RedisConfig enables the Redis experience cache and analytics publisher when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		ExperiencesDir: "experiences",
		MetricsAddr:    ":8080",
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
