// Package config loads service settings from defaults, an optional YAML file
// and IRIS_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

type ModelConfig struct {
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
	Watch     bool   `yaml:"watch"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default matches a bare process: all interfaces, port 8000, debug on,
// model read from iris_model.json in the working directory.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:  "0.0.0.0",
			Port:  8000,
			Debug: true,
		},
		Model: ModelConfig{
			Type:      "random_forest",
			Path:      "iris_model.json",
			CacheSize: 256,
			Watch:     true,
		},
		Log: LogConfig{
			Level:      "debug",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load applies path (skipped when it does not exist), then .env, then the
// process environment on top of Default.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(config); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("IRIS_HOST"); ok {
		c.Server.Host = v
	}
	if v, ok := lookup("IRIS_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("IRIS_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("IRIS_DEBUG"); ok {
		debug, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("IRIS_DEBUG: %w", err)
		}
		c.Server.Debug = debug
	}
	if v, ok := lookup("IRIS_MODEL_PATH"); ok {
		c.Model.Path = v
	}
	if v, ok := lookup("IRIS_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("IRIS_LOG_FILE"); ok {
		c.Log.File = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Model.Path == "" {
		return errors.New("model path is required")
	}
	if c.Model.Type == "" {
		return errors.New("model type is required")
	}
	if c.Model.CacheSize < 0 {
		return fmt.Errorf("invalid cache size %d", c.Model.CacheSize)
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
