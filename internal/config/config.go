package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	godbf "github.com/Ulysses-Xu/dbfcodec"
)

// Config represents the dbfcodec configuration
type Config struct {
	Codec   Codec   `yaml:"codec"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Codec controls how tables are decoded and encoded
type Codec struct {
	Encoding string `yaml:"encoding"`
	Strict   bool   `yaml:"strict"`
	Workers  int    `yaml:"workers"`
}

// Server contains the HTTP listener configuration
type Server struct {
	Bind           string `yaml:"bind"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Codec: Codec{
			Workers: 1,
		},
		Server: Server{
			Bind:           "127.0.0.1",
			Port:           8080,
			MaxUploadBytes: 64 << 20,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports settings that can never work.
func (c *Config) Validate() error {
	if c.Codec.Workers < 0 {
		return fmt.Errorf("codec.workers must not be negative: %d", c.Codec.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive: %d", c.Server.MaxUploadBytes)
	}
	return nil
}

// CodecOptions converts the codec section into godbf options.
func (c *Config) CodecOptions() godbf.Options {
	return godbf.Options{
		Encoding: c.Codec.Encoding,
		Strict:   c.Codec.Strict,
		Workers:  c.Codec.Workers,
	}
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./dbfcodec.yaml"
	}
	return filepath.Join(homeDir, ".config", "dbfcodec", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
