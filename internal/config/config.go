// Package config loads the lodestar service configuration and the entity
// registry file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the lodestar configuration
type Config struct {
	Schema      SchemaConfig      `mapstructure:"schema"`
	Annotations AnnotationsConfig `mapstructure:"annotations"`
	Store       StoreConfig       `mapstructure:"store"`
	Server      ServerConfig      `mapstructure:"server"`
	Compile     CompileConfig     `mapstructure:"compile"`
}

// SchemaConfig locates the aspect definition sources
type SchemaConfig struct {
	// Paths lists files or directories scanned for .adl sources
	Paths []string `mapstructure:"paths"`

	// EntityRegistry is the YAML file binding entity types to aspects
	EntityRegistry string `mapstructure:"entity_registry"`
}

// AnnotationsConfig represents annotation resolution policy
type AnnotationsConfig struct {
	InheritEmbedded bool `mapstructure:"inherit_embedded"`
}

// StoreConfig represents aspect store configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// CompileConfig represents compiler execution settings
type CompileConfig struct {
	// Workers bounds parallel aspect compilation; 0 uses all CPUs
	Workers int `mapstructure:"workers"`
}

// Load loads the configuration from lodestar.yml or lodestar.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("schema.paths", []string{"schemas"})
	v.SetDefault("schema.entity_registry", "entity-registry.yml")
	v.SetDefault("annotations.inherit_embedded", true)
	v.SetDefault("store.path", "lodestar.db")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("compile.workers", 0)

	v.SetConfigName("lodestar")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LODESTAR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
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
	if len(cfg.Schema.Paths) == 0 {
		return fmt.Errorf("schema.paths must list at least one file or directory")
	}
	if cfg.Schema.EntityRegistry == "" {
		return fmt.Errorf("schema.entity_registry must be set")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if cfg.Compile.Workers < 0 {
		return fmt.Errorf("compile.workers must not be negative")
	}
	return nil
}
