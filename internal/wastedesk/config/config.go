// Package config loads the service configuration from config/config.yaml
// with WASTEDESK_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/gartstein/wastedesk/internal/wastedesk/db"
)

const envPrefix = "WASTEDESK"

// Config struct for YAML configuration
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT" validate:"required"`
	GRPCPort    int    `mapstructure:"GRPC_PORT" validate:"min=1,max=65535"`
	HTTPPort    int    `mapstructure:"HTTP_PORT" validate:"min=1,max=65535,nefield=GRPCPort"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER" validate:"oneof=sqlite postgres redis"`
	SQLitePath    string `mapstructure:"SQLITE_PATH" validate:"required_if=StorageDriver sqlite"`
	DBHost        string `mapstructure:"DB_HOST" validate:"required_if=StorageDriver postgres"`
	DBPort        int    `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME" validate:"required_if=StorageDriver postgres"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	RedisURL      string `mapstructure:"REDIS_URL" validate:"required_if=StorageDriver redis"`

	// KafkaBrokers may be empty; events are then handled in-process.
	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	Topic        string   `mapstructure:"TOPIC" validate:"required"`
	GroupID      string   `mapstructure:"GROUP_ID" validate:"required"`

	SeedOnStart bool   `mapstructure:"SEED_ON_START"`
	LogLevel    string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

var defaults = map[string]any{
	"ENVIRONMENT":    "development",
	"GRPC_PORT":      50051,
	"HTTP_PORT":      8080,
	"STORAGE_DRIVER": "sqlite",
	"SQLITE_PATH":    "wastedesk.db",
	"DB_HOST":        "",
	"DB_PORT":        5432,
	"DB_USER":        "",
	"DB_PASSWORD":    "",
	"DB_NAME":        "",
	"DB_SSLMODE":     "disable",
	"REDIS_URL":      "",
	"KAFKA_BROKERS":  []string{},
	"TOPIC":          "wastedesk.events",
	"GROUP_ID":       "wastedesk-audit",
	"SEED_ON_START":  true,
	"LOG_LEVEL":      "info",
}

// Load reads the config file at path. An empty path searches ./config and
// the working directory for config.yaml; a missing file falls back to
// defaults and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.KafkaBrokers = parseList(cfg.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the port, storage and Kafka settings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Database returns the SQL connection settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:   c.StorageDriver,
		Path:     c.SQLitePath,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// parseList splits comma separated entries coming from the environment.
func parseList(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, item := range strings.Split(entry, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
