package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds process level configuration read from the environment
type Config struct {
	Env          string   `validate:"required,oneof=development production test"`
	LogLevel     string   `validate:"required,oneof=debug info warn error"`
	SettingsFile string   `validate:"omitempty"`
	ModulePaths  []string `validate:"dive,required"`
	Version      string
}

// NewConfig reads configuration from environment variables
func NewConfig() *Config {
	return &Config{
		Env:          getEnv("APP_ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		SettingsFile: os.Getenv("SETTINGS_FILE"),
		ModulePaths:  splitPathList(os.Getenv("MODULE_PATHS")),
		Version:      getEnv("APP_VERSION", "dev"),
	}
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitPathList(value string) []string {
	if value == "" {
		return nil
	}
	var paths []string
	for _, p := range filepath.SplitList(value) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
