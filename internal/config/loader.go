package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file path and applies environment variable overrides.
// Validation is deferred to allow CLI flag overrides to be applied first.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	applyEnvironmentOverrides(cfg)
	cfg.ApplyDefaults()

	return cfg, nil
}

// loadFromFile decodes the YAML file over the defaults already held by cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigFileNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return nil
}

// applyEnvironmentOverrides applies configuration from environment variables
func applyEnvironmentOverrides(cfg *Config) {
	setString(&cfg.Env, "ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.HTTPAddr, "HTTP_ADDR")

	setString(&cfg.RootFolderID, "ROOT_FOLDER_ID")
	setString(&cfg.DispatchURL, "DISPATCH_URL")
	setString(&cfg.ProcessorBaseURL, "PROCESSOR_BASE_URL")
	setString(&cfg.WebhookToken, "WEBHOOK_TOKEN")
	setString(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")

	setString(&cfg.Drive.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.Drive.Impersonate, "DRIVE_IMPERSONATE")
	setBool(&cfg.Drive.AllDrives, "DRIVE_ALL_DRIVES")
	if v := os.Getenv("CHANGES_PAGE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Drive.PageSize = n
		}
	}
	if v := os.Getenv("ANCESTRY_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Drive.AncestryCacheSize = n
		}
	}

	if v := os.Getenv("DISPATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dispatch.Timeout = d
		}
	}

	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Operator.HS256Secret, "JWT_HS256_SECRET")
	setBool(&cfg.Operator.DevMode, "DEV_MODE")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	}
}
