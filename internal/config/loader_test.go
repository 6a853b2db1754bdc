package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable the loader reads so host settings don't leak into tests
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "HTTP_ADDR", "ROOT_FOLDER_ID", "DISPATCH_URL", "PROCESSOR_BASE_URL",
		"WEBHOOK_TOKEN", "PUBLIC_BASE_URL", "GOOGLE_APPLICATION_CREDENTIALS", "DRIVE_IMPERSONATE",
		"DRIVE_ALL_DRIVES", "CHANGES_PAGE_SIZE", "ANCESTRY_CACHE_SIZE", "DISPATCH_TIMEOUT",
		"DATABASE_URL", "JWT_HS256_SECRET", "DEV_MODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		checks  func(*testing.T, *Config)
	}{
		{
			name: "defaults when no env set",
			checks: func(t *testing.T, cfg *Config) {
				if cfg.HTTPAddr != ":8080" {
					t.Errorf("expected default HTTPAddr, got %s", cfg.HTTPAddr)
				}
				if cfg.Drive.PageSize != 100 {
					t.Errorf("expected default PageSize=100, got %d", cfg.Drive.PageSize)
				}
				if cfg.Dispatch.Timeout != 15*time.Second {
					t.Errorf("expected default timeout, got %s", cfg.Dispatch.Timeout)
				}
				if err := cfg.RequireHarvest(); !errors.Is(err, ErrMissingRootFolder) {
					t.Errorf("expected ErrMissingRootFolder, got %v", err)
				}
			},
		},
		{
			name: "harvest settings from env",
			envVars: map[string]string{
				"ROOT_FOLDER_ID":   "folder-123",
				"DISPATCH_URL":     "https://processor.example.com/hooks/drive",
				"WEBHOOK_TOKEN":    "s3cret",
				"DRIVE_ALL_DRIVES": "true",
				"DISPATCH_TIMEOUT": "3s",
			},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.RootFolderID != "folder-123" {
					t.Errorf("expected RootFolderID=folder-123, got %s", cfg.RootFolderID)
				}
				if err := cfg.RequireHarvest(); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if !cfg.Drive.AllDrives {
					t.Error("expected AllDrives=true")
				}
				if cfg.Dispatch.Timeout != 3*time.Second {
					t.Errorf("expected timeout=3s, got %s", cfg.Dispatch.Timeout)
				}
			},
		},
		{
			name: "dispatch url derived from processor base",
			envVars: map[string]string{
				"ROOT_FOLDER_ID":     "folder-123",
				"PROCESSOR_BASE_URL": "https://processor.example.com/",
			},
			checks: func(t *testing.T, cfg *Config) {
				if got := cfg.EffectiveDispatchURL(); got != "https://processor.example.com/v1/recordings" {
					t.Errorf("unexpected derived dispatch url: %s", got)
				}
			},
		},
		{
			name: "out of range page size falls back to default",
			envVars: map[string]string{
				"CHANGES_PAGE_SIZE": "5000",
			},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.Drive.PageSize != 100 {
					t.Errorf("expected PageSize=100, got %d", cfg.Drive.PageSize)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.checks(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "callwatch.yml")
	content := `
rootFolderId: from-file
processorBaseUrl: http://processor:9000
publicBaseUrl: https://watch.example.com
drive:
  pageSize: 250
  ancestryCacheSize: 10
dispatch:
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	// Environment wins over the file
	t.Setenv("ROOT_FOLDER_ID", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RootFolderID != "from-env" {
		t.Errorf("expected env override, got %s", cfg.RootFolderID)
	}
	if cfg.Drive.PageSize != 250 {
		t.Errorf("expected PageSize=250, got %d", cfg.Drive.PageSize)
	}
	if cfg.Drive.AncestryCacheSize != 10 {
		t.Errorf("expected AncestryCacheSize=10, got %d", cfg.Drive.AncestryCacheSize)
	}
	if cfg.Dispatch.Timeout != 5*time.Second {
		t.Errorf("expected timeout=5s, got %s", cfg.Dispatch.Timeout)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default HTTPAddr to survive file load, got %s", cfg.HTTPAddr)
	}
	if got := cfg.CallbackAddress(); got != "https://watch.example.com/v1/drive/notifications" {
		t.Errorf("unexpected callback address: %s", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.Is(err, ErrConfigFileNotFound) {
		t.Fatalf("expected ErrConfigFileNotFound, got %v", err)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("drive: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfigFormat) {
		t.Fatalf("expected ErrInvalidConfigFormat, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "good dispatch url", cfg: Config{DispatchURL: "http://localhost:9000/x"}},
		{name: "relative dispatch url", cfg: Config{DispatchURL: "/x"}, wantErr: true},
		{name: "ftp public base", cfg: Config{PublicBaseURL: "ftp://example.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsConfigurationError(t *testing.T) {
	if !IsConfigurationError(ErrMissingDispatchURL) {
		t.Error("expected ErrMissingDispatchURL to be a configuration error")
	}
	if IsConfigurationError(ErrConfigFileNotFound) {
		t.Error("file errors are load failures, not per-operation configuration errors")
	}
}
