package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// NotificationPath is where Drive push notifications are received
	NotificationPath = "/v1/drive/notifications"

	// processorRecordingsPath is appended to ProcessorBaseURL when DispatchURL is not set
	processorRecordingsPath = "/v1/recordings"
)

// Config holds all configuration for the callwatch service
type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"logLevel"`
	HTTPAddr string `yaml:"httpAddr"`

	// Watched tree and downstream processor
	RootFolderID     string `yaml:"rootFolderId"`
	DispatchURL      string `yaml:"dispatchUrl"`
	ProcessorBaseURL string `yaml:"processorBaseUrl"`

	// Push notifications
	WebhookToken  string `yaml:"webhookToken"`
	PublicBaseURL string `yaml:"publicBaseUrl"`

	Drive    DriveConfig    `yaml:"drive"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Operator OperatorConfig `yaml:"operator"`

	// DatabaseURL enables the Postgres delivery journal when set
	DatabaseURL string `yaml:"databaseUrl"`
}

// DriveConfig holds Google Drive access settings
type DriveConfig struct {
	CredentialsFile   string `yaml:"credentialsFile"`
	Impersonate       string `yaml:"impersonate"` // domain-wide delegation subject
	AllDrives         bool   `yaml:"allDrives"`   // include shared drives
	PageSize          int64  `yaml:"pageSize"`
	AncestryCacheSize int    `yaml:"ancestryCacheSize"` // 0 = unbounded
}

// DispatchConfig holds outbound notification settings
type DispatchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	JournalSize   int           `yaml:"journalSize"`
	BodyLogLength int           `yaml:"bodyLogLength"`
}

// OperatorConfig holds authentication for operator endpoints
type OperatorConfig struct {
	HS256Secret string `yaml:"hs256Secret"`
	DevMode     bool   `yaml:"devMode"` // accept X-Debug-Sub instead of a bearer token
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Env:      "dev",
		LogLevel: "info",
		HTTPAddr: ":8080",
		Drive: DriveConfig{
			PageSize:          100,
			AncestryCacheSize: 50000,
		},
		Dispatch: DispatchConfig{
			Timeout:       15 * time.Second,
			JournalSize:   500,
			BodyLogLength: 512,
		},
	}
}

// EffectiveDispatchURL returns the configured endpoint, or derives one from ProcessorBaseURL
func (c *Config) EffectiveDispatchURL() string {
	if u := strings.TrimSpace(c.DispatchURL); u != "" {
		return u
	}
	if base := strings.TrimRight(strings.TrimSpace(c.ProcessorBaseURL), "/"); base != "" {
		return base + processorRecordingsPath
	}
	return ""
}

// CallbackAddress returns the public push-notification address, or "" if no public base is configured
func (c *Config) CallbackAddress() string {
	base := strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	if base == "" {
		return ""
	}
	return base + NotificationPath
}

// RequireHarvest checks the settings every harvesting pass needs
func (c *Config) RequireHarvest() error {
	if strings.TrimSpace(c.RootFolderID) == "" {
		return ErrMissingRootFolder
	}
	if c.EffectiveDispatchURL() == "" {
		return ErrMissingDispatchURL
	}
	return nil
}

// ApplyDefaults fills zero or out-of-range values with defaults
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.HTTPAddr == "" {
		c.HTTPAddr = defaults.HTTPAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Drive.PageSize <= 0 || c.Drive.PageSize > 1000 {
		c.Drive.PageSize = defaults.Drive.PageSize
	}
	if c.Drive.AncestryCacheSize < 0 {
		c.Drive.AncestryCacheSize = 0
	}
	if c.Dispatch.Timeout <= 0 {
		c.Dispatch.Timeout = defaults.Dispatch.Timeout
	}
	if c.Dispatch.JournalSize <= 0 {
		c.Dispatch.JournalSize = defaults.Dispatch.JournalSize
	}
	if c.Dispatch.BodyLogLength <= 0 {
		c.Dispatch.BodyLogLength = defaults.Dispatch.BodyLogLength
	}
}

// Validate checks that the configured addresses are well-formed.
// Missing harvest settings are not fatal here: the affected operations report them per call.
func (c *Config) Validate() error {
	if u := c.EffectiveDispatchURL(); u != "" {
		if err := checkHTTPURL("dispatchUrl", u); err != nil {
			return err
		}
	}
	if c.PublicBaseURL != "" {
		if err := checkHTTPURL("publicBaseUrl", c.PublicBaseURL); err != nil {
			return err
		}
	}
	return nil
}

func checkHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}
