package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// CredentialDBName is the credential database file inside the data directory
	CredentialDBName = "corner.db"
	// DefaultShareBaseURL is the web client address used for invitation links
	DefaultShareBaseURL = "https://corner.app/"
)

// Config holds the client configuration
type Config struct {
	APIEndpoint    string        `yaml:"api_endpoint"`
	DataDir        string        `yaml:"data_dir"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	ShareBaseURL   string        `yaml:"share_base_url"`
}

// DefaultConfigPath returns <UserConfigDir>/corner/config.yaml
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "corner", "config.yaml")
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	dataDir := ""
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(dir, "corner")
	} else if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".corner")
	}
	return &Config{
		DataDir:        dataDir,
		PollInterval:   DefaultChatPollInterval,
		RequestTimeout: DefaultRequestTimeout,
		LogLevel:       "warn",
		ShareBaseURL:   DefaultShareBaseURL,
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// CORNER_* environment variables and finally overrides (command-line flags).
// A missing file is not an error.
func LoadConfig(path string, overrides ...func(*Config)) (*Config, error) {
	cfg, err := readConfig(path, overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadLocalConfig is LoadConfig for commands that never reach the backend:
// the endpoint may be unset.
func LoadLocalConfig(path string, overrides ...func(*Config)) (*Config, error) {
	cfg, err := readConfig(path, overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateLocal(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readConfig(path string, overrides []func(*Config)) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			LogDebug("No config file at %s, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv("CORNER_API_ENDPOINT"); ok {
		c.APIEndpoint = v
	}
	if v, ok := lookupEnv("CORNER_DATA_DIR"); ok {
		c.DataDir = v
	}
	if v, ok := lookupEnv("CORNER_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookupEnv("CORNER_SHARE_BASE_URL"); ok {
		c.ShareBaseURL = v
	}
	for key, dst := range map[string]*time.Duration{
		"CORNER_POLL_INTERVAL":   &c.PollInterval,
		"CORNER_REQUEST_TIMEOUT": &c.RequestTimeout,
	} {
		v, ok := lookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIEndpoint) == "" {
		return fmt.Errorf("api_endpoint cannot be empty (set CORNER_API_ENDPOINT or --endpoint)")
	}
	return c.ValidateLocal()
}

// ValidateLocal checks everything except the endpoint
func (c *Config) ValidateLocal() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// CredentialDBPath returns the path of the credential database
func (c *Config) CredentialDBPath() string {
	return filepath.Join(c.DataDir, CredentialDBName)
}
