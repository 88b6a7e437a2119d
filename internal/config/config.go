package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/tidyrules/internal/cleaner"
	"github.com/fenilsonani/tidyrules/internal/platform"
	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/storage"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

// SystemConfigPath is consulted by the daemon before the per-user file
const SystemConfigPath = "/etc/tidyrules/config.yaml"

// Config represents the application configuration
type Config struct {
	DataDir           string                      `yaml:"data_dir"`
	LogLevel          string                      `yaml:"log_level"`
	LogFile           string                      `yaml:"log_file"`
	Scheduler         SchedulerConfig             `yaml:"scheduler"`
	Deletion          DeletionConfig              `yaml:"deletion"`
	CategoryOverrides map[string]CategoryOverride `yaml:"category_overrides,omitempty"`
	DiskHistory       DiskHistoryConfig           `yaml:"disk_history"`
	Daemon            DaemonConfig                `yaml:"daemon"`
	Notifications     NotificationConfig          `yaml:"notifications"`
}

// SchedulerConfig controls how often due rules are checked
type SchedulerConfig struct {
	CheckInterval      string `yaml:"check_interval"` // cron spec
	MaxConcurrentRules int    `yaml:"max_concurrent_rules"`
}

// DeletionConfig holds deletion safety settings
type DeletionConfig struct {
	UseElevation    bool     `yaml:"use_elevation"`
	ElevationMethod string   `yaml:"elevation_method"` // "sudo", "pkexec", "none"
	ProtectedPaths  []string `yaml:"protected_paths"`
}

// CategoryOverride adjusts a category's default classification
type CategoryOverride struct {
	MinSize string `yaml:"min_size,omitempty"` // e.g. "500MB"
	Pattern string `yaml:"pattern,omitempty"`
	Risk    string `yaml:"risk,omitempty"`
}

// DiskHistoryConfig controls disk capacity sampling
type DiskHistoryConfig struct {
	RetentionDays  int    `yaml:"retention_days"`
	SampleInterval string `yaml:"sample_interval"` // cron spec
}

// DaemonConfig holds daemon process settings
type DaemonConfig struct {
	PidFile string `yaml:"pid_file"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled   bool          `yaml:"enabled"`
	OnSuccess bool          `yaml:"on_success"`
	OnFailure bool          `yaml:"on_failure"`
	Email     EmailConfig   `yaml:"email"`
	Webhook   WebhookConfig `yaml:"webhook"`
}

// EmailConfig holds email notification settings
type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// WebhookConfig holds webhook notification settings
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
}

// Load loads configuration from a file. Fields missing from the file keep
// their defaults.
func Load(configPath string) (*Config, error) {
	config := GetDefault()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration atomically
func Save(config *Config, configPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := storage.WriteFileAtomic(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	if _, err := cron.ParseStandard(c.Scheduler.CheckInterval); err != nil {
		return fmt.Errorf("invalid scheduler.check_interval %q: %w", c.Scheduler.CheckInterval, err)
	}
	if c.Scheduler.MaxConcurrentRules < 1 {
		return fmt.Errorf("scheduler.max_concurrent_rules must be >= 1")
	}

	switch c.Deletion.ElevationMethod {
	case "", cleaner.MethodSudo, cleaner.MethodPkexec, cleaner.MethodNone:
	default:
		return fmt.Errorf("unknown elevation method %q", c.Deletion.ElevationMethod)
	}
	for _, path := range c.Deletion.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	for name, o := range c.CategoryOverrides {
		if _, err := o.toScanner(); err != nil {
			return fmt.Errorf("invalid override for category %q: %w", name, err)
		}
	}

	if c.DiskHistory.RetentionDays < 1 {
		return fmt.Errorf("disk_history.retention_days must be >= 1")
	}
	if _, err := cron.ParseStandard(c.DiskHistory.SampleInterval); err != nil {
		return fmt.Errorf("invalid disk_history.sample_interval %q: %w", c.DiskHistory.SampleInterval, err)
	}

	if c.Notifications.Enabled && c.Notifications.Webhook.URL != "" &&
		!strings.HasPrefix(c.Notifications.Webhook.URL, "http://") &&
		!strings.HasPrefix(c.Notifications.Webhook.URL, "https://") {
		return fmt.Errorf("webhook url must be http(s): %s", c.Notifications.Webhook.URL)
	}

	return nil
}

func (o CategoryOverride) toScanner() (scanner.CategoryOverride, error) {
	var out scanner.CategoryOverride

	if o.Pattern != "" {
		if _, err := regexp.Compile(o.Pattern); err != nil {
			return out, fmt.Errorf("pattern: %w", err)
		}
		pattern := o.Pattern
		out.Pattern = &pattern
	}
	if o.MinSize != "" {
		size, err := utils.ParseSize(o.MinSize)
		if err != nil {
			return out, fmt.Errorf("min_size: %w", err)
		}
		out.MinSize = &size
	}
	if o.Risk != "" {
		risk, err := scanner.ParseRiskTier(o.Risk)
		if err != nil {
			return out, err
		}
		out.Risk = &risk
	}
	return out, nil
}

// Registry returns the built-in categories with the configured overrides applied
func (c *Config) Registry() (*scanner.Registry, error) {
	registry := scanner.NewRegistry()
	for name, o := range c.CategoryOverrides {
		override, err := o.toScanner()
		if err != nil {
			return nil, fmt.Errorf("invalid override for category %q: %w", name, err)
		}
		registry.Apply(name, override)
	}
	return registry, nil
}

// ResolvedDataDir returns DataDir with a leading ~ expanded
func (c *Config) ResolvedDataDir() (string, error) {
	if c.DataDir == "" {
		return platform.DefaultDataDir()
	}
	return expandHome(c.DataDir)
}

// PidFilePath returns the daemon pid file, defaulting into the data directory
func (c *Config) PidFilePath() (string, error) {
	if c.Daemon.PidFile != "" {
		return expandHome(c.Daemon.PidFile)
	}
	dir, err := c.ResolvedDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tidyrulesd.pid"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	configDir, err := platform.GetUserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, platform.AppName, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(GetDefault(), configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}
