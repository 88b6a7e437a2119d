package config

import "github.com/fenilsonani/tidyrules/internal/cleaner"

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		LogLevel: "info",
		Scheduler: SchedulerConfig{
			CheckInterval:      "@every 15m",
			MaxConcurrentRules: 2,
		},
		Deletion: DeletionConfig{
			UseElevation:    false, // opt-in: never prompt for a password unasked
			ElevationMethod: cleaner.MethodSudo,
			ProtectedPaths:  []string{},
		},
		DiskHistory: DiskHistoryConfig{
			RetentionDays:  30,
			SampleInterval: "@hourly",
		},
		Notifications: NotificationConfig{
			Enabled:   false,
			OnSuccess: false,
			OnFailure: true,
			Webhook: WebhookConfig{
				Method: "POST",
			},
			Email: EmailConfig{
				SMTPPort: 587,
			},
		},
	}
}

// GetExampleConfig returns an example configuration with comments
func GetExampleConfig() string {
	return `# tidyrules configuration
# Location: ~/.config/tidyrules/config.yaml

# Where rules.yaml, locations.yaml and disk_history.yaml live
# data_dir: ~/.config/tidyrules

log_level: info        # debug, info, warn, error
# log_file: ~/.config/tidyrules/tidyrules.log

scheduler:
  check_interval: "@every 15m"   # how often the daemon looks for due rules
  max_concurrent_rules: 2

deletion:
  use_elevation: false      # retry failed deletes with sudo/pkexec
  elevation_method: sudo    # sudo, pkexec or none
  protected_paths:          # never touched, in addition to system paths
    - /Users/me/Projects

# Adjust built-in category defaults
category_overrides:
  Application Caches:
    min_size: 200MB
  System Logs:
    pattern: '\.log$|\.log\.[0-9]+$|\.old$'
    risk: high

disk_history:
  retention_days: 30
  sample_interval: "@hourly"

daemon:
  # pid_file: ~/.config/tidyrules/tidyrulesd.pid

notifications:
  enabled: false
  on_success: false
  on_failure: true
  webhook:
    url: https://hooks.example.com/tidyrules
    method: POST
    headers:
      Authorization: Bearer token
  email:
    smtp_host: smtp.example.com
    smtp_port: 587
    username: me
    password: secret
    from: tidyrules@example.com
    to:
      - me@example.com
`
}
