package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Apify     ApifyConfig     `mapstructure:"apify"`
	Drive     DriveConfig     `mapstructure:"drive"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration (serve mode only)
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LedgerConfig holds the ledger database configuration
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// SheetsConfig holds the Google Sheets account-source configuration.
// When SpreadsheetID is empty the static fallback list is used.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Range           string `mapstructure:"range"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	FallbackHandles string `mapstructure:"fallback_handles"`
}

// ApifyConfig holds the Apify content-fetcher configuration
type ApifyConfig struct {
	Token   string        `mapstructure:"token"`
	ActorID string        `mapstructure:"actor_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DriveConfig holds the Google Drive archiver configuration
type DriveConfig struct {
	CredentialsJSON string `mapstructure:"credentials_json"`
	FolderID        string `mapstructure:"folder_id"`
}

// SlackConfig holds the Slack notifier configuration
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// SchedulerConfig holds scheduler configuration (serve mode only)
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("ledger.path", "tiktok_state.db")

	viper.SetDefault("sheets.range", "A:C")

	viper.SetDefault("apify.actor_id", "igview-owner~tiktok-story-viewer")
	viper.SetDefault("apify.timeout", "5m")

	viper.SetDefault("scheduler.interval_minutes", 30)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Ledger
	viper.BindEnv("ledger.path", "STATE_DB_PATH")

	// Google Sheets
	viper.BindEnv("sheets.spreadsheet_id", "GOOGLE_SHEET_ID")
	viper.BindEnv("sheets.range", "GOOGLE_SHEET_RANGE")
	viper.BindEnv("sheets.credentials_json", "GOOGLE_CREDENTIALS_JSON")
	viper.BindEnv("sheets.fallback_handles", "MONITORED_ACCOUNTS")

	// Apify
	viper.BindEnv("apify.token", "APIFY_API_TOKEN")
	viper.BindEnv("apify.actor_id", "APIFY_ACTOR_ID")
	viper.BindEnv("apify.timeout", "APIFY_TIMEOUT")

	// Google Drive
	viper.BindEnv("drive.credentials_json", "GOOGLE_CREDENTIALS_JSON")
	viper.BindEnv("drive.folder_id", "GOOGLE_DRIVE_FOLDER_ID")

	// Slack
	viper.BindEnv("slack.webhook_url", "SLACK_WEBHOOK_URL")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger path is required")
	}

	if c.Apify.Token == "" {
		return fmt.Errorf("apify token is required")
	}

	if c.Sheets.SpreadsheetID == "" && c.Sheets.FallbackHandles == "" {
		return fmt.Errorf("either a spreadsheet id or a fallback account list is required")
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsJSON == "" {
		return fmt.Errorf("google credentials are required when a spreadsheet is configured")
	}

	if c.Drive.FolderID != "" && c.Drive.CredentialsJSON == "" {
		return fmt.Errorf("google credentials are required when a drive folder is configured")
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}
