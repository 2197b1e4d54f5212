// Package config loads the typed application configuration from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/document"
	"github.com/dekker/factuurstroom/internal/gate"
	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/notify"
	"github.com/dekker/factuurstroom/internal/platform"
)

// Config is the full application configuration.
type Config struct {
	DatabasePath string
	LocalDocPath string
	ScheduleSpec string

	Platform platform.Config
	Document document.Config
	LLM      llm.Config
	Gate     gate.Thresholds

	Email      notify.EmailConfig
	WebhookURL string
	SMS        notify.SMSConfig
}

// Load builds the configuration from viper and validates the settings
// without which no run can work. Missing required settings are fatal at
// startup, not at first use.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: viper.GetString("database.path"),
		LocalDocPath: ExpandPath(viper.GetString("document.local_path")),
		ScheduleSpec: viper.GetString("schedule.spec"),
		Platform: platform.Config{
			Endpoint: viper.GetString("platform.endpoint"),
			Token:    viper.GetString("platform.token"),
			AdminID:  viper.GetString("platform.admin_id"),
			Timeout:  viper.GetDuration("platform.timeout"),
		},
		LLM: llm.Config{
			Provider:    viper.GetString("llm.provider"),
			APIKey:      viper.GetString("llm.api_key"),
			Model:       viper.GetString("llm.model"),
			Temperature: viper.GetFloat64("llm.temperature"),
			MaxTokens:   viper.GetInt("llm.max_tokens"),
			RateLimit:   viper.GetInt("llm.rate_limit"),
			Timeout:     viper.GetDuration("llm.timeout"),
		},
		Gate: gate.DefaultThresholds(),
		Email: notify.EmailConfig{
			Region: viper.GetString("notify.email.region"),
			From:   viper.GetString("notify.email.from"),
			To:     viper.GetStringSlice("notify.email.to"),
		},
		WebhookURL: viper.GetString("notify.webhook.url"),
		SMS: notify.SMSConfig{
			GatewayURL: viper.GetString("notify.sms.gateway_url"),
			Token:      viper.GetString("notify.sms.token"),
			Recipients: viper.GetStringSlice("notify.sms.recipients"),
		},
	}

	if cfg.DatabasePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.DatabasePath = filepath.Join(home, ".local", "share", "factuurstroom", "factuurstroom.db")
	} else {
		cfg.DatabasePath = ExpandPath(cfg.DatabasePath)
	}

	if cfg.ScheduleSpec == "" {
		cfg.ScheduleSpec = "@every 15m"
	}

	if v := viper.GetInt("gate.auto_book"); v != 0 {
		cfg.Gate.AutoBook = v
	}
	if v := viper.GetInt("gate.flag_review"); v != 0 {
		cfg.Gate.FlagReview = v
	}
	if v := viper.GetInt64("gate.review_amount"); v != 0 {
		cfg.Gate.ReviewAmount = v
	}

	// Constructed attachment URLs default to the platform endpoint.
	cfg.Document = document.Config{
		BaseURL: viper.GetString("platform.document_base_url"),
		AdminID: cfg.Platform.AdminID,
		Token:   cfg.Platform.Token,
	}
	if cfg.Document.BaseURL == "" {
		cfg.Document.BaseURL = cfg.Platform.Endpoint
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Platform.Endpoint == "" {
		missing = append(missing, "platform.endpoint")
	}
	if c.Platform.Token == "" {
		missing = append(missing, "platform.token")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, strings.Join(missing, ", "))
	}

	if c.Gate.FlagReview > c.Gate.AutoBook {
		return fmt.Errorf("%w: gate.flag_review (%d) above gate.auto_book (%d)",
			common.ErrInvalidConfig, c.Gate.FlagReview, c.Gate.AutoBook)
	}
	return nil
}

// EmailConfigured reports whether the email channel has enough settings.
func (c *Config) EmailConfigured() bool {
	return c.Email.From != "" && len(c.Email.To) > 0
}

// SMSConfigured reports whether the SMS channel has enough settings.
func (c *Config) SMSConfigured() bool {
	return c.SMS.GatewayURL != "" && len(c.SMS.Recipients) > 0
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
