package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekker/factuurstroom/internal/common"
)

func setRequired(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("platform.endpoint", "https://platform.example/mcp")
	viper.Set("platform.token", "secret")
	viper.Set("llm.api_key", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Gate.AutoBook)
	assert.Equal(t, 70, cfg.Gate.FlagReview)
	assert.Equal(t, int64(100000), cfg.Gate.ReviewAmount)
	assert.Equal(t, "@every 15m", cfg.ScheduleSpec)
	assert.Contains(t, cfg.DatabasePath, "factuurstroom.db")
	assert.Equal(t, "https://platform.example/mcp", cfg.Document.BaseURL)
	assert.False(t, cfg.EmailConfigured())
	assert.False(t, cfg.SMSConfigured())
}

func TestLoadMissingRequired(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("platform.endpoint", "https://platform.example/mcp")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
	assert.Contains(t, err.Error(), "platform.token")
	assert.Contains(t, err.Error(), "llm.api_key")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	viper.Set("gate.auto_book", 95)
	viper.Set("gate.review_amount", 50000)
	viper.Set("notify.email.from", "alerts@example.com")
	viper.Set("notify.email.to", []string{"boekhouding@example.com"})
	viper.Set("platform.document_base_url", "https://files.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 95, cfg.Gate.AutoBook)
	assert.Equal(t, int64(50000), cfg.Gate.ReviewAmount)
	assert.True(t, cfg.EmailConfigured())
	assert.Equal(t, "https://files.example", cfg.Document.BaseURL)
}

func TestLoadInvalidThresholds(t *testing.T) {
	setRequired(t)
	viper.Set("gate.auto_book", 60)
	viper.Set("gate.flag_review", 80)

	_, err := Load()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("FACTUUR_TEST_DIR", "/tmp/factuur")
	assert.Equal(t, "/tmp/factuur/db.sqlite", ExpandPath("$FACTUUR_TEST_DIR/db.sqlite"))
	assert.Equal(t, "", ExpandPath(""))
	assert.NotContains(t, ExpandPath("~/data"), "~")
}
