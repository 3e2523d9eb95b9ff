package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "sqlite://test.db")
	t.Setenv("START_URL", "https://auto.ria.com/uk/car/used/")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.ConcurrentRequests)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.Equal(t, "12:00", cfg.ScrapeTime)
	assert.Equal(t, "12:05", cfg.DumpTime)
	assert.Equal(t, PhoneStrategyAPI, cfg.PhoneStrategy)
	assert.Equal(t, 7, cfg.MaxDumps)
	assert.Contains(t, cfg.UserAgent, "Mozilla/5.0")
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONCURRENT_REQUESTS", "4")
	t.Setenv("REQUEST_TIMEOUT", "12")
	t.Setenv("RETRY_DELAY", "250ms")
	t.Setenv("PHONE_STRATEGY", "BROWSER")
	t.Setenv("REQUEST_RPS", "2.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.ConcurrentRequests)
	assert.Equal(t, 12*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, PhoneStrategyBrowser, cfg.PhoneStrategy)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := `
database_url: postgres://u:p@localhost/cars
start_url: https://auto.ria.com/uk/car/used/
concurrent_requests: 6
retry_delay: 2s
dump_format: csv
max_pages: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))
	t.Setenv("MAX_PAGES", "9")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost/cars", cfg.DatabaseURL)
	assert.Equal(t, 6, cfg.ConcurrentRequests)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, DumpFormatCSV, cfg.DumpFormat)
	assert.Equal(t, 9, cfg.MaxPages, "env wins over yaml")
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.DatabaseURL = "sqlite://x.db"
		c.StartURL = "https://auto.ria.com/uk/car/used/"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }},
		{"missing start url", func(c *Config) { c.StartURL = "" }},
		{"relative start url", func(c *Config) { c.StartURL = "/uk/car/used/" }},
		{"bad scrape time", func(c *Config) { c.ScrapeTime = "noon" }},
		{"bad dump time", func(c *Config) { c.DumpTime = "25:00" }},
		{"zero concurrency", func(c *Config) { c.ConcurrentRequests = 0 }},
		{"zero attempts", func(c *Config) { c.RetryAttempts = 0 }},
		{"unknown phone strategy", func(c *Config) { c.PhoneStrategy = "sms" }},
		{"unknown dump format", func(c *Config) { c.DumpFormat = "zip" }},
		{"negative pages", func(c *Config) { c.MaxPages = -1 }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestValidTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"12:00", true},
		{"00:05", true},
		{"23:59", true},
		{"24:00", false},
		{"12:60", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidTimeOfDay(tt.in); got != tt.want {
			t.Errorf("ValidTimeOfDay(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}
