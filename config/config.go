package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Phone resolution strategies.
const (
	PhoneStrategyAPI     = "api"
	PhoneStrategyBrowser = "browser"
	PhoneStrategyNone    = "none"
)

// Dump formats.
const (
	DumpFormatPgDump = "pg_dump"
	DumpFormatCSV    = "csv"
)

// Config holds all application configuration. It is read once at start-up
// and treated as immutable afterwards.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	StartURL    string `yaml:"start_url"`
	ScrapeTime  string `yaml:"scrape_time"`
	DumpTime    string `yaml:"dump_time"`

	ConcurrentRequests int           `yaml:"concurrent_requests"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RetryAttempts      int           `yaml:"retry_attempts"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	RequestsPerSecond  float64       `yaml:"requests_per_second"`
	UserAgent          string        `yaml:"user_agent"`
	MaxPages           int           `yaml:"max_pages"`

	PhoneStrategy  string        `yaml:"phone_strategy"`
	ChromeBin      string        `yaml:"chrome_bin"`
	BrowserTimeout time.Duration `yaml:"browser_timeout"`

	DumpDir    string `yaml:"dump_dir"`
	MaxDumps   int    `yaml:"max_dumps"`
	DumpFormat string `yaml:"dump_format"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ScrapeTime:         "12:00",
		DumpTime:           "12:05",
		ConcurrentRequests: 10,
		RequestTimeout:     30 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         5 * time.Second,
		UserAgent:          defaultUserAgent,
		PhoneStrategy:      PhoneStrategyAPI,
		BrowserTimeout:     15 * time.Second,
		DumpDir:            "dumps",
		MaxDumps:           7,
		DumpFormat:         DumpFormatPgDump,
		LogLevel:           "info",
		LogFile:            "logs/scraper.log",
	}
}

// Load reads the .env file, applies the optional YAML file at path on top of
// the defaults, then lets environment variables override both. The result is
// validated before it is returned.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.StartURL = getEnv("START_URL", c.StartURL)
	c.ScrapeTime = getEnv("SCRAPE_TIME", c.ScrapeTime)
	c.DumpTime = getEnv("DUMP_TIME", c.DumpTime)

	c.ConcurrentRequests = getEnvInt("CONCURRENT_REQUESTS", c.ConcurrentRequests)
	c.RequestTimeout = getEnvSeconds("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RetryAttempts = getEnvInt("RETRY_ATTEMPTS", c.RetryAttempts)
	c.RetryDelay = getEnvSeconds("RETRY_DELAY", c.RetryDelay)
	c.RequestsPerSecond = getEnvFloat("REQUEST_RPS", c.RequestsPerSecond)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.MaxPages = getEnvInt("MAX_PAGES", c.MaxPages)

	c.PhoneStrategy = strings.ToLower(getEnv("PHONE_STRATEGY", c.PhoneStrategy))
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)
	c.BrowserTimeout = getEnvSeconds("BROWSER_TIMEOUT", c.BrowserTimeout)

	c.DumpDir = getEnv("DUMP_DIR", c.DumpDir)
	c.MaxDumps = getEnvInt("MAX_DUMPS", c.MaxDumps)
	c.DumpFormat = strings.ToLower(getEnv("DUMP_FORMAT", c.DumpFormat))

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL must be set", ErrInvalidConfig)
	}
	if c.StartURL == "" {
		return fmt.Errorf("%w: START_URL must be set", ErrInvalidConfig)
	}
	u, err := url.Parse(c.StartURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: START_URL %q is not an absolute http(s) URL", ErrInvalidConfig, c.StartURL)
	}
	if !ValidTimeOfDay(c.ScrapeTime) {
		return fmt.Errorf("%w: SCRAPE_TIME must be in HH:MM format", ErrInvalidConfig)
	}
	if !ValidTimeOfDay(c.DumpTime) {
		return fmt.Errorf("%w: DUMP_TIME must be in HH:MM format", ErrInvalidConfig)
	}
	if c.ConcurrentRequests < 1 {
		return fmt.Errorf("%w: CONCURRENT_REQUESTS must be positive", ErrInvalidConfig)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: RETRY_ATTEMPTS must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 || c.MaxPages < 0 || c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: RETRY_DELAY, MAX_PAGES and REQUEST_RPS cannot be negative", ErrInvalidConfig)
	}
	switch c.PhoneStrategy {
	case PhoneStrategyAPI, PhoneStrategyBrowser, PhoneStrategyNone:
	default:
		return fmt.Errorf("%w: unknown PHONE_STRATEGY %q", ErrInvalidConfig, c.PhoneStrategy)
	}
	switch c.DumpFormat {
	case DumpFormatPgDump, DumpFormatCSV:
	default:
		return fmt.Errorf("%w: unknown DUMP_FORMAT %q", ErrInvalidConfig, c.DumpFormat)
	}
	if c.MaxDumps < 1 {
		return fmt.Errorf("%w: MAX_DUMPS must be positive", ErrInvalidConfig)
	}
	return nil
}

// ValidTimeOfDay reports whether s is a 24h "HH:MM" time.
func ValidTimeOfDay(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

// getEnvSeconds reads a whole number of seconds, or a Go duration like "1500ms".
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return fallback
}
