// Package config provides configuration management for the application.
//
// Values are resolved in this order: built-in defaults, the YAML file (with
// ${VAR} and ${VAR:-default} placeholders expanded), then environment variables.
// A .env file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Telegram transport modes.
const (
	TelegramPolling  = "polling"
	TelegramWebhook  = "webhook"
	TelegramDisabled = "disabled"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Cache    CacheConfig    `yaml:"cache"`
	HTTP     HTTPConfig     `yaml:"http"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
	Query    QueryConfig    `yaml:"query"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string `yaml:"port"`
	BodySizeLimit string `yaml:"body_size_limit"`
	// APIKey protects /v1/* with a bearer token when set.
	APIKey string `yaml:"api_key"`
}

// SourceConfig describes where timetables are published.
type SourceConfig struct {
	IndexURL string `yaml:"index_url"`
	Timezone string `yaml:"timezone"`
	// Schools maps a chat keyword (e.g. "manerbio") to that school's index page.
	Schools map[string]string `yaml:"schools"`
}

// Location loads the configured timezone.
func (s SourceConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// CacheConfig holds index cache settings
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the cache lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// HTTPConfig configures the outbound client used to download pages.
type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
}

// Timeout returns the request timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// TelegramConfig holds bot credentials and the update delivery mode.
type TelegramConfig struct {
	Token              string `yaml:"token"`
	Mode               string `yaml:"mode"`
	APIURL             string `yaml:"api_url"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
	// WebhookSecret is compared with X-Telegram-Bot-Api-Secret-Token in webhook mode.
	WebhookSecret string `yaml:"webhook_secret"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Format is one of auto, pretty, json.
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// QueryConfig bounds user input and output.
type QueryConfig struct {
	MaxLength     int `yaml:"max_length"`
	MaxCandidates int `yaml:"max_candidates"`
}

// defaultConfigPaths are tried in order when Load is called without a path.
var defaultConfigPaths = []string{"config.yaml", "config/config.yaml"}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "64K",
		},
		Source: SourceConfig{
			Timezone: "Europe/Rome",
			// keywords are recognised in chat even while their URL is unset
			Schools: map[string]string{"manerbio": "", "verolanuova": ""},
		},
		Cache: CacheConfig{
			TTLSeconds: 6 * 60 * 60,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 25,
			UserAgent:      "Mozilla/5.0 (OrarioBot/1.0)",
			MaxBodyBytes:   5 * 1024 * 1024,
		},
		Telegram: TelegramConfig{
			Mode:               TelegramPolling,
			APIURL:             "https://api.telegram.org",
			PollTimeoutSeconds: 30,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
		Log: LogConfig{
			Format: "auto",
			Level:  "info",
		},
		Query: QueryConfig{
			MaxLength:     60,
			MaxCandidates: 30,
		},
	}
}

// Load reads configuration from path, or from the first default location that
// exists when path is empty, and applies environment overrides.
// The Telegram token is not checked here; see RequireTelegram.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := buildDefaultConfig()

	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := decodeYAML(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return data, nil
	}
	for _, candidate := range defaultConfigPaths {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s: %w", candidate, err)
		}
	}
	return nil, nil
}

// decodeYAML expands placeholders in every scalar before decoding into cfg, so
// numeric and boolean fields can be driven by environment variables too.
func decodeYAML(data []byte, cfg *Config) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if root.Kind == 0 {
		return nil
	}
	expandNode(&root)
	if err := root.Decode(cfg); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

func expandNode(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		expanded := expandString(n.Value)
		if expanded != n.Value {
			n.Value = expanded
			if n.Style == 0 {
				n.Tag = ""
			}
		}
		return
	}
	for _, child := range n.Content {
		expandNode(child)
	}
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. A placeholder whose
// variable is unset or empty and has no default is left untouched.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasDefault {
			return def
		}
		return match
	})
}

func applyEnvOverrides(cfg *Config) error {
	setString("PORT", &cfg.Server.Port)
	setString("API_KEY", &cfg.Server.APIKey)
	setString("URL_INDICE", &cfg.Source.IndexURL)
	setString("TIMEZONE", &cfg.Source.Timezone)
	setString("HTTP_USER_AGENT", &cfg.HTTP.UserAgent)
	setString("BOT_TOKEN", &cfg.Telegram.Token)
	setString("TELEGRAM_MODE", &cfg.Telegram.Mode)
	setString("TELEGRAM_WEBHOOK_SECRET", &cfg.Telegram.WebhookSecret)
	setString("LOG_FORMAT", &cfg.Log.Format)
	setString("LOG_LEVEL", &cfg.Log.Level)

	if cfg.Source.Schools == nil {
		cfg.Source.Schools = map[string]string{}
	}
	for key, env := range map[string]string{
		"manerbio":    "URL_MANERBIO",
		"verolanuova": "URL_VEROLANUOVA",
	} {
		if v := os.Getenv(env); v != "" {
			cfg.Source.Schools[key] = v
		}
	}

	if err := setInt("CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds); err != nil {
		return err
	}
	if err := setInt("HTTP_TIMEOUT", &cfg.HTTP.TimeoutSeconds); err != nil {
		return err
	}
	return setBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
}

func setString(env string, dst *string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(env string, dst *int) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", env, v, err)
	}
	*dst = n
	return nil
}

func setBool(env string, dst *bool) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", env, v, err)
	}
	*dst = b
	return nil
}

func (c *Config) validate() error {
	if c.Source.IndexURL == "" {
		c.Source.IndexURL = c.firstSchoolURL()
	}
	if c.Source.IndexURL == "" {
		return errors.New("no index url configured: set URL_INDICE, URL_MANERBIO or URL_VEROLANUOVA")
	}
	if _, err := c.Source.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Source.Timezone, err)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.Query.MaxLength <= 0 || c.Query.MaxCandidates <= 0 {
		return errors.New("query.max_length and query.max_candidates must be positive")
	}
	switch c.Telegram.Mode {
	case TelegramPolling, TelegramWebhook, TelegramDisabled:
	default:
		return fmt.Errorf("telegram.mode must be polling, webhook or disabled, got %q", c.Telegram.Mode)
	}
	switch c.Log.Format {
	case "auto", "pretty", "json":
	default:
		return fmt.Errorf("log.format must be auto, pretty or json, got %q", c.Log.Format)
	}
	return nil
}

// firstSchoolURL returns the URL of the alphabetically first school keyword
// that has one.
func (c *Config) firstSchoolURL() string {
	keys := make([]string, 0, len(c.Source.Schools))
	for k, u := range c.Source.Schools {
		if strings.TrimSpace(u) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return c.Source.Schools[keys[0]]
}

// RequireTelegram reports whether the bot can start with this configuration.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Mode != TelegramDisabled && c.Telegram.Token == "" {
		return errors.New("BOT_TOKEN is required unless telegram.mode is disabled")
	}
	return nil
}
