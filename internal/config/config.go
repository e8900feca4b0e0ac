package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRefreshSchedule = "@every 30s"
	DefaultGroupLayout     = "Jan, 02, 2006, 03:04 PM"
	DefaultFetchTimeout    = 15 * time.Second
)

// Config is the top-level inbox configuration.
type Config struct {
	Desk   DeskConfig   `json:"desk" yaml:"desk"`
	API    APIConfig    `json:"api" yaml:"api"`
	Client ClientConfig `json:"client" yaml:"client"`
	Inbox  InboxConfig  `json:"inbox" yaml:"inbox"`
}

// DeskConfig holds settings for the reference ticket service daemon.
type DeskConfig struct {
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"` // default <data_dir>/tickets.db
	Seed     bool   `json:"seed,omitempty" yaml:"seed,omitempty"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host           string   `json:"host" yaml:"host"`
	Port           int      `json:"port" yaml:"port"`
	Key            string   `json:"api_key" yaml:"api_key"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// ClientConfig tells deskctl where the ticket service lives.
type ClientConfig struct {
	BaseURL string   `json:"base_url" yaml:"base_url"`
	APIKey  string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// InboxConfig holds agent-facing inbox settings.
type InboxConfig struct {
	PageSize int `json:"page_size" yaml:"page_size"`
	// RefreshSchedule is a cron spec for periodic list reloads; "off"
	// disables them.
	RefreshSchedule string         `json:"refresh_schedule" yaml:"refresh_schedule"`
	Grouping        GroupingConfig `json:"grouping" yaml:"grouping"`
	FetchTimeout    Duration       `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"`
}

// GroupingConfig controls how conversation messages are bucketed. Layout
// is a Go time layout; its finest field sets the bucket grain.
type GroupingConfig struct {
	Layout   string `json:"layout" yaml:"layout"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// RefreshEnabled reports whether periodic refresh is configured.
func (c InboxConfig) RefreshEnabled() bool {
	s := strings.ToLower(strings.TrimSpace(c.RefreshSchedule))
	return s != "" && s != "off"
}

// Location resolves the grouping timezone; empty means local time.
func (g GroupingConfig) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(g.Timezone)
}

// DatabasePath returns the SQLite path for the daemon.
func (d DeskConfig) DatabasePath() string {
	if d.Database != "" {
		return d.Database
	}
	return filepath.Join(d.DataDir, "tickets.db")
}

// Duration is a time.Duration written as a string ("15s", "2m") in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration: expected a string like \"15s\": %w", err)
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Desk.DataDir == "" {
		c.Desk.DataDir = "data"
	}
	if c.Desk.LogLevel == "" {
		c.Desk.LogLevel = "info"
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = "http://localhost:8080/api"
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = Duration(30 * time.Second)
	}
	if c.Inbox.PageSize == 0 {
		c.Inbox.PageSize = 10
	}
	if c.Inbox.RefreshSchedule == "" {
		c.Inbox.RefreshSchedule = DefaultRefreshSchedule
	}
	if c.Inbox.Grouping.Layout == "" {
		c.Inbox.Grouping.Layout = DefaultGroupLayout
	}
	if c.Inbox.FetchTimeout == 0 {
		c.Inbox.FetchTimeout = Duration(DefaultFetchTimeout)
	}
}

// Load reads configuration from a file. Files ending in .yaml or .yml are
// parsed as YAML; anything else as JSON, where comments and trailing
// commas are allowed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with the INBOX_
// prefix. A .env file in the working directory is read first if present;
// variables already set in the environment win.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Desk: DeskConfig{
			DataDir:  os.Getenv("INBOX_DATA_DIR"),
			Database: os.Getenv("INBOX_DATABASE"),
			Seed:     getenvBool("INBOX_SEED", false),
			LogLevel: os.Getenv("INBOX_LOG_LEVEL"),
		},
		API: APIConfig{
			Host: os.Getenv("INBOX_API_HOST"),
			Port: getenvInt("INBOX_API_PORT", 0),
			Key:  os.Getenv("INBOX_API_KEY"),
		},
		Client: ClientConfig{
			BaseURL: os.Getenv("INBOX_BASE_URL"),
			APIKey:  getenv("INBOX_CLIENT_API_KEY", os.Getenv("INBOX_API_KEY")),
		},
		Inbox: InboxConfig{
			PageSize:        getenvInt("INBOX_PAGE_SIZE", 0),
			RefreshSchedule: os.Getenv("INBOX_REFRESH_SCHEDULE"),
			Grouping: GroupingConfig{
				Layout:   os.Getenv("INBOX_GROUP_LAYOUT"),
				Timezone: os.Getenv("INBOX_TIMEZONE"),
			},
		},
	}
	if origins := os.Getenv("INBOX_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}
	if v := os.Getenv("INBOX_CLIENT_TIMEOUT"); v != "" {
		if err := cfg.Client.Timeout.parse(v); err != nil {
			return nil, fmt.Errorf("config: INBOX_CLIENT_TIMEOUT: %w", err)
		}
	}
	if v := os.Getenv("INBOX_FETCH_TIMEOUT"); v != "" {
		if err := cfg.Inbox.FetchTimeout.parse(v); err != nil {
			return nil, fmt.Errorf("config: INBOX_FETCH_TIMEOUT: %w", err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Desk.DataDir == "" && c.Desk.Database == "" {
		errs = append(errs, "desk.data_dir or desk.database is required")
	}
	switch strings.ToLower(c.Desk.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("desk.log_level %q is not one of debug, info, warn, error", c.Desk.LogLevel))
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}

	if u, err := url.Parse(c.Client.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("client.base_url %q must be an http(s) URL", c.Client.BaseURL))
	}
	if c.Client.Timeout < 0 {
		errs = append(errs, "client.timeout must not be negative")
	}

	switch c.Inbox.PageSize {
	case 10, 20, 50:
	default:
		errs = append(errs, fmt.Sprintf("inbox.page_size %d must be 10, 20 or 50", c.Inbox.PageSize))
	}
	if c.Inbox.RefreshEnabled() {
		if _, err := cron.ParseStandard(c.Inbox.RefreshSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("inbox.refresh_schedule %q: %v", c.Inbox.RefreshSchedule, err))
		}
	}
	if strings.TrimSpace(c.Inbox.Grouping.Layout) == "" {
		errs = append(errs, "inbox.grouping.layout is required")
	}
	if _, err := c.Inbox.Grouping.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("inbox.grouping.timezone %q: %v", c.Inbox.Grouping.Timezone, err))
	}
	if c.Inbox.FetchTimeout < 0 {
		errs = append(errs, "inbox.fetch_timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
