package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobradar/internal/model"
)

// Config is the root configuration for jobradar.
type Config struct {
	CheckInterval time.Duration
	// Schedule is an optional cron expression; it wins over CheckInterval.
	Schedule     string
	Search       SearchConfig
	Filters      FilterConfig
	Store        StoreConfig
	Notification NotificationConfig
	LockFile     string
}

// SearchConfig controls what is searched and how politely.
type SearchConfig struct {
	Keywords       []string
	Location       string
	Concurrency    int
	Politeness     time.Duration // minimum gap between requests to the same source
	RequestTimeout time.Duration
	Sources        []SourceConfig
}

// EnabledSources returns the enabled sources in configured order.
func (s SearchConfig) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, src := range s.Sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}

// SourceConfig describes one listing site.
type SourceConfig struct {
	Name       model.Source `yaml:"name"`
	Enabled    bool         `yaml:"enabled"`
	BaseURL    string       `yaml:"base_url"`
	MaxResults int          `yaml:"max_results"`
}

// FilterConfig holds the title exclusions and the notification threshold.
type FilterConfig struct {
	ExcludeKeywords []string
	MinNewForNotify int
}

// StoreConfig selects the dedup store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// NotificationConfig controls how batches are delivered.
type NotificationConfig struct {
	Type      string // "email" or "log"
	Recipient string
	Sender    string
	SMTP      SMTPConfig
	API       APIConfig
}

// SMTPConfig configures the primary (SMTP relay) channel.
type SMTPConfig struct {
	Host           string
	Username       string
	Password       string
	KeyringAccount string
	Variants       []VariantConfig
	Attempts       int
	Backoff        time.Duration
	MaxBackoff     time.Duration // zero means uncapped
	Timeout        time.Duration
}

// VariantConfig is one port and security mode to try.
type VariantConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

// APIConfig configures the secondary (HTTP API) channel. It is only used
// when Key is set.
type APIConfig struct {
	Key      string `yaml:"key"`
	Endpoint string `yaml:"endpoint"`
}

const placeholderSender = "your_email@gmail.com"

var (
	defaultKeywords = []string{
		"new grad", "fresher", "entry level", "internship",
		"trainee", "graduate", "junior", "associate",
	}
	defaultExclude = []string{
		"senior", "lead", "manager", "director", "vp", "5+ years", "10+ years",
	}
	defaultVariants = []VariantConfig{
		{Port: 587, Mode: "starttls"},
		{Port: 465, Mode: "tls"},
		{Port: 25, Mode: "opportunistic"},
	}
	validModes = map[string]bool{"starttls": true, "tls": true, "opportunistic": true, "plain": true}
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	CheckInterval string                `yaml:"check_interval"`
	Schedule      string                `yaml:"schedule"`
	Search        rawSearchConfig       `yaml:"search"`
	Filters       rawFilterConfig       `yaml:"filters"`
	Store         StoreConfig           `yaml:"store"`
	Notification  rawNotificationConfig `yaml:"notification"`
	LockFile      string                `yaml:"lock_file"`
}

type rawSearchConfig struct {
	Keywords        []string       `yaml:"keywords"`
	Location        string         `yaml:"location"`
	Concurrency     int            `yaml:"concurrency"`
	PolitenessDelay string         `yaml:"politeness_delay"`
	RequestTimeout  string         `yaml:"request_timeout"`
	Sources         []SourceConfig `yaml:"sources"`
}

type rawFilterConfig struct {
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	MinNewForNotify int      `yaml:"min_new_for_notify"`
}

type rawNotificationConfig struct {
	Type      string        `yaml:"type"`
	Recipient string        `yaml:"recipient"`
	Sender    string        `yaml:"sender"`
	SMTP      rawSMTPConfig `yaml:"smtp"`
	API       APIConfig     `yaml:"api"`
}

type rawSMTPConfig struct {
	Host           string          `yaml:"host"`
	Username       string          `yaml:"username"`
	Password       string          `yaml:"password"`
	KeyringAccount string          `yaml:"keyring_account"`
	Variants       []VariantConfig `yaml:"variants"`
	Attempts       int             `yaml:"attempts"`
	Backoff        string          `yaml:"backoff"`
	MaxBackoff     string          `yaml:"max_backoff"`
	Timeout        string          `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, applies environment
// overrides, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return build(raw)
}

// LoadOrDefault behaves like Load, except that a missing file yields the
// defaults plus environment overrides.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return build(rawConfig{})
	}
	return cfg, err
}

func build(raw rawConfig) (*Config, error) {
	var err error
	cfg := &Config{
		Schedule: strings.TrimSpace(raw.Schedule),
		LockFile: raw.LockFile,
		Store:    raw.Store,
	}

	if cfg.CheckInterval, err = parseDuration("check_interval", raw.CheckInterval, 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.Search = SearchConfig{
		Keywords:    raw.Search.Keywords,
		Location:    raw.Search.Location,
		Concurrency: raw.Search.Concurrency,
		Sources:     raw.Search.Sources,
	}
	if cfg.Search.Keywords == nil {
		cfg.Search.Keywords = append([]string(nil), defaultKeywords...)
	}
	if cfg.Search.Location == "" {
		cfg.Search.Location = "India"
	}
	if cfg.Search.Concurrency == 0 {
		cfg.Search.Concurrency = 1
	}
	if cfg.Search.Politeness, err = parseDuration("search.politeness_delay", raw.Search.PolitenessDelay, 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Search.RequestTimeout, err = parseDuration("search.request_timeout", raw.Search.RequestTimeout, 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Search.Sources == nil {
		for _, src := range model.AllSources {
			cfg.Search.Sources = append(cfg.Search.Sources, SourceConfig{Name: src, Enabled: true})
		}
	}

	cfg.Filters = FilterConfig{
		ExcludeKeywords: raw.Filters.ExcludeKeywords,
		MinNewForNotify: raw.Filters.MinNewForNotify,
	}
	if cfg.Filters.ExcludeKeywords == nil {
		cfg.Filters.ExcludeKeywords = append([]string(nil), defaultExclude...)
	}
	if cfg.Filters.MinNewForNotify == 0 {
		cfg.Filters.MinNewForNotify = 1
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = "jobs.db"
	}
	if cfg.LockFile == "" {
		cfg.LockFile = "jobradar.lock"
	}

	n := raw.Notification
	cfg.Notification = NotificationConfig{
		Type:      n.Type,
		Recipient: n.Recipient,
		Sender:    n.Sender,
		API:       n.API,
		SMTP: SMTPConfig{
			Host:           n.SMTP.Host,
			Username:       n.SMTP.Username,
			Password:       n.SMTP.Password,
			KeyringAccount: n.SMTP.KeyringAccount,
			Variants:       n.SMTP.Variants,
			Attempts:       n.SMTP.Attempts,
		},
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "email"
	}
	if cfg.Notification.SMTP.Host == "" {
		cfg.Notification.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.Notification.SMTP.Variants == nil {
		cfg.Notification.SMTP.Variants = append([]VariantConfig(nil), defaultVariants...)
	}
	if cfg.Notification.SMTP.Attempts == 0 {
		cfg.Notification.SMTP.Attempts = 3
	}
	if cfg.Notification.SMTP.Backoff, err = parseDuration("notification.smtp.backoff", n.SMTP.Backoff, 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Notification.SMTP.MaxBackoff, err = parseDuration("notification.smtp.max_backoff", n.SMTP.MaxBackoff, 0); err != nil {
		return nil, err
	}
	if cfg.Notification.SMTP.Timeout, err = parseDuration("notification.smtp.timeout", n.SMTP.Timeout, 30*time.Second); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	// The sender doubles as the SMTP login unless one is given.
	if cfg.Notification.SMTP.Username == "" {
		cfg.Notification.SMTP.Username = cfg.Notification.Sender
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

// applyEnv applies the environment variables a container deployment sets.
// They override the file.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("SMTP_SERVER"); ok && v != "" {
		cfg.Notification.SMTP.Host = v
	}
	if v, ok := os.LookupEnv("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SMTP_PORT %q: %w", v, err)
		}
		cfg.Notification.SMTP.Variants = preferPort(cfg.Notification.SMTP.Variants, port)
	}
	if v, ok := os.LookupEnv("SENDER_EMAIL"); ok && v != "" {
		cfg.Notification.Sender = v
	}
	if v, ok := os.LookupEnv("SENDER_PASSWORD"); ok && v != "" {
		cfg.Notification.SMTP.Password = v
	}
	if v, ok := os.LookupEnv("RECIPIENT_EMAIL"); ok && v != "" {
		cfg.Notification.Recipient = v
	}
	if v, ok := os.LookupEnv("CHECK_INTERVAL_MINUTES"); ok && v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CHECK_INTERVAL_MINUTES %q: %w", v, err)
		}
		cfg.CheckInterval = time.Duration(mins) * time.Minute
	}
	if v, ok := os.LookupEnv("MIN_JOBS_FOR_EMAIL"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MIN_JOBS_FOR_EMAIL %q: %w", v, err)
		}
		cfg.Filters.MinNewForNotify = n
	}
	if v, ok := os.LookupEnv("SENDGRID_API_KEY"); ok && v != "" {
		cfg.Notification.API.Key = v
	}
	return nil
}

// preferPort moves the variant for port to the front, adding one if absent.
func preferPort(variants []VariantConfig, port int) []VariantConfig {
	out := make([]VariantConfig, 0, len(variants)+1)
	var preferred *VariantConfig
	for i := range variants {
		if variants[i].Port == port && preferred == nil {
			preferred = &variants[i]
			continue
		}
		out = append(out, variants[i])
	}
	if preferred == nil {
		mode := "starttls"
		if port == 465 {
			mode = "tls"
		}
		preferred = &VariantConfig{Port: port, Mode: mode}
	}
	return append([]VariantConfig{*preferred}, out...)
}

func validate(cfg *Config) error {
	if cfg.Schedule == "" && cfg.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %v", cfg.CheckInterval)
	}
	if len(cfg.Search.Keywords) == 0 && hasKeywordSource(cfg.Search.EnabledSources()) {
		return fmt.Errorf("search.keywords must not be empty")
	}
	if cfg.Search.Concurrency < 1 {
		return fmt.Errorf("search.concurrency must be at least 1, got %d", cfg.Search.Concurrency)
	}
	if cfg.Search.Politeness < 0 {
		return fmt.Errorf("search.politeness_delay must not be negative, got %v", cfg.Search.Politeness)
	}
	if cfg.Search.RequestTimeout <= 0 {
		return fmt.Errorf("search.request_timeout must be positive, got %v", cfg.Search.RequestTimeout)
	}

	seen := make(map[model.Source]bool)
	for _, src := range cfg.Search.Sources {
		if !isKnownSource(src.Name) {
			return fmt.Errorf("search.sources: unknown source %q", src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("search.sources: %q listed twice", src.Name)
		}
		seen[src.Name] = true
	}
	if len(cfg.Search.EnabledSources()) == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.Filters.MinNewForNotify < 1 {
		return fmt.Errorf("filters.min_new_for_notify must be at least 1, got %d", cfg.Filters.MinNewForNotify)
	}

	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver)
	}

	switch cfg.Notification.Type {
	case "log":
	case "email":
		if err := validateEmail(cfg.Notification); err != nil {
			return err
		}
	default:
		return fmt.Errorf("notification.type must be \"email\" or \"log\", got %q", cfg.Notification.Type)
	}
	return nil
}

func validateEmail(n NotificationConfig) error {
	if n.Sender == "" || n.Sender == placeholderSender {
		return fmt.Errorf("notification.sender is not configured (set it in the config file or SENDER_EMAIL)")
	}
	if n.Recipient == "" {
		return fmt.Errorf("notification.recipient is required when type is \"email\"")
	}
	if n.SMTP.Host == "" {
		return fmt.Errorf("notification.smtp.host is required when type is \"email\"")
	}
	if n.SMTP.Attempts < 1 {
		return fmt.Errorf("notification.smtp.attempts must be at least 1, got %d", n.SMTP.Attempts)
	}
	if n.SMTP.Backoff < 0 {
		return fmt.Errorf("notification.smtp.backoff must not be negative, got %v", n.SMTP.Backoff)
	}
	if n.SMTP.MaxBackoff < 0 {
		return fmt.Errorf("notification.smtp.max_backoff must not be negative, got %v", n.SMTP.MaxBackoff)
	}
	if len(n.SMTP.Variants) == 0 {
		return fmt.Errorf("notification.smtp.variants must not be empty")
	}
	for _, v := range n.SMTP.Variants {
		if v.Port <= 0 || v.Port > 65535 {
			return fmt.Errorf("notification.smtp.variants: invalid port %d", v.Port)
		}
		if !validModes[strings.ToLower(v.Mode)] {
			return fmt.Errorf("notification.smtp.variants: unknown mode %q for port %d", v.Mode, v.Port)
		}
	}
	return nil
}

func isKnownSource(s model.Source) bool {
	for _, known := range model.AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// Internshala ignores keywords, so it can run without any.
func hasKeywordSource(sources []SourceConfig) bool {
	for _, s := range sources {
		if s.Name != model.SourceInternshala {
			return true
		}
	}
	return false
}
