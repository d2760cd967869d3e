package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/steps"
)

const (
	defaultTimezone = "UTC"
	defaultHTTPAddr = ":8080"

	configPathEnv          = "LISTINGFLOW_CONFIG"
	databaseDriverEnv      = "DATABASE_DRIVER"
	databaseDSNEnv         = "DATABASE_DSN"
	httpAddrEnv            = "HTTP_ADDR"
	logLevelEnv            = "LOG_LEVEL"
	telegramTokenEnv       = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv      = "TELEGRAM_CHAT_ID"
	telegramAlertChatIDEnv = "TELEGRAM_ALERT_CHAT_ID"
	emailAPIKeyEnv         = "EMAIL_API_KEY"
	emailEndpointEnv       = "EMAIL_ENDPOINT"
)

// Database drivers understood by the storage layer.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Checklist  ChecklistConfig  `yaml:"checklist"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Publishing PublishingConfig `yaml:"publishing"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
}

// LoggingConfig selects slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig describes the SQL backend. An empty DSN keeps state in memory.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig holds the default timezone for schedule resolution and the
// lock file that keeps a second process from arming the same schedules.
type SchedulerConfig struct {
	Timezone string         `yaml:"timezone"`
	LockFile string         `yaml:"lockFile"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ChecklistConfig optionally replaces the embedded checklist definition.
type ChecklistConfig struct {
	Path string `yaml:"path"`
}

// WorkflowConfig sets the step template and the bulk pool size.
type WorkflowConfig struct {
	Steps       []steps.Template `yaml:"steps"`
	BulkWorkers int              `yaml:"bulkWorkers"`
}

// PublishingConfig lists the channels used when a request names none.
type PublishingConfig struct {
	Channels []ChannelConfig `yaml:"channels"`
}

// ChannelConfig is one default channel trigger. Enabled defaults to true.
type ChannelConfig struct {
	Channel string            `yaml:"channel"`
	Enabled *bool             `yaml:"enabled"`
	Offset  time.Duration     `yaml:"offset"`
	Payload map[string]string `yaml:"payload"`
}

// DispatchConfig encapsulates outbound channels (Telegram, email, webhooks).
type DispatchConfig struct {
	Timeout       time.Duration     `yaml:"timeout"`
	ExcerptLength int               `yaml:"excerptLength"`
	FetchPreviews bool              `yaml:"fetchPreviews"`
	Telegram      TelegramConfig    `yaml:"telegram"`
	Email         EmailConfig       `yaml:"email"`
	Webhooks      map[string]string `yaml:"webhooks"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIBase     string `yaml:"apiBase"`
	BotToken    string `yaml:"botToken"`
	ChatID      string `yaml:"chatId"`
	AlertChatID string `yaml:"alertChatId"`
}

// Enabled reports whether publication messages can be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// EmailConfig describes the newsletter API.
type EmailConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	From     string `yaml:"from"`
	ListID   string `yaml:"listId"`
}

// Enabled reports whether the email channel is configured.
func (e EmailConfig) Enabled() bool {
	return e.Endpoint != "" && e.APIKey != ""
}

// LockPath returns the scheduler lock file. A file-backed SQLite database gets
// a sibling lock by default; other setups lock only when configured.
func (c Config) LockPath() string {
	if c.Scheduler.LockFile != "" {
		return c.Scheduler.LockFile
	}
	dsn := strings.TrimPrefix(c.Database.DSN, "file:")
	if c.Database.Driver != DriverSQLite || dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn + ".lock"
}

// Load reads the YAML file named by LISTINGFLOW_CONFIG (if any).
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile reads YAML configuration (if present) and applies environment overrides.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// DefaultChannels converts the publishing section, skipping invalid channel ids.
func (c Config) DefaultChannels() []domain.ChannelTrigger {
	out := make([]domain.ChannelTrigger, 0, len(c.Publishing.Channels))
	for _, ch := range c.Publishing.Channels {
		channel, err := domain.ParseChannel(ch.Channel)
		if err != nil {
			log.Printf("config: skipping publishing channel: %v", err)
			continue
		}
		enabled := true
		if ch.Enabled != nil {
			enabled = *ch.Enabled
		}
		out = append(out, domain.ChannelTrigger{
			Channel: channel,
			Enabled: enabled,
			Offset:  ch.Offset,
			Payload: domain.Payload(ch.Payload).Clone(),
		})
	}
	return out
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Dispatch.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Dispatch.Telegram.ChatID = v
	}

	if v := os.Getenv(telegramAlertChatIDEnv); v != "" {
		c.Dispatch.Telegram.AlertChatID = v
	}

	if v := os.Getenv(emailAPIKeyEnv); v != "" {
		c.Dispatch.Email.APIKey = v
	}

	if v := os.Getenv(emailEndpointEnv); v != "" {
		c.Dispatch.Email.Endpoint = v
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
		c.Scheduler.Timezone = defaultTimezone
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.LockFile != "" {
		base.Scheduler.LockFile = override.Scheduler.LockFile
	}

	if override.Checklist.Path != "" {
		base.Checklist.Path = override.Checklist.Path
	}

	if len(override.Workflow.Steps) > 0 {
		base.Workflow.Steps = override.Workflow.Steps
	}
	if override.Workflow.BulkWorkers > 0 {
		base.Workflow.BulkWorkers = override.Workflow.BulkWorkers
	}

	if len(override.Publishing.Channels) > 0 {
		base.Publishing.Channels = override.Publishing.Channels
	}

	if override.Dispatch.Timeout > 0 {
		base.Dispatch.Timeout = override.Dispatch.Timeout
	}
	if override.Dispatch.ExcerptLength > 0 {
		base.Dispatch.ExcerptLength = override.Dispatch.ExcerptLength
	}
	if override.Dispatch.FetchPreviews {
		base.Dispatch.FetchPreviews = true
	}
	if override.Dispatch.Telegram.APIBase != "" {
		base.Dispatch.Telegram.APIBase = override.Dispatch.Telegram.APIBase
	}
	if override.Dispatch.Telegram.BotToken != "" {
		base.Dispatch.Telegram.BotToken = override.Dispatch.Telegram.BotToken
	}
	if override.Dispatch.Telegram.ChatID != "" {
		base.Dispatch.Telegram.ChatID = override.Dispatch.Telegram.ChatID
	}
	if override.Dispatch.Telegram.AlertChatID != "" {
		base.Dispatch.Telegram.AlertChatID = override.Dispatch.Telegram.AlertChatID
	}
	if override.Dispatch.Email.Endpoint != "" {
		base.Dispatch.Email.Endpoint = override.Dispatch.Email.Endpoint
	}
	if override.Dispatch.Email.APIKey != "" {
		base.Dispatch.Email.APIKey = override.Dispatch.Email.APIKey
	}
	if override.Dispatch.Email.From != "" {
		base.Dispatch.Email.From = override.Dispatch.Email.From
	}
	if override.Dispatch.Email.ListID != "" {
		base.Dispatch.Email.ListID = override.Dispatch.Email.ListID
	}
	if len(override.Dispatch.Webhooks) > 0 {
		base.Dispatch.Webhooks = override.Dispatch.Webhooks
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		HTTP:      HTTPConfig{Addr: defaultHTTPAddr},
		Database:  DatabaseConfig{Driver: DriverSQLite, DSN: ""},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, location: tz},
		Workflow:  WorkflowConfig{Steps: steps.DefaultTemplate(), BulkWorkers: 4},
		Publishing: PublishingConfig{
			Channels: []ChannelConfig{
				{Channel: string(domain.ChannelContent)},
				{Channel: "social:telegram"},
				{Channel: string(domain.ChannelEmail), Offset: 2 * time.Hour},
			},
		},
		Dispatch: DispatchConfig{
			Timeout:       10 * time.Second,
			ExcerptLength: 280,
			Telegram:      TelegramConfig{APIBase: "https://api.telegram.org"},
			Email:         EmailConfig{From: "listings@example.org"},
		},
	}
}
