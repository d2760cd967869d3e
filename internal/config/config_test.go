package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"ListingFlow/internal/domain"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg := LoadFile("")

	if cfg.HTTP.Addr != defaultHTTPAddr {
		t.Fatalf("expected default addr, got %s", cfg.HTTP.Addr)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != "" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Scheduler.Location() != time.UTC && cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC location, got %s", cfg.Scheduler.Location())
	}
	channels := cfg.DefaultChannels()
	if len(channels) != 3 || !channels[0].Enabled || channels[2].Offset != 2*time.Hour {
		t.Fatalf("unexpected default channels: %+v", channels)
	}
}

func TestLoadFileMergesYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
logging:
  level: debug
  format: json
database:
  driver: postgres
  dsn: postgres://file
scheduler:
  timezone: Europe/Berlin
workflow:
  bulkWorkers: 8
  steps:
    - id: legal
      name: Legal check
      required: true
publishing:
  channels:
    - channel: content
    - channel: social:mastodon
      offset: 30m
      payload:
        hashtag: "#travel"
    - channel: email
      enabled: false
dispatch:
  timeout: 3s
  webhooks:
    mastodon: https://hooks.example.org/mastodon
`)
	t.Setenv(databaseDSNEnv, "postgres://env")
	t.Setenv(telegramTokenEnv, "token-from-env")

	cfg := LoadFile(path)

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not merged: %+v", cfg.Logging)
	}
	if cfg.Database.Driver != DriverPostgres || cfg.Database.DSN != "postgres://env" {
		t.Fatalf("database not merged: %+v", cfg.Database)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("timezone not bound: %s", cfg.Scheduler.Location())
	}
	if cfg.Workflow.BulkWorkers != 8 || len(cfg.Workflow.Steps) != 1 || cfg.Workflow.Steps[0].ID != "legal" {
		t.Fatalf("workflow not merged: %+v", cfg.Workflow)
	}
	if cfg.Dispatch.Timeout != 3*time.Second {
		t.Fatalf("timeout not merged: %s", cfg.Dispatch.Timeout)
	}
	if cfg.Dispatch.Telegram.BotToken != "token-from-env" || cfg.Dispatch.Telegram.APIBase == "" {
		t.Fatalf("telegram not merged: %+v", cfg.Dispatch.Telegram)
	}
	if cfg.Dispatch.Webhooks["mastodon"] == "" {
		t.Fatalf("webhooks not merged")
	}

	channels := cfg.DefaultChannels()
	if len(channels) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(channels))
	}
	if channels[1].Channel != domain.SocialChannel("mastodon") || channels[1].Offset != 30*time.Minute {
		t.Fatalf("unexpected mastodon channel: %+v", channels[1])
	}
	if channels[1].Payload["hashtag"] != "#travel" {
		t.Fatalf("payload not kept: %+v", channels[1].Payload)
	}
	if channels[2].Enabled {
		t.Fatalf("email should be disabled")
	}
}

func TestLoadFileFallsBackOnBadInput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", "scheduler: [not a map")

	cfg := LoadFile(path)
	if cfg.HTTP.Addr != defaultHTTPAddr {
		t.Fatalf("expected defaults on parse failure")
	}

	cfg = LoadFile(filepath.Join(dir, "missing.yaml"))
	if cfg.HTTP.Addr != defaultHTTPAddr {
		t.Fatalf("expected defaults on missing file")
	}

	tzPath := writeFile(t, dir, "tz.yaml", "scheduler:\n  timezone: Mars/Olympus\n")
	cfg = LoadFile(tzPath)
	if cfg.Scheduler.Timezone != defaultTimezone || cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Scheduler.Location())
	}
}

func TestDefaultChannelsSkipsUnknown(t *testing.T) {
	cfg := Config{Publishing: PublishingConfig{Channels: []ChannelConfig{
		{Channel: "fax"},
		{Channel: "Email"},
	}}}

	channels := cfg.DefaultChannels()
	if len(channels) != 1 || channels[0].Channel != domain.ChannelEmail {
		t.Fatalf("unexpected channels: %+v", channels)
	}
}

func TestLoadDotEnvPriority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "LISTINGFLOW_TEST_A=from-env\nLISTINGFLOW_TEST_B=from-env\n")
	writeFile(t, dir, ".env.local", "LISTINGFLOW_TEST_A=from-local\n")
	t.Setenv("LISTINGFLOW_TEST_B", "from-os")
	t.Setenv("LISTINGFLOW_TEST_A", "")
	os.Unsetenv("LISTINGFLOW_TEST_A")

	loaded := LoadDotEnv(dir)
	if len(loaded) != 2 {
		t.Fatalf("expected both files, got %v", loaded)
	}
	if got := os.Getenv("LISTINGFLOW_TEST_A"); got != "from-local" {
		t.Fatalf("expected .env.local to win, got %q", got)
	}
	if got := os.Getenv("LISTINGFLOW_TEST_B"); got != "from-os" {
		t.Fatalf("expected OS env to win, got %q", got)
	}
	os.Unsetenv("LISTINGFLOW_TEST_A")
}

func TestLockPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"memory only", Config{Database: DatabaseConfig{Driver: DriverSQLite}}, ""},
		{"sqlite memory", Config{Database: DatabaseConfig{Driver: DriverSQLite, DSN: "file::memory:"}}, ""},
		{"sqlite file", Config{Database: DatabaseConfig{Driver: DriverSQLite, DSN: "file:/var/lib/lf/state.db?_pragma=busy_timeout(5000)"}}, "/var/lib/lf/state.db.lock"},
		{"postgres", Config{Database: DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://db/lf"}}, ""},
		{"explicit", Config{Scheduler: SchedulerConfig{LockFile: "/run/lf.lock"}, Database: DatabaseConfig{Driver: DriverPostgres}}, "/run/lf.lock"},
	}
	for _, tc := range cases {
		if got := tc.cfg.LockPath(); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
