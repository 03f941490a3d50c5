package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "debug", "console": true},
		"scheduler": {"enabled": true, "scan_interval": "10s", "timezone": "Europe/Amsterdam"},
		"storage": {"driver": "file", "path": "./state.json"},
		"home": {"presence": "away", "energy_price": 0.42, "energy_level": "high"}
	}`)

	m := NewConfigManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.ScanInterval != "10s" {
		t.Fatalf("unexpected scheduler config: %+v", cfg.Scheduler)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Notifier != nil {
		t.Fatal("omitted notifier section should stay nil")
	}
	if cfg.Home.EnergyPrice != 0.42 {
		t.Fatalf("EnergyPrice = %v, want 0.42", cfg.Home.EnergyPrice)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
  console: true
scheduler:
  enabled: true
  drain_interval: 2s
  defer_delay: 10m
notifier:
  enabled: true
  rate_per_sec: 5
  telegram:
    token: "123:abc"
    chat_id: 42
`)

	m := NewConfigManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Scheduler.DrainInterval != "2s" || cfg.Scheduler.DeferDelay != "10m" {
		t.Fatalf("unexpected scheduler config: %+v", cfg.Scheduler)
	}
	if cfg.Notifier == nil || cfg.Notifier.RatePerSec != 5 {
		t.Fatalf("unexpected notifier config: %+v", cfg.Notifier)
	}
	if cfg.Notifier.Telegram == nil || cfg.Notifier.Telegram.ChatID != 42 {
		t.Fatalf("unexpected telegram config: %+v", cfg.Notifier.Telegram)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "config.json", `{"scheduler": {"enabled": true, "scan_intervall": "10s"}}`},
		{"yaml", "config.yaml", "scheduler:\n  enabled: true\n  scan_intervall: 10s\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewConfigManager(writeConfig(t, tt.file, tt.content))
			if _, err := m.Parse(); err == nil {
				t.Fatal("expected error for unknown field")
			}
		})
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeConfig(t, "config.json", `{"scheduler": {"enabled": true}} {}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestLoadCommits(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeConfig(t, "config.json", `{"scheduler": {"enabled": true}}`))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"  10s ", 10 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"-5s", 0, true},
		{"10", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationField("scheduler.scan_interval", tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationOrDefault("x", "", 30*time.Second)
	if err != nil || got != 30*time.Second {
		t.Fatalf("got %v, %v; want default 30s", got, err)
	}
	got, err = ParseDurationOrDefault("x", "5s", 30*time.Second)
	if err != nil || got != 5*time.Second {
		t.Fatalf("got %v, %v; want 5s", got, err)
	}
}

func TestSummarizeConfigChangeNeverLeaksToken(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{}
	newCfg := &Config{
		Notifier: &NotifierConfig{
			Enabled:  true,
			Telegram: &TelegramSinkConfig{Token: "123:very-secret", ChatID: 42},
		},
	}

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	found := false
	for _, c := range changed {
		if c == "notifier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("changed = %v, want notifier", changed)
	}

	// Render the attrs the way the reload log line would.
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ev := logger.Info()
	for _, f := range attrs {
		f(ev)
	}
	ev.Msg("config changed")
	if strings.Contains(buf.String(), "very-secret") {
		t.Fatal("summary leaked the telegram token")
	}
	if !strings.Contains(buf.String(), "telegram_set") {
		t.Fatalf("expected telegram_set attr, got %s", buf.String())
	}
}

func TestSummarizeConfigChangeNoChanges(t *testing.T) {
	t.Parallel()
	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	changed, _ := SummarizeConfigChange(cfg, cfg)
	if len(changed) != 0 {
		t.Fatalf("changed = %v, want none", changed)
	}
}
