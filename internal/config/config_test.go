package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cued.json", `{
		"source_dir": "/srv/scripts",
		"delimiter": ";",
		"bus": {"url": "nats://bus:4222", "subject_prefix": "stage", "connect_timeout": "5s"},
		"watch": {"debounce": "100ms", "rescan": "@every 5m"},
		"journal": {"driver": "file", "path": "/var/log/cued.jsonl"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SourceDir != "/srv/scripts" {
		t.Fatalf("source_dir = %q", cfg.SourceDir)
	}
	if cfg.DelimiterByte() != ';' {
		t.Fatalf("delimiter = %q", cfg.DelimiterByte())
	}
	if cfg.BusURL() != "nats://bus:4222" {
		t.Fatalf("bus url = %q", cfg.BusURL())
	}
	if got := cfg.ConnectTimeout(); got != 5*time.Second {
		t.Fatalf("connect_timeout = %v", got)
	}
	if got := cfg.Debounce(); got != 100*time.Millisecond {
		t.Fatalf("debounce = %v", got)
	}
	if cfg.Watch.Rescan != "@every 5m" {
		t.Fatalf("rescan = %q", cfg.Watch.Rescan)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cued.yaml", `
source_dir: /srv/scripts
bus:
  url: nats://bus:4222
metrics:
  enabled: true
  addr: "0.0.0.0:9473"
logging:
  level: debug
  bus:
    enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Metrics.Enabled || cfg.MetricsAddr() != "0.0.0.0:9473" {
		t.Fatalf("metrics = %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if cfg.LogSubject() != "cued.log" {
		t.Fatalf("log subject = %q", cfg.LogSubject())
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cued.json", `{"source_dir": "./scripts"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DelimiterByte() != '|' {
		t.Fatalf("default delimiter = %q", cfg.DelimiterByte())
	}
	if cfg.BusURL() != DefaultBusURL || cfg.ClientName() != DefaultClientName {
		t.Fatalf("bus defaults = %q %q", cfg.BusURL(), cfg.ClientName())
	}
	if cfg.Debounce() != DefaultDebounce {
		t.Fatalf("default debounce = %v", cfg.Debounce())
	}
	if !cfg.ConsoleEnabled() {
		t.Fatal("console should default to enabled")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cued.json", `{"source_dir": "x", "sorce_dir_typo": true}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cued.json", `{"source_dir": "x"}{"source_dir": "y"}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected trailing-data error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"minimal", Config{SourceDir: "./scripts"}, true},
		{"missing source dir", Config{}, false},
		{"multi-char delimiter", Config{SourceDir: "x", Delimiter: "||"}, false},
		{"unknown journal driver", Config{SourceDir: "x", Journal: JournalConfig{Driver: "etcd"}}, false},
		{"bad debounce", Config{SourceDir: "x", Watch: WatchConfig{Debounce: "fast"}}, false},
		{"negative timeout", Config{SourceDir: "x", Bus: BusConfig{ConnectTimeout: "-1s"}}, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
