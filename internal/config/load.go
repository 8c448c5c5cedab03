package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	DefaultBusURL         = "nats://localhost:4222"
	DefaultClientName     = "cued"
	DefaultConnectTimeout = 30 * time.Second
	DefaultDebounce       = 250 * time.Millisecond
	DefaultMetricsAddr    = "127.0.0.1:9473"
	DefaultLogSubject     = "cued.log"
)

// Load reads, decodes, and validates the config file at path. Unknown
// fields are rejected so a typoed key fails loudly instead of silently
// falling back to a default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks fields that would otherwise fail deep inside startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return fmt.Errorf("source_dir is required")
	}
	if c.Delimiter != "" && len(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}

	switch strings.ToLower(strings.TrimSpace(c.Journal.Driver)) {
	case "", "none", "file", "sqlite":
	default:
		return fmt.Errorf("journal.driver: unknown driver %q", c.Journal.Driver)
	}

	for _, f := range []struct{ path, raw string }{
		{"bus.connect_timeout", c.Bus.ConnectTimeout},
		{"watch.debounce", c.Watch.Debounce},
		{"journal.busy_timeout", c.Journal.BusyTimeout},
	} {
		if _, err := parseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	return nil
}

// DelimiterByte returns the configured field separator, or '|'.
func (c *Config) DelimiterByte() byte {
	if c.Delimiter == "" {
		return '|'
	}
	return c.Delimiter[0]
}

// ConnectTimeout returns bus.connect_timeout with its default applied.
// Validate has already run, so the parse cannot fail here.
func (c *Config) ConnectTimeout() time.Duration {
	d, _ := parseDurationOrDefault("bus.connect_timeout", c.Bus.ConnectTimeout, DefaultConnectTimeout)
	return d
}

// Debounce returns watch.debounce with its default applied.
func (c *Config) Debounce() time.Duration {
	d, _ := parseDurationOrDefault("watch.debounce", c.Watch.Debounce, DefaultDebounce)
	return d
}

// BusyTimeout returns journal.busy_timeout, zero when unset.
func (c *Config) BusyTimeout() time.Duration {
	d, _ := parseDurationField("journal.busy_timeout", c.Journal.BusyTimeout)
	return d
}

// BusURL returns bus.url with its default applied.
func (c *Config) BusURL() string {
	if strings.TrimSpace(c.Bus.URL) == "" {
		return DefaultBusURL
	}
	return c.Bus.URL
}

// ClientName returns bus.name with its default applied.
func (c *Config) ClientName() string {
	if strings.TrimSpace(c.Bus.Name) == "" {
		return DefaultClientName
	}
	return c.Bus.Name
}

// MetricsAddr returns metrics.addr with its default applied.
func (c *Config) MetricsAddr() string {
	if strings.TrimSpace(c.Metrics.Addr) == "" {
		return DefaultMetricsAddr
	}
	return c.Metrics.Addr
}

// LogSubject returns logging.bus.subject with its default applied.
func (c *Config) LogSubject() string {
	if strings.TrimSpace(c.Logging.Bus.Subject) == "" {
		return DefaultLogSubject
	}
	return c.Logging.Bus.Subject
}

// ConsoleEnabled returns logging.console, defaulting to true when omitted.
func (c *Config) ConsoleEnabled() bool {
	if c.Logging.Console == nil {
		return true
	}
	return *c.Logging.Console
}
