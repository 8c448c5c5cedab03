package config

// Config is the daemon's startup configuration. JSON and YAML files are
// both accepted; YAML is coerced to JSON before decoding so both formats
// share one strict decoder.
//
// All durations are Go duration strings (e.g. "250ms", "10s", "1m").
type Config struct {
	// SourceDir is the directory of script fragments to schedule.
	SourceDir string `json:"source_dir"`

	// Delimiter is the single-character field separator for script lines.
	// Defaults to "|".
	Delimiter string `json:"delimiter,omitempty"`

	Bus     BusConfig     `json:"bus"`
	Watch   WatchConfig   `json:"watch,omitempty"`
	Journal JournalConfig `json:"journal,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

type BusConfig struct {
	// URL is the NATS server URL. Defaults to "nats://localhost:4222".
	URL string `json:"url,omitempty"`

	// Name is the client connection name. Defaults to "cued".
	Name string `json:"name,omitempty"`

	// SubjectPrefix, when set, is prepended to every script topic with a
	// "." separator.
	SubjectPrefix string `json:"subject_prefix,omitempty"`

	// ConnectTimeout bounds the initial connection attempt. Default "30s".
	ConnectTimeout string `json:"connect_timeout,omitempty"`
}

type WatchConfig struct {
	// Debounce is the quiet period after a filesystem event before the
	// fragment is reloaded. Default "250ms".
	Debounce string `json:"debounce,omitempty"`

	// Rescan is an optional cron expression (e.g. "@every 5m") for
	// periodic full re-scans of the source directory. Empty disables it.
	Rescan string `json:"rescan,omitempty"`
}

// JournalConfig controls the optional dispatch journal.
//
// Example:
//
//	"journal": { "driver": "sqlite", "path": "./cued.db" }
type JournalConfig struct {
	Driver      string `json:"driver,omitempty"` // "none" (default), "file", "sqlite"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9473"
}

type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error. Default "info".
	Level string `json:"level,omitempty"`

	// Console enables human-readable console output. Default true.
	Console *bool `json:"console,omitempty"`

	// File, when set, appends JSON log lines to this path.
	File string `json:"file,omitempty"`

	// Bus mirrors warn+ log lines onto a bus subject.
	Bus BusLogConfig `json:"bus,omitempty"`
}

type BusLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Subject string `json:"subject,omitempty"` // default: "cued.log"

	// MinLevel is the lowest level mirrored to the bus. Default "warn".
	MinLevel string `json:"min_level,omitempty"`

	// RatePerSec caps mirrored lines per second. Default 1.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}
