package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the dispatch journal.
//
// Driver values:
//   - "file": dependency-free append-only JSON Lines file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the journal is disabled. The journal is
// history for operators; nothing is ever read back into the schedule.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DispatchRecord is one dispatch attempt. Keep it compact and
// schema-stable.
type DispatchRecord struct {
	At      time.Time `json:"at"`
	Subject string    `json:"subject"`
	Origin  string    `json:"origin"`
	Seq     int       `json:"seq"`
	Due     time.Time `json:"due"`
	Bytes   int       `json:"bytes"`
	OK      bool      `json:"ok"`
	Error   string    `json:"err,omitempty"`
}
