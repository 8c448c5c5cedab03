// Package bus provides the message-bus publishing boundary.
//
// The core treats the bus as a black box satisfying "deliver or report
// failure": Publish returns an error, and the caller decides what to log or
// count. There is no retry here; the NATS client's own reconnect handling
// is the only redelivery the daemon gets.
package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned when publishing on a closed publisher.
	ErrClosed = errors.New("publisher closed")
)

// Publisher is the core's view of the bus. Implementations must be safe
// for concurrent use.
type Publisher interface {
	// Publish sends payload to subject. Returns immediately; does not
	// wait for delivery.
	Publish(ctx context.Context, subject string, payload []byte) error

	// Close shuts the connection down.
	Close() error
}

// Config holds configuration for the NATS publisher.
type Config struct {
	// URL is the NATS server URL (e.g. "nats://localhost:4222").
	URL string

	// Name is a client identifier for debugging/monitoring.
	Name string

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:            "nats://localhost:4222",
		Name:           "cued",
		ConnectTimeout: 30 * time.Second,
	}
}
