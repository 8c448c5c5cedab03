package bus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher implements Publisher over a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	closed atomic.Bool
}

// NewNATSPublisher connects to the configured NATS server. The connection
// reconnects forever with a short wait; while disconnected, publishes go to
// the client's buffer or fail, and the caller reports either outcome.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1), // unlimited reconnects
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(subject, payload)
}

func (p *NATSPublisher) Close() error {
	if p.closed.Swap(true) {
		return ErrClosed
	}
	// Flush best-effort so queued dispatches leave before shutdown.
	_ = p.conn.FlushTimeout(2 * time.Second)
	p.conn.Close()
	return nil
}

// Conn returns the underlying NATS connection, for advanced wiring like
// the log sink.
func (p *NATSPublisher) Conn() *nats.Conn { return p.conn }

// LogSink adapts the publisher to the logging sink's narrow interface
// (Publish without a context).
func (p *NATSPublisher) LogSink() LogSink { return LogSink{p: p} }

type LogSink struct{ p *NATSPublisher }

func (s LogSink) Publish(subject string, data []byte) error {
	return s.p.Publish(context.Background(), subject, data)
}
