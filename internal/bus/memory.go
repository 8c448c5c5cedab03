package bus

import (
	"context"
	"sync"
)

// MemoryPublisher records published messages in memory. Tests use it to
// assert what fired and when; FailWith simulates a broken bus.
type MemoryPublisher struct {
	mu       sync.Mutex
	msgs     []PublishedMessage
	closed   bool
	FailWith error // if set, Publish records the attempt and returns this
}

type PublishedMessage struct {
	Subject string
	Payload []byte
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	p.msgs = append(p.msgs, PublishedMessage{Subject: subject, Payload: cp})
	return p.FailWith
}

func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	return nil
}

// Published returns a snapshot of everything published so far.
func (p *MemoryPublisher) Published() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedMessage, len(p.msgs))
	copy(out, p.msgs)
	return out
}
