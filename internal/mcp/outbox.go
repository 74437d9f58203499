// ABOUTME: Bounded push queue feeding a session's SSE stream.
// ABOUTME: Never blocks the sender; messages are dropped when the queue is full or closed.

package mcp

import (
	"encoding/json"
	"log/slog"
	"sync"
)

type outbox struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
	logger *slog.Logger
}

func newOutbox(size int, logger *slog.Logger) *outbox {
	if size <= 0 {
		size = 1
	}
	return &outbox{ch: make(chan []byte, size), logger: logger}
}

// push encodes msg and queues it without blocking.
func (o *outbox) push(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		o.logger.Warn("failed to encode push message", "error", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- data:
	default:
		o.logger.Debug("dropped push message for slow stream")
	}
}

func (o *outbox) messages() <-chan []byte {
	return o.ch
}

// close stops delivery and discards anything still buffered.
func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.ch)
	for range o.ch {
	}
}
