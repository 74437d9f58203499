// ABOUTME: Stateful MCP sessions and the registry that owns them.
// ABOUTME: Sessions serialize their requests, own a push outbox and are torn down exactly once.

package mcp

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// session is one initialized MCP client connection.
type session struct {
	id      string
	subject string
	disp    *dispatcher
	outbox  *outbox

	// mu is held for the whole of a POST dispatch.
	mu sync.Mutex

	streaming  atomic.Bool
	lastActive atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

func (s *session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

func (s *session) idleSince() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// close ends the push stream and drops buffered messages. Safe to call
// more than once.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.outbox.close()
	})
}

// Registry tracks active sessions by id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*session),
		logger:   logger,
		now:      time.Now,
	}
}

// newSession builds an unregistered session with a fresh id.
func (r *Registry) newSession(subject string, pushBuffer int, build func(id string, push func(any)) *dispatcher) *session {
	sess := &session{
		id:      uuid.New().String(),
		subject: subject,
		outbox:  newOutbox(pushBuffer, r.logger),
		done:    make(chan struct{}),
	}
	sess.disp = build(sess.id, sess.outbox.push)
	sess.touch(r.now())
	return sess
}

func (r *Registry) add(sess *session) {
	r.mu.Lock()
	r.sessions[sess.id] = sess
	r.mu.Unlock()
	r.logger.Info("MCP session created", "session_id", sess.id, "subject", sess.subject)
}

func (r *Registry) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Terminate removes and tears down a session. It reports whether the
// session existed.
func (r *Registry) Terminate(id, reason string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	sess.close()
	r.logger.Info("MCP session terminated", "session_id", id, "reason", reason)
	return true
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll terminates every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Terminate(id, "shutdown")
	}
}

// expireIdle terminates sessions with no activity for longer than idle and
// returns how many were removed. Sessions with an open push stream are live
// for as long as the stream is, and are never expired here.
func (r *Registry) expireIdle(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var expired []string
	for id, sess := range r.sessions {
		if !sess.streaming.Load() && sess.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	n := 0
	for _, id := range expired {
		if r.Terminate(id, "idle") {
			n++
		}
	}
	return n
}

// RunJanitor expires idle sessions until ctx is cancelled. An idle timeout
// of zero disables expiry; the call then just waits for ctx.
func (r *Registry) RunJanitor(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(janitorInterval(idle))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.expireIdle(idle); n > 0 {
				r.logger.Debug("expired idle MCP sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func janitorInterval(idle time.Duration) time.Duration {
	interval := idle / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}
