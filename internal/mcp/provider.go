// ABOUTME: Session providers for the two MCP operating modes.
// ABOUTME: Stateful keeps sessions in the registry; stateless builds a dispatcher per request.

package mcp

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/nutrition-gateway/internal/auth"
	"github.com/2389/nutrition-gateway/internal/packs"
)

// Header names of the Streamable HTTP transport.
const (
	HeaderSessionID       = "Mcp-Session-Id"
	HeaderProtocolVersion = "Mcp-Protocol-Version"
)

// sessionProvider resolves the dispatcher that handles a request and owns
// the GET and DELETE semantics of a mode.
type sessionProvider interface {
	// acquire returns the dispatcher for req and a release func that must be
	// called after dispatch, before the response body is written. When ok is
	// false the error response has already been written.
	acquire(w http.ResponseWriter, r *http.Request, req *Request) (d *dispatcher, release func(*Response), ok bool)
	stream(w http.ResponseWriter, r *http.Request)
	terminate(w http.ResponseWriter, r *http.Request)
	closeAll()
}

type statefulProvider struct {
	registry   *Registry
	router     *packs.Router
	logger     *slog.Logger
	pushBuffer int
	keepalive  time.Duration
}

func (p *statefulProvider) newDispatcher(id string, push func(any)) *dispatcher {
	return newDispatcher(p.router, p.logger.With("session_id", id), push)
}

func (p *statefulProvider) acquire(w http.ResponseWriter, r *http.Request, req *Request) (*dispatcher, func(*Response), bool) {
	id := r.Header.Get(HeaderSessionID)

	if req.Method == "initialize" && !req.IsNotification() {
		if id != "" {
			writeError(w, p.logger, http.StatusBadRequest, CodeInvalidRequest, "Invalid Request: Server already initialized")
			return nil, nil, false
		}
		sess := p.registry.newSession(auth.SubjectFromContext(r.Context()), p.pushBuffer, p.newDispatcher)
		release := func(resp *Response) {
			if resp == nil || resp.Error != nil {
				sess.close()
				return
			}
			p.registry.add(sess)
			w.Header().Set(HeaderSessionID, sess.id)
		}
		return sess.disp, release, true
	}

	if id == "" {
		writeError(w, p.logger, http.StatusBadRequest, CodeTransport, "Bad Request: Mcp-Session-Id header is required")
		return nil, nil, false
	}
	sess, ok := p.lookup(w, r, id)
	if !ok {
		return nil, nil, false
	}

	sess.mu.Lock()
	select {
	case <-sess.done:
		sess.mu.Unlock()
		writeError(w, p.logger, http.StatusNotFound, CodeSessionNotFound, "Session not found")
		return nil, nil, false
	default:
	}
	sess.touch(p.registry.now())

	release := func(*Response) {
		sess.touch(p.registry.now())
		sess.mu.Unlock()
	}
	return sess.disp, release, true
}

// lookup finds the session and checks it belongs to the caller.
func (p *statefulProvider) lookup(w http.ResponseWriter, r *http.Request, id string) (*session, bool) {
	sess, ok := p.registry.get(id)
	if !ok {
		writeError(w, p.logger, http.StatusNotFound, CodeSessionNotFound, "Session not found")
		return nil, false
	}
	if subject := auth.SubjectFromContext(r.Context()); subject != sess.subject {
		p.logger.Warn("MCP session subject mismatch", "session_id", id, "subject", subject)
		writeError(w, p.logger, http.StatusForbidden, CodeTransport, "Forbidden: session belongs to another user")
		return nil, false
	}
	return sess, true
}

func acceptsEventStream(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/event-stream") || strings.Contains(accept, "*/*")
}

func (p *statefulProvider) stream(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(HeaderSessionID)
	if id == "" {
		writeError(w, p.logger, http.StatusBadRequest, CodeTransport, "Bad Request: Mcp-Session-Id header is required")
		return
	}
	if !acceptsEventStream(r) {
		writeError(w, p.logger, http.StatusNotAcceptable, CodeTransport, "Not Acceptable: Client must accept text/event-stream")
		return
	}
	sess, ok := p.lookup(w, r, id)
	if !ok {
		return
	}
	if !sess.streaming.CompareAndSwap(false, true) {
		writeError(w, p.logger, http.StatusConflict, CodeTransport, "Conflict: Only one SSE stream is allowed per session")
		return
	}
	sess.touch(p.registry.now())

	reason := p.pump(w, r, sess)
	p.registry.Terminate(sess.id, reason)
}

// pump copies the session outbox onto the SSE stream until the stream or
// the session ends, and returns why it stopped.
func (p *statefulProvider) pump(w http.ResponseWriter, r *http.Request, sess *session) string {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set(HeaderSessionID, sess.id)
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return "stream unsupported"
	}

	p.logger.Debug("MCP push stream opened", "session_id", sess.id)

	ticker := time.NewTicker(p.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return "client disconnected"
		case <-sess.done:
			return "session closed"
		case msg, ok := <-sess.outbox.messages():
			if !ok {
				return "session closed"
			}
			if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg); err != nil {
				return "write error"
			}
			if err := rc.Flush(); err != nil {
				return "write error"
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return "write error"
			}
			if err := rc.Flush(); err != nil {
				return "write error"
			}
		}
	}
}

func (p *statefulProvider) terminate(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(HeaderSessionID)
	if id == "" {
		writeError(w, p.logger, http.StatusBadRequest, CodeTransport, "Bad Request: Mcp-Session-Id header is required")
		return
	}
	sess, ok := p.lookup(w, r, id)
	if !ok {
		return
	}
	if !p.registry.Terminate(sess.id, "client request") {
		writeError(w, p.logger, http.StatusNotFound, CodeSessionNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *statefulProvider) closeAll() {
	p.registry.CloseAll()
}

// statelessProvider serves every POST with a throwaway dispatcher.
type statelessProvider struct {
	router *packs.Router
	logger *slog.Logger
}

func (p *statelessProvider) acquire(_ http.ResponseWriter, _ *http.Request, _ *Request) (*dispatcher, func(*Response), bool) {
	return newDispatcher(p.router, p.logger, nil), func(*Response) {}, true
}

func (p *statelessProvider) methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, p.logger, http.StatusMethodNotAllowed, CodeTransport, "Method not allowed.")
}

func (p *statelessProvider) stream(w http.ResponseWriter, _ *http.Request) {
	p.methodNotAllowed(w)
}

func (p *statelessProvider) terminate(w http.ResponseWriter, _ *http.Request) {
	p.methodNotAllowed(w)
}

func (p *statelessProvider) closeAll() {}
