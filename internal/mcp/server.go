// ABOUTME: MCP Streamable HTTP endpoint for the nutrition tools.
// ABOUTME: POST carries JSON-RPC, GET opens the push stream, DELETE ends a session.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/2389/nutrition-gateway/internal/packs"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Mode selects how sessions are handled.
type Mode string

const (
	ModeStateful  Mode = "stateful"
	ModeStateless Mode = "stateless"
)

const (
	defaultPushBuffer = 64
	defaultKeepalive  = 25 * time.Second
)

// Config holds configuration for the MCP server.
type Config struct {
	Router *packs.Router
	Logger *slog.Logger
	Mode   Mode
	// PushBuffer bounds each session's queue of undelivered notifications.
	PushBuffer        int
	KeepaliveInterval time.Duration
	// SessionIdleTimeout expires sessions without requests; 0 disables it.
	SessionIdleTimeout time.Duration
}

// Server implements the MCP Streamable HTTP transport.
type Server struct {
	provider    sessionProvider
	registry    *Registry
	logger      *slog.Logger
	idleTimeout time.Duration
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Router == nil {
		return nil, errors.New("router is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcp")

	s := &Server{logger: logger, idleTimeout: cfg.SessionIdleTimeout}

	switch cfg.Mode {
	case ModeStateful, "":
		pushBuffer := cfg.PushBuffer
		if pushBuffer <= 0 {
			pushBuffer = defaultPushBuffer
		}
		keepalive := cfg.KeepaliveInterval
		if keepalive <= 0 {
			keepalive = defaultKeepalive
		}
		s.registry = NewRegistry(logger)
		s.provider = &statefulProvider{
			registry:   s.registry,
			router:     cfg.Router,
			logger:     logger,
			pushBuffer: pushBuffer,
			keepalive:  keepalive,
		}
	case ModeStateless:
		s.provider = &statelessProvider{router: cfg.Router, logger: logger}
	default:
		return nil, errors.New("unknown MCP mode: " + string(cfg.Mode))
	}
	return s, nil
}

// Sessions returns the session registry, or nil in stateless mode.
func (s *Server) Sessions() *Registry {
	return s.registry
}

// Run expires idle sessions until ctx is cancelled, then terminates every
// remaining session.
func (s *Server) Run(ctx context.Context) error {
	if s.registry != nil {
		s.registry.RunJanitor(ctx, s.idleTimeout)
	} else {
		<-ctx.Done()
	}
	s.Close()
	return nil
}

// Close terminates all sessions, ending their push streams.
func (s *Server) Close() {
	s.provider.closeAll()
}

// ServeHTTP dispatches on the HTTP method per the Streamable HTTP transport.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.provider.stream(w, r)
	case http.MethodDelete:
		s.provider.terminate(w, r)
	default:
		w.Header().Set("Allow", "POST, GET, DELETE")
		writeError(w, s.logger, http.StatusMethodNotAllowed, CodeTransport, "Method not allowed.")
	}
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	return err == nil && mediaType == "application/json"
}

// handlePost processes one JSON-RPC message sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r.Header.Get("Content-Type")) {
		writeError(w, s.logger, http.StatusUnsupportedMediaType, CodeTransport,
			"Unsupported Media Type: Content-Type must be application/json")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, CodeParseError, "Parse error: failed to read request body")
		return
	}
	if len(body) > MaxRequestBodySize {
		writeError(w, s.logger, http.StatusRequestEntityTooLarge, CodeInvalidRequest, "Invalid Request: request body too large")
		return
	}
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		writeError(w, s.logger, http.StatusBadRequest, CodeInvalidRequest, "Invalid Request: batch requests are not supported")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, CodeParseError, "Parse error: invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeJSON(w, s.logger, http.StatusBadRequest,
			errorResponse(req.ID, CodeInvalidRequest, `Invalid Request: jsonrpc must be "2.0" and method is required`))
		return
	}

	if req.Method != "initialize" {
		if v := r.Header.Get(HeaderProtocolVersion); v != "" && !isSupportedVersion(v) {
			writeError(w, s.logger, http.StatusBadRequest, CodeTransport, "Bad Request: Unsupported protocol version: "+v)
			return
		}
	}

	s.logger.Debug("MCP request",
		"method", req.Method,
		"is_notification", req.IsNotification(),
		"session_id", r.Header.Get(HeaderSessionID),
	)

	disp, release, ok := s.provider.acquire(w, r, &req)
	if !ok {
		return
	}
	resp, status := disp.handle(r.Context(), &req)
	release(resp)

	if resp == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, s.logger, status, resp)
}
