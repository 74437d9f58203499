// ABOUTME: Gateway orchestrator that wires the store, tool packs and MCP transport
// ABOUTME: Owns the HTTP server, health endpoints and the run/shutdown lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/2389/nutrition-gateway/internal/auth"
	"github.com/2389/nutrition-gateway/internal/builtins"
	"github.com/2389/nutrition-gateway/internal/config"
	"github.com/2389/nutrition-gateway/internal/mcp"
	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/packs"
	"github.com/2389/nutrition-gateway/internal/store"
)

const (
	// ServiceName is reported by the /api endpoint.
	ServiceName    = "nutrition-gateway"
	ServiceVersion = "1.0.0"

	shutdownTimeout = 5 * time.Second
)

// Gateway orchestrates the nutrition-gateway server components.
type Gateway struct {
	config     *config.Config
	store      *store.SQLiteStore
	nutrition  *nutrition.Service
	httpServer *http.Server
	logger     *slog.Logger

	// serverID identifies this gateway instance in logs
	serverID string

	// packRegistry tracks the builtin tool packs
	packRegistry *packs.Registry

	// packRouter validates and dispatches tool calls
	packRouter *packs.Router

	// mcpServer is the MCP Streamable HTTP endpoint
	mcpServer *mcp.Server

	// ready is closed once the HTTP listener is bound
	ready    chan struct{}
	listener net.Listener
}

// Option customizes a Gateway.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// initStore opens the SQLite database named by the config.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// newAuthMiddleware builds the bearer middleware shared by the MCP endpoint
// and the dashboard API.
func newAuthMiddleware(cfg *config.Config, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	var opts []auth.VerifierOption
	if cfg.Auth.Issuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.Auth.Issuer))
	}
	if cfg.Auth.Audience != "" {
		opts = append(opts, auth.WithAudience(cfg.Auth.Audience))
	}
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating JWT verifier: %w", err)
	}

	if !cfg.Auth.Required() {
		logger.Warn("bearer tokens optional, tokenless requests run as dev subject", "dev_subject", cfg.Auth.DevSubject)
	}
	return auth.HTTPAuthMiddleware(auth.MiddlewareConfig{
		Verifier:            verifier,
		Required:            cfg.Auth.Required(),
		DevSubject:          cfg.Auth.DevSubject,
		ResourceMetadataURL: cfg.Discovery.ResourceMetadataURL,
		Logger:              logger.With("component", "auth"),
	}), nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	gw, err := build(cfg, s, logger, o)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return gw, nil
}

func build(cfg *config.Config, s *store.SQLiteStore, logger *slog.Logger, o options) (*Gateway, error) {
	svcOpts := []nutrition.Option{nutrition.WithLogger(logger.With("component", "nutrition"))}
	if o.now != nil {
		svcOpts = append(svcOpts, nutrition.WithClock(o.now))
	}
	svc := nutrition.NewService(s, svcOpts...)

	packRegistry := packs.NewRegistry(logger.With("component", "pack-registry"))
	if err := builtins.RegisterAll(packRegistry, svc, logger.With("component", "builtins")); err != nil {
		return nil, err
	}
	packRouter := packs.NewRouter(packs.RouterConfig{
		Registry: packRegistry,
		Logger:   logger.With("component", "pack-router"),
		Timeout:  cfg.MCP.ToolTimeout,
	})

	mode := mcp.Mode(cfg.MCP.Mode)
	mcpServer, err := mcp.NewServer(mcp.Config{
		Router:             packRouter,
		Logger:             logger.With("component", "mcp"),
		Mode:               mode,
		PushBuffer:         cfg.MCP.PushBuffer,
		KeepaliveInterval:  cfg.MCP.KeepaliveInterval,
		SessionIdleTimeout: cfg.MCP.SessionIdleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	authMiddleware, err := newAuthMiddleware(cfg, logger)
	if err != nil {
		return nil, err
	}

	gw := &Gateway{
		config:       cfg,
		store:        s,
		nutrition:    svc,
		logger:       logger.With("component", "gateway"),
		serverID:     generateServerID(),
		packRegistry: packRegistry,
		packRouter:   packRouter,
		mcpServer:    mcpServer,
		ready:        make(chan struct{}),
	}

	mux := http.NewServeMux()

	// Health and discovery endpoints - no auth required
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)
	mux.HandleFunc("/api", gw.handleServiceInfo)

	discovery := auth.DiscoveryConfig{
		Resource:     cfg.Discovery.Resource,
		ProxyBaseURL: cfg.Discovery.ProxyBaseURL,
		Scopes:       cfg.Discovery.Scopes,
	}
	mux.Handle(auth.ProtectedResourcePath, auth.ProtectedResourceHandler(discovery))
	mux.Handle(auth.AuthorizationServerPath, auth.AuthorizationServerHandler(discovery))

	mux.Handle(cfg.MCP.Path, authMiddleware(mcpServer))
	gw.registerDashboardRoutes(mux, authMiddleware)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	gw.logger.Info("gateway configured",
		"server_id", gw.serverID,
		"mcp_path", cfg.MCP.Path,
		"mcp_mode", string(mode),
		"tools", len(packRegistry.ListTools()),
	)
	return gw, nil
}

// Handler returns the root HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Ready is closed once Run has bound its listener.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// Addr returns the bound listen address. Valid after Ready is closed.
func (g *Gateway) Addr() net.Addr {
	return g.listener.Addr()
}

// Run serves HTTP and runs the session janitor until ctx is cancelled or a
// server fails, then shuts down gracefully. Returns nil on a clean shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		g.mcpServer.Close()
		_ = g.store.Close()
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	g.listener = ln
	close(g.ready)
	g.logger.Info("HTTP server listening", "addr", ln.Addr().String(), "mcp_path", g.config.MCP.Path)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		return g.mcpServer.Run(egCtx)
	})
	eg.Go(func() error {
		<-egCtx.Done()
		if ctx.Err() != nil {
			g.logger.Info("context canceled, initiating shutdown")
		}
		return g.gracefulShutdown()
	})
	return eg.Wait()
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown ends every MCP session, stops the HTTP server and closes the store.
// Sessions go first so open push streams do not hold the server open.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	g.mcpServer.Close()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the database answers.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := g.store.Ping(r.Context()); err != nil {
		g.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d tools)", len(g.packRegistry.ListTools()))
}

// generateServerID creates a unique identifier for this gateway instance.
func generateServerID() string {
	return ServiceName + "-" + uuid.NewString()[:8]
}
