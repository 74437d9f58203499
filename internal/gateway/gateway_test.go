// ABOUTME: Tests for Gateway construction, HTTP wiring and the run/shutdown lifecycle
// ABOUTME: Drives the real mux through httptest and a bound listener

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/2389/nutrition-gateway/internal/auth"
	"github.com/2389/nutrition-gateway/internal/config"
	"github.com/2389/nutrition-gateway/internal/mcp"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// testConfig parses a minimal config; extra YAML is appended verbatim.
func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	t.Setenv(config.EnvDBPath, "")

	yaml := `
server:
  http_addr: "127.0.0.1:0"
database:
  path: ":memory:"
auth:
  jwt_secret: "` + testSecret + `"
discovery:
  resource: "https://nutrition.test"
  proxy_base_url: "https://auth.test"
  scopes: ["nutrition"]
` + extra
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("config.Parse() failed: %v", err)
	}
	return cfg
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGateway builds a gateway and serves its handler from an httptest server.
func newTestGateway(t *testing.T, cfg *config.Config, opts ...Option) (*Gateway, *httptest.Server) {
	t.Helper()
	gw, err := New(cfg, testLogger(), opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = gw.Shutdown(context.Background())
	})
	return gw, srv
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	v, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	token, err := v.Generate(subject, nil, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func get(t *testing.T, url, authz string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestGatewayNew(t *testing.T) {
	cfg := testConfig(t, "")
	gw, _ := newTestGateway(t, cfg)

	if gw.config != cfg {
		t.Error("gateway config mismatch")
	}
	assert.Len(t, gw.packRegistry.ListTools(), 17)
	assert.NotNil(t, gw.mcpServer.Sessions(), "stateful mode keeps a session registry")
	assert.True(t, strings.HasPrefix(gw.serverID, ServiceName+"-"))
}

func TestGatewayNew_StatelessMode(t *testing.T) {
	gw, _ := newTestGateway(t, testConfig(t, "mcp:\n  mode: stateless\n"))
	assert.Nil(t, gw.mcpServer.Sessions())
}

func TestGatewayNew_StoreFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := testConfig(t, "")
	cfg.Database.Path = filepath.Join(blocker, "sub", "nutrition.db")

	_, err := New(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initializing store")
}

func TestGatewayRunAndShutdown(t *testing.T) {
	gw, err := New(testConfig(t, ""), testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Run(ctx)
	}()

	select {
	case <-gw.Ready():
	case err := <-errCh:
		t.Fatalf("Run() exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not start in time")
	}

	resp := get(t, "http://"+gw.Addr().String()+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", readBody(t, resp))

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("gateway did not shutdown in time")
	}
}

func TestGatewayRun_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t, "")
	cfg.Server.HTTPAddr = ln.Addr().String()
	gw, err := New(cfg, testLogger())
	require.NoError(t, err)

	err = gw.Run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on HTTP address")
}

func TestHealthEndpoints(t *testing.T) {
	gw, srv := newTestGateway(t, testConfig(t, ""))

	resp := get(t, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv.URL+"/health/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready (17 tools)", readBody(t, resp))

	require.NoError(t, gw.store.Close())
	resp = get(t, srv.URL+"/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServiceInfo(t *testing.T) {
	_, srv := newTestGateway(t, testConfig(t, ""))

	resp := get(t, srv.URL+"/api", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"service":"nutrition-gateway","version":"1.0.0"}`, readBody(t, resp))

	post, err := http.Post(srv.URL+"/api", "application/json", nil)
	require.NoError(t, err)
	defer post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestDiscoveryEndpoints(t *testing.T) {
	_, srv := newTestGateway(t, testConfig(t, ""))

	resp := get(t, srv.URL+auth.ProtectedResourcePath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prm auth.ProtectedResourceMetadata
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&prm))
	assert.Equal(t, "https://nutrition.test", prm.Resource)
	assert.Equal(t, []string{"https://auth.test"}, prm.AuthorizationServers)
	assert.Equal(t, []string{"nutrition"}, prm.ScopesSupported)

	resp = get(t, srv.URL+auth.AuthorizationServerPath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var asm auth.AuthorizationServerMetadata
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asm))
	assert.Equal(t, "https://auth.test/oauth/token", asm.TokenEndpoint)
}

func mcpPost(t *testing.T, url, authz, sessionID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	if sessionID != "" {
		req.Header.Set(mcp.HeaderSessionID, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestMCPEndpoint_RequiresBearer(t *testing.T) {
	_, srv := newTestGateway(t, testConfig(t, ""))

	resp := mcpPost(t, srv.URL+config.DefaultMCPPath, "", "", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), `resource_metadata="`+srv.URL+auth.ProtectedResourcePath+`"`)

	resp = mcpPost(t, srv.URL+config.DefaultMCPPath, "Bearer not-a-jwt", "", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDashboard_DevSubjectWithoutToken(t *testing.T) {
	cfg := testConfig(t, "")
	off := false
	cfg.Auth.RequireAuth = &off
	cfg.Auth.DevSubject = "local-dev"
	_, srv := newTestGateway(t, cfg)

	resp := get(t, srv.URL+"/api/dashboard/meals?date=2026-03-10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMCPEndpoint_ToolCallReachesDashboard(t *testing.T) {
	_, srv := newTestGateway(t, testConfig(t, ""), WithClock(fixedNow))
	endpoint := srv.URL + config.DefaultMCPPath
	alice := bearer(t, "alice")

	resp := mcpPost(t, endpoint, alice, "",
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := resp.Header.Get(mcp.HeaderSessionID)
	require.NotEmpty(t, sessionID)

	resp = mcpPost(t, endpoint, alice, sessionID,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"log_meal","arguments":{"items":[{"name":"Toast","calories":150,"protein":5}],"timeOfDay":"breakfast","loggedAt":"2026-03-10T08:00:00Z"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rpc struct {
		Result struct {
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	assert.False(t, rpc.Result.IsError)

	// another subject cannot reuse alice's session
	resp = mcpPost(t, endpoint, bearer(t, "bob"), sessionID, `{"jsonrpc":"2.0","id":3,"method":"ping"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = get(t, srv.URL+"/api/dashboard/meals?date=2026-03-10", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meals MealsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meals))
	require.Len(t, meals.Meals, 1)
	assert.Equal(t, 150.0, meals.Totals.Calories)

	resp = get(t, srv.URL+"/api/dashboard/meals?date=2026-03-10", bearer(t, "bob"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meals))
	assert.Empty(t, meals.Meals)
}
