package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/config"
	"github.com/sakif/skillshare/internal/ratelimit"
	"github.com/sakif/skillshare/internal/server"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		Port:           8080,
		DBPath:         ":memory:",
		JWTSecret:      "server-test-secret-0123456789abcdef",
		JWTTTL:         time.Hour,
		AllowedOrigins: "http://localhost:5173",
		AuthRateLimit:  100,
		AuthRateWindow: time.Minute,
		UploadBaseURL:  "http://localhost:8080/uploads",
		UploadMaxBytes: 1 << 20,
	}
}

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func newClient(t *testing.T, cfg *config.Config, opts ...server.Option) (*client, *clock.Stub) {
	t.Helper()
	clk := clock.NewStub(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	opts = append([]server.Option{server.WithClock(clk)}, opts...)

	srv, err := server.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &client{t: t, srv: ts}, clk
}

func (c *client) do(method, path, token, body string) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (c *client) list(path, token string) []map[string]any {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.srv.URL+path, nil)
	require.NoError(c.t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var out []map[string]any
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (c *client) register(username string) (token, id string) {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/auth/register", "",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"password1"}`)
	require.Equal(c.t, http.StatusCreated, status, body)
	return body["token"].(string), body["user"].(map[string]any)["id"].(string)
}

func TestServer_SocialFlow(t *testing.T) {
	c, clk := newClient(t, testConfig())

	aToken, _ := c.register("alice")
	bToken, bID := c.register("bob")
	cToken, _ := c.register("carol")

	status, _ := c.do(http.MethodPost, "/auth/register", "",
		`{"username":"alice2","email":"ALICE@example.com","password":"password1"}`)
	assert.Equal(t, http.StatusConflict, status, "duplicate email")

	status, body := c.do(http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"wrong-one"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])

	status, _ = c.do(http.MethodPost, "/users/"+bID+"/follow", aToken, "")
	require.Equal(t, http.StatusOK, status)

	status, hello := c.do(http.MethodPost, "/posts", bToken, `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, status)
	c.do(http.MethodPost, "/posts", cToken, `{"content":"not followed"}`)
	clk.Advance(time.Minute)
	status, _ = c.do(http.MethodPost, "/posts", aToken, `{"content":"hi"}`)
	require.Equal(t, http.StatusCreated, status)

	feed := c.list("/posts", aToken)
	require.Len(t, feed, 2)
	assert.Equal(t, "hi", feed[0]["content"])
	assert.Equal(t, "hello", feed[1]["content"])

	helloID := hello["id"].(string)
	status, like := c.do(http.MethodPost, "/posts/"+helloID+"/like", aToken, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, like["liked"])
	assert.Equal(t, float64(1), like["likeCount"])

	status, _ = c.do(http.MethodDelete, "/posts/"+helloID, aToken, "")
	assert.Equal(t, http.StatusForbidden, status)

	notes := c.list("/notifications", bToken)
	require.Len(t, notes, 2)
	assert.Equal(t, "LIKE", notes[0]["type"])
	assert.Equal(t, "FOLLOW", notes[1]["type"])

	status, _ = c.do(http.MethodDelete, "/posts/"+helloID, bToken, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = c.do(http.MethodGet, "/posts/"+helloID, "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_AuthGate(t *testing.T) {
	c, _ := newClient(t, testConfig())
	token, id := c.register("alice")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"valid token", token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := c.do(http.MethodGet, "/users/profile", tt.header, "")
			assert.Equal(t, tt.want, status)
		})
	}

	// public reads need no token
	status, body := c.do(http.MethodGet, "/users/"+id, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "passwordHash")
}

func TestServer_EmailChangeRevokesOldToken(t *testing.T) {
	c, clk := newClient(t, testConfig())
	oldToken, _ := c.register("alice")

	clk.Advance(2 * time.Second)
	status, body := c.do(http.MethodPut, "/users/profile", oldToken, `{"email":"countess@example.com"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["emailChanged"])
	newToken := body["token"].(string)

	status, _ = c.do(http.MethodGet, "/users/profile", oldToken, "")
	assert.Equal(t, http.StatusUnauthorized, status, "token for the old email")

	// even if someone takes the old address, the old token stays dead
	status, _ = c.do(http.MethodPost, "/auth/register", "",
		`{"username":"mallory","email":"alice@example.com","password":"password1"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = c.do(http.MethodGet, "/users/profile", oldToken, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, me := c.do(http.MethodGet, "/users/profile", newToken, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "countess@example.com", me["email"])
}

func TestServer_AuthRateLimitWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := ratelimit.NewRedisStore(t.Context(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := testConfig()
	cfg.AuthRateLimit = 2
	c, _ := newClient(t, cfg, server.WithRateLimitStore(store))

	for range 2 {
		status, _ := c.do(http.MethodPost, "/auth/login", "", `{"email":"x@example.com","password":"whatever"}`)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := c.do(http.MethodPost, "/auth/login", "", `{"email":"x@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", body["error"])
}

func TestServer_Operational(t *testing.T) {
	c, _ := newClient(t, testConfig())

	status, body := c.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := c.srv.Client().Get(c.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "skillshare_http_requests_total")

	status, _ = c.do(http.MethodPost, "/code/run", "", `{"code":"print(1)"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_CORSPreflight(t *testing.T) {
	c, _ := newClient(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, c.srv.URL+"/posts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := c.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
