package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sharetube/watchparty/pkg/client"
	"github.com/sharetube/watchparty/pkg/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminKey = "admin-key"
	waitFor      = 3 * time.Second
	tick         = 10 * time.Millisecond
)

func validConfig() *AppConfig {
	return &AppConfig{
		Secret:     "secret",
		AdminKey:   testAdminKey,
		Host:       "127.0.0.1",
		Port:       8080,
		LogLevel:   "info",
		Store:      StoreMemory,
		SendBuffer: 64,
		TokenTTL:   time.Hour,
	}
}

func TestAppConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	for name, mutate := range map[string]func(*AppConfig){
		"no secret":      func(c *AppConfig) { c.Secret = "" },
		"no admin key":   func(c *AppConfig) { c.AdminKey = "" },
		"bad port":       func(c *AppConfig) { c.Port = 0 },
		"unknown store":  func(c *AppConfig) { c.Store = "postgres" },
		"no send buffer": func(c *AppConfig) { c.SendBuffer = 0 },
		"negative ttl":   func(c *AppConfig) { c.TokenTTL = -time.Second },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger("debug")
	assert.NoError(t, err)

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

func TestRunReturnsNilAfterShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := validConfig()
	cfg.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg)
	}()

	healthz := "http://127.0.0.1:" + strconv.Itoa(port) + "/api/v1/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthz)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, waitFor, tick)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("server did not stop")
	}
}

func startServer(t *testing.T, cfg *AppConfig) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	return srv
}

func issueToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/admin/token", nil)
	require.NoError(t, err)
	req.Header.Set("St-Admin-Key", testAdminKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Data.Token
}

func setVideo(t *testing.T, srv *httptest.Server, token, ref string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/video",
		strings.NewReader(`{"video_reference":"`+ref+`"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func getState(t *testing.T, srv *httptest.Server) playback.Snapshot {
	t.Helper()

	resp, err := http.Get(srv.URL + "/api/v1/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Data playback.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Data
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
}

func TestWatchParty(t *testing.T) {
	mr := miniredis.RunT(t)
	redisPort, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	redisConfig := validConfig()
	redisConfig.Store = StoreRedis
	redisConfig.RedisHost = mr.Host()
	redisConfig.RedisPort = redisPort

	for name, cfg := range map[string]*AppConfig{
		StoreMemory: validConfig(),
		StoreRedis:  redisConfig,
	} {
		t.Run(name, func(t *testing.T) {
			testWatchParty(t, startServer(t, cfg))
		})
	}
}

func testWatchParty(t *testing.T, srv *httptest.Server) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := issueToken(t, srv)
	admin, err := client.DialAdmin(ctx, &client.AdminConfig{URL: wsURL(srv), Token: token})
	require.NoError(t, err)
	go admin.Run(ctx, nil)
	require.NoError(t, admin.Register())

	setVideo(t, srv, token, "a.mp4")
	start := 42.0
	require.NoError(t, admin.Play(&start))
	require.Eventually(t, func() bool {
		return getState(t, srv).Playback.Playing
	}, waitFor, tick)

	disconnected := make(chan struct{}, 1)
	player := playback.NewVirtualPlayer(nil)
	viewer, err := client.DialViewer(ctx, &client.ViewerConfig{
		URL:    wsURL(srv),
		Player: player,
		OnEvent: func(eventType string, _ json.RawMessage) {
			if eventType == playback.EventAdminDisconnected {
				disconnected <- struct{}{}
			}
		},
	})
	require.NoError(t, err)
	defer viewer.Close()
	go viewer.Run(ctx)

	// late joiner starts from the predicted position
	require.Eventually(t, func() bool {
		return player.Source() == "a.mp4" && !player.Paused()
	}, waitFor, tick)
	assert.GreaterOrEqual(t, player.Position(), start)
	assert.Less(t, player.Position(), start+waitFor.Seconds())

	require.Eventually(t, func() bool {
		return viewer.Meta().ViewerCount == 1
	}, waitFor, tick)

	require.NoError(t, admin.Seek(0))
	require.Eventually(t, func() bool {
		return player.Position() < 1
	}, waitFor, tick)

	paused := 5.0
	require.NoError(t, admin.Pause(&paused))
	require.Eventually(t, func() bool {
		return player.Paused() && math.Abs(player.Position()-paused) < 0.1
	}, waitFor, tick)

	require.NoError(t, admin.Heartbeat(30, true))
	require.Eventually(t, func() bool {
		return !player.Paused() && player.Position() >= 30
	}, waitFor, tick)

	require.NoError(t, admin.Close())
	select {
	case <-disconnected:
	case <-time.After(waitFor):
		t.Fatal("viewer was not told about the admin leaving")
	}
	assert.False(t, player.Paused(), "admin leaving does not pause viewers")
}
