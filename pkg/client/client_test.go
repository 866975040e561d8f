package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/pkg/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

// fakeServer accepts one connection, records what it receives and writes
// whatever is put on its outbox.
type fakeServer struct {
	srv    *httptest.Server
	outbox chan []byte
	query  chan string
}

type receivedCommand struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newFakeServer(t *testing.T) (*fakeServer, chan receivedCommand) {
	t.Helper()

	commands := make(chan receivedCommand, 16)
	fs := &fakeServer{
		outbox: make(chan []byte, 16),
		query:  make(chan string, 1),
	}

	upgrader := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.query <- r.URL.Query().Get("admin-token")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for msg := range fs.outbox {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			var cmd receivedCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			commands <- cmd
		}
	}))
	t.Cleanup(fs.srv.Close)

	return fs, commands
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeServer) push(t *testing.T, eventType string, payload any) {
	t.Helper()

	raw, err := json.Marshal(map[string]any{"type": eventType, "payload": payload})
	require.NoError(t, err)
	fs.outbox <- raw
}

func nextCommand(t *testing.T, commands chan receivedCommand) receivedCommand {
	t.Helper()

	select {
	case cmd := <-commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("no command received")
		return receivedCommand{}
	}
}

func TestViewerFollowsStream(t *testing.T) {
	fs, _ := newFakeServer(t)
	clock := clockwork.NewFakeClockAt(epoch)
	player := playback.NewVirtualPlayer(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	viewer, err := DialViewer(ctx, &ViewerConfig{URL: fs.url(), Player: player, Clock: clock})
	require.NoError(t, err)
	assert.Empty(t, <-fs.query)

	runErr := make(chan error, 1)
	go func() { runErr <- viewer.Run(ctx) }()

	ref := "a.mp4"
	fs.push(t, playback.EventCurrentState, playback.Snapshot{
		VideoReference: &ref,
		StreamMeta:     playback.Meta{Title: "Movie night", ViewerCount: 2},
		Playback: playback.State{
			Playing:    true,
			Time:       42,
			LastUpdate: epoch.Add(-5 * time.Second).UnixMilli(),
		},
	})

	require.Eventually(t, func() bool {
		return !player.Paused()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "a.mp4", player.Source())
	assert.InDelta(t, 47.0, player.Position(), 1e-6)
	assert.Equal(t, "Movie night", viewer.Meta().Title)

	fs.push(t, playback.EventAdminPause, playback.State{Playing: false, Time: 50, LastUpdate: epoch.UnixMilli()})
	require.Eventually(t, func() bool {
		return player.Paused()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 50.0, player.Position())

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestAdminCommands(t *testing.T) {
	fs, commands := newFakeServer(t)
	ctx := context.Background()

	admin, err := DialAdmin(ctx, &AdminConfig{URL: fs.url(), Token: "tok"})
	require.NoError(t, err)
	defer admin.Close()
	assert.Equal(t, "tok", <-fs.query)

	require.NoError(t, admin.Register())
	require.NoError(t, admin.Seek(0))
	require.NoError(t, admin.Play(nil))
	position := 0.0
	require.NoError(t, admin.Pause(&position))
	require.NoError(t, admin.Heartbeat(12.5, true))

	cmd := nextCommand(t, commands)
	assert.Equal(t, playback.CommandAdminRegister, cmd.Type)
	assert.Empty(t, cmd.Payload)

	cmd = nextCommand(t, commands)
	assert.Equal(t, playback.CommandAdminSeek, cmd.Type)
	assert.JSONEq(t, `{"time":0}`, string(cmd.Payload), "seek to zero keeps the time")

	cmd = nextCommand(t, commands)
	assert.Equal(t, playback.CommandAdminPlay, cmd.Type)
	assert.JSONEq(t, `{}`, string(cmd.Payload))

	cmd = nextCommand(t, commands)
	assert.Equal(t, playback.CommandAdminPause, cmd.Type)
	assert.JSONEq(t, `{"time":0}`, string(cmd.Payload))

	cmd = nextCommand(t, commands)
	assert.Equal(t, playback.CommandAdminHeartbeat, cmd.Type)
	assert.JSONEq(t, `{"time":12.5,"playing":true}`, string(cmd.Payload))
}

func TestDialAdminRequiresToken(t *testing.T) {
	_, err := DialAdmin(context.Background(), &AdminConfig{URL: "ws://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRunHeartbeat(t *testing.T) {
	fs, commands := newFakeServer(t)
	clock := clockwork.NewFakeClockAt(epoch)
	player := playback.NewVirtualPlayer(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin, err := DialAdmin(ctx, &AdminConfig{
		URL:    fs.url(),
		Token:  "tok",
		Player: player,
		Clock:  clock,
	})
	require.NoError(t, err)
	defer admin.Close()

	go admin.RunHeartbeat(ctx)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(DefaultHeartbeatInterval)
	select {
	case cmd := <-commands:
		t.Fatalf("heartbeat without a source: %s", cmd.Type)
	case <-time.After(100 * time.Millisecond):
	}

	player.Load("a.mp4")
	player.Seek(10)
	require.NoError(t, player.Play())

	clock.Advance(DefaultHeartbeatInterval)
	cmd := nextCommand(t, commands)
	require.Equal(t, playback.CommandAdminHeartbeat, cmd.Type)

	var payload heartbeatPayload
	require.NoError(t, json.Unmarshal(cmd.Payload, &payload))
	assert.True(t, payload.Playing)
	assert.InDelta(t, 12.0, payload.Time, 1e-6)
}
