package playback

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T) (*Reconciler, *VirtualPlayer, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(epoch)
	player := NewVirtualPlayer(clock)

	return NewReconciler(player, clock, nil), player, clock
}

// playingAt loads a source and leaves the player running at position.
func playingAt(t *testing.T, player *VirtualPlayer, position float64) {
	t.Helper()

	player.Load("/uploads/stream.mp4")
	player.Seek(position)
	require.NoError(t, player.Play())
}

func TestVideoChangedLoadsPaused(t *testing.T) {
	r, player, _ := newTestReconciler(t)
	playingAt(t, player, 30)

	r.VideoChanged("a.mp4")

	assert.Equal(t, "a.mp4", player.Source())
	assert.True(t, player.Paused())
	assert.Equal(t, 0.0, player.Position())
}

func TestLateJoinerStartsAtPredictedPosition(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	ref := "a.mp4"
	snapshot := Snapshot{
		VideoReference: &ref,
		StreamMeta:     Meta{Title: "movie night", ViewerCount: 3},
		Playback:       State{Playing: true, Time: 42, LastUpdate: clock.Now().UnixMilli()},
	}

	clock.Advance(5 * time.Second)
	r.CurrentState(snapshot)

	assert.Equal(t, "a.mp4", player.Source())
	assert.False(t, player.Paused())
	assert.InDelta(t, 47.0, player.Position(), 1e-9)
	assert.Equal(t, "movie night", r.Meta().Title)
}

func TestCurrentStateWithoutVideoDoesNothing(t *testing.T) {
	r, player, clock := newTestReconciler(t)

	r.CurrentState(Snapshot{Playback: State{Playing: true, Time: 42, LastUpdate: clock.Now().UnixMilli()}})

	assert.Empty(t, player.Source())
	assert.True(t, player.Paused())
	assert.Equal(t, 0, player.SeekCount())
}

func TestHeartbeatWithinToleranceDoesNotSeek(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	playingAt(t, player, 10)
	seeks := player.SeekCount()

	r.AdminSync(State{Playing: true, Time: 10.5, LastUpdate: clock.Now().UnixMilli()})
	assert.Equal(t, seeks, player.SeekCount())
	assert.False(t, player.Paused())

	r.AdminSync(State{Playing: false, Time: 10.5, LastUpdate: clock.Now().UnixMilli()})
	assert.Equal(t, seeks, player.SeekCount())
	assert.True(t, player.Paused())
	assert.Equal(t, 10.0, player.Position())
}

func TestHeartbeatBeyondToleranceSeeks(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	playingAt(t, player, 10)

	r.AdminSync(State{Playing: true, Time: 20, LastUpdate: clock.Now().UnixMilli()})

	assert.Equal(t, 20.0, player.Position())
	assert.False(t, player.Paused())
}

func TestPlayCorrectsMoreAggressivelyThanSync(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	playingAt(t, player, 10)
	seeks := player.SeekCount()
	state := State{Playing: true, Time: 10.75, LastUpdate: clock.Now().UnixMilli()}

	r.AdminSync(state)
	assert.Equal(t, seeks, player.SeekCount())

	r.AdminPlay(state)
	assert.Equal(t, seeks+1, player.SeekCount())
	assert.Equal(t, 10.75, player.Position())
}

func TestPlayUsesPredictedPosition(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	player.Load("a.mp4")
	state := State{Playing: true, Time: 100, LastUpdate: clock.Now().UnixMilli()}

	clock.Advance(3 * time.Second)
	r.AdminPlay(state)

	assert.False(t, player.Paused())
	assert.InDelta(t, 103.0, player.Position(), 1e-9)
}

func TestPauseAndSeekSnapExactly(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	playingAt(t, player, 10)

	r.AdminSeek(State{Playing: true, Time: 10.2, LastUpdate: clock.Now().UnixMilli()})
	assert.Equal(t, 10.2, player.Position())
	assert.False(t, player.Paused(), "seek keeps the running state")

	r.AdminPause(State{Playing: false, Time: 10.3, LastUpdate: clock.Now().UnixMilli()})
	assert.Equal(t, 10.3, player.Position())
	assert.True(t, player.Paused())

	r.AdminSeek(State{Playing: false, Time: 0, LastUpdate: clock.Now().UnixMilli()})
	assert.Equal(t, 0.0, player.Position())
	assert.True(t, player.Paused())
}

func TestTransportEventsWithoutSourceAreDropped(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	state := State{Playing: true, Time: 5, LastUpdate: clock.Now().UnixMilli()}

	r.AdminPlay(state)
	r.AdminPause(state)
	r.AdminSeek(state)
	r.AdminSync(state)

	assert.Equal(t, 0, player.SeekCount())
	assert.True(t, player.Paused())
}

func TestRejectedPlayIsSwallowed(t *testing.T) {
	r, player, clock := newTestReconciler(t)
	player.Load("a.mp4")
	player.BlockPlayback(errors.New("autoplay blocked"))

	r.AdminPlay(State{Playing: true, Time: 8, LastUpdate: clock.Now().UnixMilli()})

	assert.True(t, player.Paused())
	assert.Equal(t, 8.0, player.Position())

	player.BlockPlayback(nil)
	r.AdminSync(State{Playing: true, Time: 8, LastUpdate: clock.Now().UnixMilli()})
	assert.False(t, player.Paused())
}

func TestAdminDisconnectedKeepsPlaying(t *testing.T) {
	r, player, _ := newTestReconciler(t)
	playingAt(t, player, 10)

	require.NoError(t, r.Apply(EventAdminDisconnected, json.RawMessage("null")))

	assert.False(t, player.Paused())
}

func TestApplyDecodesEvents(t *testing.T) {
	r, player, clock := newTestReconciler(t)

	require.NoError(t, r.Apply(EventVideoChanged, json.RawMessage(`"b.mp4"`)))
	assert.Equal(t, "b.mp4", player.Source())

	payload, err := json.Marshal(State{Playing: false, Time: 12, LastUpdate: clock.Now().UnixMilli()})
	require.NoError(t, err)
	require.NoError(t, r.Apply(EventAdminSeek, payload))
	assert.Equal(t, 12.0, player.Position())

	require.NoError(t, r.Apply(EventMetaUpdated, json.RawMessage(`{"title":"t","viewer_count":4}`)))
	assert.Equal(t, 4, r.Meta().ViewerCount)

	require.NoError(t, r.Apply("unknown-event", nil))
	assert.Error(t, r.Apply(EventAdminPlay, json.RawMessage(`{"time":"soon"}`)))
}
