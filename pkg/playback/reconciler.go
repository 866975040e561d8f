package playback

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
)

const (
	// PlayDriftThreshold is the tolerated drift, in seconds, when a discrete
	// play event arrives.
	PlayDriftThreshold = 0.7
	// SyncDriftThreshold is the tolerated drift, in seconds, for periodic
	// heartbeat corrections.
	SyncDriftThreshold = 0.8
)

// Reconciler applies authoritative events to a local Player. One Reconciler
// serves exactly one viewer.
type Reconciler struct {
	player Player
	clock  clockwork.Clock
	logger *slog.Logger

	mu   sync.Mutex
	meta Meta
}

func NewReconciler(player Player, clock clockwork.Clock, logger *slog.Logger) *Reconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		player: player,
		clock:  clock,
		logger: logger,
	}
}

// Apply decodes payload according to eventType and applies it. Unknown event
// types are ignored.
func (r *Reconciler) Apply(eventType string, payload json.RawMessage) error {
	switch eventType {
	case EventCurrentState:
		var snapshot Snapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		r.CurrentState(snapshot)
	case EventVideoChanged:
		var ref string
		if err := json.Unmarshal(payload, &ref); err != nil {
			return fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		r.VideoChanged(ref)
	case EventAdminPlay, EventAdminPause, EventAdminSeek, EventAdminSync:
		var state State
		if err := json.Unmarshal(payload, &state); err != nil {
			return fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		switch eventType {
		case EventAdminPlay:
			r.AdminPlay(state)
		case EventAdminPause:
			r.AdminPause(state)
		case EventAdminSeek:
			r.AdminSeek(state)
		case EventAdminSync:
			r.AdminSync(state)
		}
	case EventMetaUpdated:
		var meta Meta
		if err := json.Unmarshal(payload, &meta); err != nil {
			return fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		r.MetaUpdated(meta)
	case EventAdminDisconnected:
		r.AdminDisconnected()
	default:
		r.logger.Debug("ignoring event", "type", eventType)
	}

	return nil
}

// CurrentState catches a late joiner up with a snapshot.
func (r *Reconciler) CurrentState(snapshot Snapshot) {
	r.MetaUpdated(snapshot.StreamMeta)

	if snapshot.VideoReference != nil && *snapshot.VideoReference != r.player.Source() {
		r.player.Load(*snapshot.VideoReference)
		r.player.Pause()
	}

	r.AdminSync(snapshot.Playback)
}

// VideoChanged loads the new source and leaves it paused until the admin
// starts playback.
func (r *Reconciler) VideoChanged(ref string) {
	r.player.Load(ref)
	r.player.Pause()
}

func (r *Reconciler) AdminPlay(state State) {
	if !r.hasSource() {
		return
	}

	r.correct(Predict(state, r.clock.Now()), PlayDriftThreshold)
	r.play()
}

func (r *Reconciler) AdminPause(state State) {
	if !r.hasSource() {
		return
	}

	r.player.Seek(state.Time)
	r.player.Pause()
}

func (r *Reconciler) AdminSeek(state State) {
	if !r.hasSource() {
		return
	}

	r.player.Seek(state.Time)
}

func (r *Reconciler) AdminSync(state State) {
	if !r.hasSource() {
		return
	}

	r.correct(Predict(state, r.clock.Now()), SyncDriftThreshold)
	if state.Playing {
		r.play()
	} else {
		r.player.Pause()
	}
}

func (r *Reconciler) MetaUpdated(meta Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.meta = meta
}

// AdminDisconnected is informational; local playback is left as is.
func (r *Reconciler) AdminDisconnected() {
	r.logger.Warn("admin disconnected, stream is no longer authoritative")
}

func (r *Reconciler) Meta() Meta {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.meta
}

func (r *Reconciler) hasSource() bool {
	return r.player.Source() != ""
}

func (r *Reconciler) correct(predicted, threshold float64) {
	if Drift(r.player.Position(), predicted) > threshold {
		r.player.Seek(predicted)
	}
}

// play is best effort: a rejected play attempt is dropped and the viewer's
// manual play control is the recovery path.
func (r *Reconciler) play() {
	if err := r.player.Play(); err != nil {
		r.logger.Debug("local play rejected", "error", err)
	}
}
