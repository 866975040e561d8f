package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/pkg/playback"
)

type ViewerConfig struct {
	URL    string
	Player playback.Player
	Clock  clockwork.Clock
	Logger *slog.Logger
	// OnEvent, when set, is called after an event has been applied.
	OnEvent EventHandler
}

// Viewer follows the stream: every event it reads is applied to its own
// Reconciler and player.
type Viewer struct {
	*session
	reconciler *playback.Reconciler
	onEvent    EventHandler
}

func DialViewer(ctx context.Context, cfg *ViewerConfig) (*Viewer, error) {
	if cfg.Player == nil {
		return nil, fmt.Errorf("player is required")
	}

	s, err := dial(ctx, cfg.URL, "", cfg.Logger)
	if err != nil {
		return nil, err
	}

	return &Viewer{
		session:    s,
		reconciler: playback.NewReconciler(cfg.Player, cfg.Clock, s.logger),
		onEvent:    cfg.OnEvent,
	}, nil
}

// Run reads events until the connection ends or ctx is done.
func (v *Viewer) Run(ctx context.Context) error {
	return v.readLoop(ctx, v.handle)
}

func (v *Viewer) handle(eventType string, payload json.RawMessage) {
	if err := v.reconciler.Apply(eventType, payload); err != nil {
		v.logger.Warn("failed to apply event", "type", eventType, "error", err)
	}

	if v.onEvent != nil {
		v.onEvent(eventType, payload)
	}
}

func (v *Viewer) Meta() playback.Meta {
	return v.reconciler.Meta()
}

func (v *Viewer) RequestMeta() error {
	return v.send(playback.CommandRequestMeta, nil)
}
