package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/pkg/playback"
)

const DefaultHeartbeatInterval = 2 * time.Second

type AdminConfig struct {
	URL   string
	Token string
	// Player is sampled by RunHeartbeat.
	Player            playback.Player
	Clock             clockwork.Clock
	Logger            *slog.Logger
	HeartbeatInterval time.Duration
}

// Admin issues transport commands on behalf of the authoritative player.
type Admin struct {
	*session
	player   playback.Player
	clock    clockwork.Clock
	interval time.Duration
}

func DialAdmin(ctx context.Context, cfg *AdminConfig) (*Admin, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("admin token is required")
	}

	s, err := dial(ctx, cfg.URL, cfg.Token, cfg.Logger)
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	return &Admin{
		session:  s,
		player:   cfg.Player,
		clock:    clock,
		interval: interval,
	}, nil
}

type timePayload struct {
	Time *float64 `json:"time,omitempty"`
}

type seekPayload struct {
	Time float64 `json:"time"`
}

type heartbeatPayload struct {
	Time    float64 `json:"time"`
	Playing bool    `json:"playing"`
}

func (a *Admin) Register() error {
	return a.send(playback.CommandAdminRegister, nil)
}

// Play starts playback; a nil position keeps the server's current one.
func (a *Admin) Play(position *float64) error {
	return a.send(playback.CommandAdminPlay, timePayload{Time: position})
}

func (a *Admin) Pause(position *float64) error {
	return a.send(playback.CommandAdminPause, timePayload{Time: position})
}

func (a *Admin) Seek(position float64) error {
	return a.send(playback.CommandAdminSeek, seekPayload{Time: position})
}

func (a *Admin) Heartbeat(position float64, playing bool) error {
	return a.send(playback.CommandAdminHeartbeat, heartbeatPayload{
		Time:    position,
		Playing: playing,
	})
}

func (a *Admin) RequestMeta() error {
	return a.send(playback.CommandRequestMeta, nil)
}

// Run reads server events so that pings are answered. handle may be nil.
func (a *Admin) Run(ctx context.Context, handle EventHandler) error {
	return a.readLoop(ctx, handle)
}

// RunHeartbeat reports the local player's position every interval until ctx
// is done or a send fails. Nothing is sent while no source is loaded.
func (a *Admin) RunHeartbeat(ctx context.Context) error {
	if a.player == nil {
		return fmt.Errorf("player is required")
	}

	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if a.player.Source() == "" {
				continue
			}
			if err := a.Heartbeat(a.player.Position(), !a.player.Paused()); err != nil {
				return err
			}
		}
	}
}
