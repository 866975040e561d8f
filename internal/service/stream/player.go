package stream

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/stream"
	"github.com/sharetube/watchparty/pkg/playback"
)

// setPlayback stores state and broadcasts it as eventType. Must be called
// with mu held.
func (s *service) setPlayback(ctx context.Context, eventType string, state playback.State) (PlaybackResponse, error) {
	if err := s.streamRepo.SetPlayback(ctx, &stream.SetPlaybackParams{
		Playing:    state.Playing,
		Time:       state.Time,
		LastUpdate: state.LastUpdate,
	}); err != nil {
		return PlaybackResponse{}, fmt.Errorf("failed to set playback: %w", err)
	}

	if err := s.broadcast(ctx, eventType, state); err != nil {
		return PlaybackResponse{}, fmt.Errorf("failed to broadcast playback: %w", err)
	}

	return PlaybackResponse{
		Playback: state,
	}, nil
}

// authorizedPlayback checks the sender and loads the stored playback. Must be
// called with mu held.
func (s *service) authorizedPlayback(ctx context.Context, senderId string) (playback.State, error) {
	if err := s.checkAuthority(senderId); err != nil {
		return playback.State{}, err
	}

	current, err := s.streamRepo.GetPlayback(ctx)
	if err != nil {
		return playback.State{}, fmt.Errorf("failed to get playback: %w", err)
	}

	return playbackFromRepo(current), nil
}

type PlayParams struct {
	SenderId string
	// Time is the position reported by the admin player; nil keeps the
	// stored one.
	Time *float64
}

func (s *service) Play(ctx context.Context, params *PlayParams) (PlaybackResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.authorizedPlayback(ctx, params.SenderId)
	if err != nil {
		return PlaybackResponse{}, err
	}

	state.Playing = true
	if params.Time != nil {
		state.Time = *params.Time
	}
	state.LastUpdate = s.clock.Now().UnixMilli()

	return s.setPlayback(ctx, playback.EventAdminPlay, state)
}

type PauseParams struct {
	SenderId string
	Time     *float64
}

func (s *service) Pause(ctx context.Context, params *PauseParams) (PlaybackResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.authorizedPlayback(ctx, params.SenderId)
	if err != nil {
		return PlaybackResponse{}, err
	}

	state.Playing = false
	if params.Time != nil {
		state.Time = *params.Time
	}
	state.LastUpdate = s.clock.Now().UnixMilli()

	return s.setPlayback(ctx, playback.EventAdminPause, state)
}

type SeekParams struct {
	SenderId string
	Time     float64
}

// Seek moves the position and leaves the running state untouched.
func (s *service) Seek(ctx context.Context, params *SeekParams) (PlaybackResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.authorizedPlayback(ctx, params.SenderId)
	if err != nil {
		return PlaybackResponse{}, err
	}

	state.Time = params.Time
	state.LastUpdate = s.clock.Now().UnixMilli()

	return s.setPlayback(ctx, playback.EventAdminSeek, state)
}

type HeartbeatParams struct {
	SenderId string
	Time     float64
	Playing  bool
}

func (s *service) Heartbeat(ctx context.Context, params *HeartbeatParams) (PlaybackResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAuthority(params.SenderId); err != nil {
		return PlaybackResponse{}, err
	}

	return s.setPlayback(ctx, playback.EventAdminSync, playback.State{
		Playing:    params.Playing,
		Time:       params.Time,
		LastUpdate: s.clock.Now().UnixMilli(),
	})
}
