package stream

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/stream"
	"github.com/sharetube/watchparty/pkg/playback"
)

type UpdateMetaParams struct {
	Title       *string
	Description *string
	Streamer    *string
	// AdminId replaces an empty Streamer.
	AdminId string
}

func (s *service) UpdateMeta(ctx context.Context, params *UpdateMetaParams) (playback.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamer := params.Streamer
	if streamer != nil && *streamer == "" {
		adminId := params.AdminId
		streamer = &adminId
	}

	meta, err := s.streamRepo.UpdateMeta(ctx, &stream.UpdateMetaParams{
		Title:       params.Title,
		Description: params.Description,
		Streamer:    streamer,
	})
	if err != nil {
		return playback.Meta{}, fmt.Errorf("failed to update meta: %w", err)
	}

	res := metaFromRepo(meta)
	if err := s.broadcast(ctx, playback.EventMetaUpdated, res); err != nil {
		return playback.Meta{}, fmt.Errorf("failed to broadcast meta: %w", err)
	}

	return res, nil
}

type RequestMetaParams struct {
	ConnectionId string
}

// RequestMeta answers the sender alone with the current metadata.
func (s *service) RequestMeta(ctx context.Context, params *RequestMetaParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connRepo.Get(params.ConnectionId)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}

	meta, err := s.streamRepo.GetMeta(ctx)
	if err != nil {
		return fmt.Errorf("failed to get meta: %w", err)
	}

	return s.send(ctx, client, playback.EventMetaUpdated, metaFromRepo(meta))
}

func (s *service) GetSnapshot(ctx context.Context) (playback.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot(ctx)
}

// snapshot must be called with mu held.
func (s *service) snapshot(ctx context.Context) (playback.Snapshot, error) {
	ref, err := s.streamRepo.GetVideoReference(ctx)
	if err != nil {
		return playback.Snapshot{}, fmt.Errorf("failed to get video reference: %w", err)
	}

	meta, err := s.streamRepo.GetMeta(ctx)
	if err != nil {
		return playback.Snapshot{}, fmt.Errorf("failed to get meta: %w", err)
	}

	current, err := s.streamRepo.GetPlayback(ctx)
	if err != nil {
		return playback.Snapshot{}, fmt.Errorf("failed to get playback: %w", err)
	}

	return playback.Snapshot{
		VideoReference: ref,
		StreamMeta:     metaFromRepo(meta),
		Playback:       playbackFromRepo(current),
	}, nil
}
