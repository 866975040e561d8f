package stream

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/stream"
	"github.com/sharetube/watchparty/pkg/playback"
)

type ChangeVideoParams struct {
	VideoReference string
}

type ChangeVideoResponse struct {
	VideoReference string
	Playback       playback.State
}

// ChangeVideo replaces the video and restarts playback from a stopped zero
// position.
func (s *service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) (ChangeVideoResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := playback.Initial(s.clock.Now())
	if err := s.streamRepo.SetVideo(ctx, &stream.SetVideoParams{
		VideoReference: params.VideoReference,
		Playback: stream.SetPlaybackParams{
			Playing:    state.Playing,
			Time:       state.Time,
			LastUpdate: state.LastUpdate,
		},
	}); err != nil {
		return ChangeVideoResponse{}, fmt.Errorf("failed to set video: %w", err)
	}

	s.logger.InfoContext(ctx, "video changed", "video_reference", params.VideoReference)

	if err := s.broadcast(ctx, playback.EventVideoChanged, params.VideoReference); err != nil {
		return ChangeVideoResponse{}, fmt.Errorf("failed to broadcast video change: %w", err)
	}

	return ChangeVideoResponse{
		VideoReference: params.VideoReference,
		Playback:       state,
	}, nil
}
