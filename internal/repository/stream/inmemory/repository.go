package inmemory

import (
	"context"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/stream"
)

var _ stream.Repository = (*repo)(nil)

type repo struct {
	mu       sync.RWMutex
	playback stream.Playback
	video    *string
	meta     stream.Meta
}

func NewRepo() *repo {
	return &repo{}
}

func (r *repo) Reset(_ context.Context, params *stream.ResetParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.playback = stream.Playback{LastUpdate: params.LastUpdate}
	r.video = nil
	r.meta = stream.Meta{}

	return nil
}

func (r *repo) GetPlayback(_ context.Context) (stream.Playback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.playback, nil
}

func (r *repo) SetPlayback(_ context.Context, params *stream.SetPlaybackParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.playback = stream.Playback{
		Playing:    params.Playing,
		Time:       params.Time,
		LastUpdate: params.LastUpdate,
	}

	return nil
}

func (r *repo) GetVideoReference(_ context.Context) (*string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.video == nil {
		return nil, nil
	}
	ref := *r.video

	return &ref, nil
}

func (r *repo) SetVideo(_ context.Context, params *stream.SetVideoParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := params.VideoReference
	r.video = &ref
	r.playback = stream.Playback{
		Playing:    params.Playback.Playing,
		Time:       params.Playback.Time,
		LastUpdate: params.Playback.LastUpdate,
	}

	return nil
}

func (r *repo) GetMeta(_ context.Context) (stream.Meta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.meta, nil
}

func (r *repo) UpdateMeta(_ context.Context, params *stream.UpdateMetaParams) (stream.Meta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if params.Title != nil {
		r.meta.Title = *params.Title
	}
	if params.Description != nil {
		r.meta.Description = *params.Description
	}
	if params.Streamer != nil {
		r.meta.Streamer = *params.Streamer
	}

	return r.meta, nil
}

func (r *repo) IncrViewerCount(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.meta.ViewerCount++

	return r.meta.ViewerCount, nil
}

func (r *repo) DecrViewerCount(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.meta.ViewerCount > 0 {
		r.meta.ViewerCount--
	}

	return r.meta.ViewerCount, nil
}
