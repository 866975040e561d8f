package stream

import "context"

// Repository stores the single stream's video reference, playback and
// metadata.
type Repository interface {
	Reset(context.Context, *ResetParams) error
	GetPlayback(context.Context) (Playback, error)
	SetPlayback(context.Context, *SetPlaybackParams) error
	GetVideoReference(context.Context) (*string, error)
	SetVideo(context.Context, *SetVideoParams) error
	GetMeta(context.Context) (Meta, error)
	UpdateMeta(context.Context, *UpdateMetaParams) (Meta, error)
	IncrViewerCount(context.Context) (int, error)
	DecrViewerCount(context.Context) (int, error)
}
