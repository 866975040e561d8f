package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/stream"
	omitnilpointers "github.com/sharetube/watchparty/pkg/omit-nil-pointers"
)

const defaultKeyPrefix = "stream:"

// decrViewerCountScript decrements the viewer counter without letting it go
// below zero.
var decrViewerCountScript = redis.NewScript(`
	local count = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
	if count > 0 then
		count = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
	end
	return count
`)

var _ stream.Repository = (*repo)(nil)

type repo struct {
	rc     *redis.Client
	prefix string
}

// NewRepo returns a stream store backed by rc. An empty prefix falls back to
// "stream:".
func NewRepo(rc *redis.Client, prefix string) *repo {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &repo{
		rc:     rc,
		prefix: prefix,
	}
}

func (r repo) getPlaybackKey() string {
	return r.prefix + "playback"
}

func (r repo) getVideoKey() string {
	return r.prefix + "video"
}

func (r repo) getMetaKey() string {
	return r.prefix + "meta"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

func (r repo) Reset(ctx context.Context, params *stream.ResetParams) error {
	pipe := r.rc.TxPipeline()

	pipe.Del(ctx, r.getPlaybackKey(), r.getVideoKey(), r.getMetaKey())
	pipe.HSet(ctx, r.getPlaybackKey(), stream.Playback{LastUpdate: params.LastUpdate})

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to reset stream: %w", err)
	}

	return nil
}

func (r repo) GetPlayback(ctx context.Context) (stream.Playback, error) {
	var playback stream.Playback
	if err := r.rc.HGetAll(ctx, r.getPlaybackKey()).Scan(&playback); err != nil {
		return stream.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	return playback, nil
}

func (r repo) SetPlayback(ctx context.Context, params *stream.SetPlaybackParams) error {
	playback := stream.Playback{
		Playing:    params.Playing,
		Time:       params.Time,
		LastUpdate: params.LastUpdate,
	}
	if err := r.rc.HSet(ctx, r.getPlaybackKey(), playback).Err(); err != nil {
		return fmt.Errorf("failed to set playback: %w", err)
	}

	return nil
}

func (r repo) GetVideoReference(ctx context.Context) (*string, error) {
	ref, err := r.rc.Get(ctx, r.getVideoKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get video reference: %w", err)
	}

	return &ref, nil
}

// SetVideo replaces the video reference and playback in one transaction so
// readers never observe a new video with the old position.
func (r repo) SetVideo(ctx context.Context, params *stream.SetVideoParams) error {
	pipe := r.rc.TxPipeline()

	pipe.Set(ctx, r.getVideoKey(), params.VideoReference, 0)
	pipe.HSet(ctx, r.getPlaybackKey(), stream.Playback{
		Playing:    params.Playback.Playing,
		Time:       params.Playback.Time,
		LastUpdate: params.Playback.LastUpdate,
	})

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set video: %w", err)
	}

	return nil
}

func (r repo) GetMeta(ctx context.Context) (stream.Meta, error) {
	var meta stream.Meta
	if err := r.rc.HGetAll(ctx, r.getMetaKey()).Scan(&meta); err != nil {
		return stream.Meta{}, fmt.Errorf("failed to get meta: %w", err)
	}

	return meta, nil
}

func (r repo) UpdateMeta(ctx context.Context, params *stream.UpdateMetaParams) (stream.Meta, error) {
	fields := omitnilpointers.Fields(params, "redis")
	if len(fields) > 0 {
		if err := r.rc.HSet(ctx, r.getMetaKey(), fields).Err(); err != nil {
			return stream.Meta{}, fmt.Errorf("failed to update meta: %w", err)
		}
	}

	return r.GetMeta(ctx)
}

func (r repo) IncrViewerCount(ctx context.Context) (int, error) {
	count, err := r.rc.HIncrBy(ctx, r.getMetaKey(), "viewer_count", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment viewer count: %w", err)
	}

	return int(count), nil
}

func (r repo) DecrViewerCount(ctx context.Context) (int, error) {
	count, err := decrViewerCountScript.Run(ctx, r.rc, []string{r.getMetaKey()}, "viewer_count").Int()
	if err != nil {
		return 0, fmt.Errorf("failed to decrement viewer count: %w", err)
	}

	return count, nil
}
