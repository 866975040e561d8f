package stream

import (
	"github.com/sharetube/watchparty/internal/repository/stream"
	"github.com/sharetube/watchparty/pkg/playback"
)

func playbackFromRepo(p stream.Playback) playback.State {
	return playback.State{
		Playing:    p.Playing,
		Time:       p.Time,
		LastUpdate: p.LastUpdate,
	}
}

func metaFromRepo(m stream.Meta) playback.Meta {
	return playback.Meta{
		Title:       m.Title,
		Description: m.Description,
		Streamer:    m.Streamer,
		ViewerCount: m.ViewerCount,
	}
}

type PlaybackResponse struct {
	Playback playback.State
}
