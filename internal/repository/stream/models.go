package stream

type Playback struct {
	Playing    bool    `redis:"playing"`
	Time       float64 `redis:"time"`
	LastUpdate int64   `redis:"last_update"`
}

type SetPlaybackParams struct {
	Playing    bool
	Time       float64
	LastUpdate int64
}

type SetVideoParams struct {
	VideoReference string
	Playback       SetPlaybackParams
}

type Meta struct {
	Title       string `redis:"title"`
	Description string `redis:"description"`
	Streamer    string `redis:"streamer"`
	ViewerCount int    `redis:"viewer_count"`
}

// UpdateMetaParams holds a partial update; nil fields are left untouched.
type UpdateMetaParams struct {
	Title       *string `redis:"title"`
	Description *string `redis:"description"`
	Streamer    *string `redis:"streamer"`
}

type ResetParams struct {
	LastUpdate int64
}
