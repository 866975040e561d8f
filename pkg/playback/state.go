package playback

import "time"

// Events sent by the server.
const (
	EventCurrentState      = "current-state"
	EventVideoChanged      = "video-changed"
	EventAdminPlay         = "admin-play"
	EventAdminPause        = "admin-pause"
	EventAdminSeek         = "admin-seek"
	EventAdminSync         = "admin-sync"
	EventMetaUpdated       = "meta-updated"
	EventAdminDisconnected = "admin-disconnected"
	EventError             = "error"
)

// Commands sent by clients.
const (
	CommandAdminRegister  = "admin-register"
	CommandAdminPlay      = "admin-play"
	CommandAdminPause     = "admin-pause"
	CommandAdminSeek      = "admin-seek"
	CommandAdminHeartbeat = "admin-heartbeat"
	CommandRequestMeta    = "request-meta"
)

// State is the authoritative playback state. Time is only ever a position
// reported by the admin player; LastUpdate is the Unix millisecond instant it
// was reported at.
type State struct {
	Playing    bool    `json:"playing"`
	Time       float64 `json:"time"`
	LastUpdate int64   `json:"last_update"`
}

func (s State) LastUpdateTime() time.Time {
	return time.UnixMilli(s.LastUpdate)
}

// Initial is the stopped-at-zero state a new video starts from.
func Initial(now time.Time) State {
	return State{
		Playing:    false,
		Time:       0,
		LastUpdate: now.UnixMilli(),
	}
}

type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Streamer    string `json:"streamer"`
	ViewerCount int    `json:"viewer_count"`
}

// Snapshot is what a newly joined connection receives.
type Snapshot struct {
	VideoReference *string `json:"video_reference"`
	StreamMeta     Meta    `json:"stream_meta"`
	Playback       State   `json:"playback"`
}
