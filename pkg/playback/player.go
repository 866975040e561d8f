package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrNoSource = errors.New("no source loaded")

// Player is the local media element a viewer drives. Seek and Play may
// complete asynchronously; callers do not wait for them.
type Player interface {
	Load(src string)
	Source() string
	Position() float64
	Seek(position float64)
	Play() error
	Pause()
	Paused() bool
}

// VirtualPlayer is a headless Player whose position advances with its clock
// while playing.
type VirtualPlayer struct {
	clock clockwork.Clock

	mu        sync.Mutex
	src       string
	base      float64
	startedAt time.Time
	playing   bool
	seeks     int
	// playErr, when set, is returned by Play and playback does not start.
	playErr error
}

func NewVirtualPlayer(clock clockwork.Clock) *VirtualPlayer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &VirtualPlayer{clock: clock}
}

func (p *VirtualPlayer) Load(src string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.src = src
	p.base = 0
	p.playing = false
}

func (p *VirtualPlayer) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.src
}

func (p *VirtualPlayer) position() float64 {
	if !p.playing {
		return p.base
	}

	return p.base + p.clock.Since(p.startedAt).Seconds()
}

func (p *VirtualPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.position()
}

func (p *VirtualPlayer) Seek(position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if position < 0 {
		position = 0
	}
	p.base = position
	p.startedAt = p.clock.Now()
	p.seeks++
}

func (p *VirtualPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src == "" {
		return ErrNoSource
	}
	if p.playErr != nil {
		return p.playErr
	}
	if p.playing {
		return nil
	}

	p.startedAt = p.clock.Now()
	p.playing = true

	return nil
}

func (p *VirtualPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.base = p.position()
	p.playing = false
}

func (p *VirtualPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return !p.playing
}

// SeekCount reports how many times Seek was called.
func (p *VirtualPlayer) SeekCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.seeks
}

// BlockPlayback makes subsequent Play calls fail with err, the way a browser
// rejects autoplay. A nil err lifts the block.
func (p *VirtualPlayer) BlockPlayback(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playErr = err
}
