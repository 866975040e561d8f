package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/stream"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotAdmin         = fmt.Errorf("%w: connection is not admin", ErrPermissionDenied)
)

type iStreamRepo interface {
	Reset(context.Context, *stream.ResetParams) error
	GetPlayback(context.Context) (stream.Playback, error)
	SetPlayback(context.Context, *stream.SetPlaybackParams) error
	GetVideoReference(context.Context) (*string, error)
	SetVideo(context.Context, *stream.SetVideoParams) error
	GetMeta(context.Context) (stream.Meta, error)
	UpdateMeta(context.Context, *stream.UpdateMetaParams) (stream.Meta, error)
	IncrViewerCount(context.Context) (int, error)
	DecrViewerCount(context.Context) (int, error)
}

type iConnRepo interface {
	Add(*connection.Client) error
	Remove(string) (*connection.Client, error)
	Get(string) (*connection.Client, error)
	List() []*connection.Client
}

type Config struct {
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// service owns the process-wide stream state. Every method that reads and
// then mutates state, or fans events out, holds mu for its whole duration so
// that all connections observe mutations in the same order.
type service struct {
	mu          sync.Mutex
	streamRepo  iStreamRepo
	connRepo    iConnRepo
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
	adminConnId string
}

func NewService(streamRepo iStreamRepo, connRepo iConnRepo, cfg *Config) *service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		streamRepo: streamRepo,
		connRepo:   connRepo,
		clock:      clock,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Init resets the stream to its start-up state: no video, stopped at zero,
// empty metadata.
func (s *service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adminConnId = ""
	if err := s.streamRepo.Reset(ctx, &stream.ResetParams{
		LastUpdate: s.clock.Now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("failed to reset stream: %w", err)
	}

	return nil
}
