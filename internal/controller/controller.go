package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/auth"
	"github.com/sharetube/watchparty/internal/service/stream"
	"github.com/sharetube/watchparty/pkg/playback"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iStreamService interface {
	Connect(context.Context, *stream.ConnectParams) (stream.ConnectResponse, error)
	Disconnect(context.Context, *stream.DisconnectParams) error
	RegisterAdmin(context.Context, *stream.RegisterAdminParams) error
	AdminConnectionId() string
	Play(context.Context, *stream.PlayParams) (stream.PlaybackResponse, error)
	Pause(context.Context, *stream.PauseParams) (stream.PlaybackResponse, error)
	Seek(context.Context, *stream.SeekParams) (stream.PlaybackResponse, error)
	Heartbeat(context.Context, *stream.HeartbeatParams) (stream.PlaybackResponse, error)
	RequestMeta(context.Context, *stream.RequestMetaParams) error
	ChangeVideo(context.Context, *stream.ChangeVideoParams) (stream.ChangeVideoResponse, error)
	UpdateMeta(context.Context, *stream.UpdateMetaParams) (playback.Meta, error)
	GetSnapshot(context.Context) (playback.Snapshot, error)
}

type iAuthService interface {
	IssueAdminToken(*auth.IssueAdminTokenParams) (auth.IssueAdminTokenResponse, error)
	ParseAdminToken(string) (string, error)
}

type Config struct {
	Connection connection.Config
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

type controller struct {
	streamService  iStreamService
	authService    iAuthService
	upgrader       websocket.Upgrader
	wsmux          *wsrouter.WSRouter
	validate       *validator.Validator
	logger         *slog.Logger
	connConfig     connection.Config
	metricsHandler http.Handler
}

func NewController(streamService iStreamService, authService iAuthService, logger *slog.Logger, cfg *Config) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		streamService:  streamService,
		authService:    authService,
		validate:       validator.NewValidator(),
		logger:         logger,
		connConfig:     cfg.Connection,
		metricsHandler: cfg.MetricsHandler,
	}
	c.wsmux = c.getWSRouter()

	return c
}
