package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/connection"
	connInmemory "github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	streamRepo "github.com/sharetube/watchparty/internal/repository/stream"
	streamInmemory "github.com/sharetube/watchparty/internal/repository/stream/inmemory"
	streamRedis "github.com/sharetube/watchparty/internal/repository/stream/redis"
	"github.com/sharetube/watchparty/internal/service/auth"
	"github.com/sharetube/watchparty/internal/service/stream"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/redisclient"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Secret        string        `json:"-"`
	AdminKey      string        `json:"-"`
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	Store         string        `json:"store"`
	SendBuffer    int           `json:"send_buffer"`
	TokenTTL      time.Duration `json:"token_ttl"`
	RedisPort     int           `json:"redis_port"`
	RedisHost     string        `json:"redis_host"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must be set")
	}
	if cfg.AdminKey == "" {
		return fmt.Errorf("admin key must be set")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.Store != StoreMemory && cfg.Store != StoreRedis {
		return fmt.Errorf("store must be %q or %q", StoreMemory, StoreRedis)
	}
	if cfg.SendBuffer < 1 {
		return fmt.Errorf("send buffer must be greater than 0")
	}
	if cfg.TokenTTL < 0 {
		return fmt.Errorf("token ttl must not be negative")
	}

	return nil
}

// App is the wired server without its listener.
type App struct {
	handler http.Handler
	closers []func() error
}

func New(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (*App, error) {
	a := &App{}
	clock := clockwork.NewRealClock()

	var repo streamRepo.Repository
	switch cfg.Store {
	case StoreRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		repo = streamRedis.NewRepo(rc, "")
	default:
		repo = streamInmemory.NewRepo()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	streamService := stream.NewService(repo, connInmemory.NewRepo(logger), &stream.Config{
		Clock:   clock,
		Logger:  logger,
		Metrics: metrics.New(registry),
	})
	// Playback is not persisted across restarts.
	if err := streamService.Init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init stream: %w", err)
	}

	authService := auth.NewService(&auth.Config{
		Secret:   cfg.Secret,
		AdminKey: cfg.AdminKey,
		TokenTTL: cfg.TokenTTL,
		Clock:    clock,
	})

	connConfig := connection.DefaultConfig()
	if cfg.SendBuffer > 0 {
		connConfig.SendBuffer = cfg.SendBuffer
	}

	c := controller.NewController(streamService, authService, logger, &controller.Config{
		Connection:     connConfig,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	a.handler = c.GetMux()

	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer())
	}

	return errors.Join(errs...)
}

func NewLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Cancelling the base context ends open websocket sessions, which
	// server.Shutdown does not track once hijacked.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	// graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-sigCtx.Done():
	}

	logger.InfoContext(ctx, "shutting down")
	cancelBase()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
