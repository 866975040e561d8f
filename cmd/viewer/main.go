// Command viewer follows a stream headlessly and logs where its local player
// is, which is handy for watching drift correction at work.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
	"github.com/sharetube/watchparty/pkg/client"
	"github.com/sharetube/watchparty/pkg/playback"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	serverURL = configVar[string]{
		envKey:       "VIEWER_URL",
		flagKey:      "url",
		defaultValue: "ws://localhost:80/api/v1/ws",
	}
	logLevel = configVar[string]{
		envKey:       "VIEWER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	reportInterval = configVar[time.Duration]{
		envKey:       "VIEWER_REPORT_INTERVAL",
		flagKey:      "report-interval",
		defaultValue: 5 * time.Second,
	}
)

type config struct {
	URL            string        `json:"url"`
	LogLevel       string        `json:"log_level"`
	ReportInterval time.Duration `json:"report_interval"`
}

func loadConfig() *config {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, "Websocket endpoint of the server")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Duration(reportInterval.flagKey, reportInterval.defaultValue, "How often the local position is logged")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(serverURL.flagKey, serverURL.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(reportInterval.flagKey, reportInterval.envKey)

	viper.SetDefault(serverURL.flagKey, serverURL.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(reportInterval.flagKey, reportInterval.defaultValue)

	return &config{
		URL:            viper.GetString(serverURL.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		ReportInterval: viper.GetDuration(reportInterval.flagKey),
	}
}

func run(ctx context.Context, cfg *config, logger *slog.Logger) error {
	clock := clockwork.NewRealClock()
	player := playback.NewVirtualPlayer(clock)

	viewer, err := client.DialViewer(ctx, &client.ViewerConfig{
		URL:    cfg.URL,
		Player: player,
		Clock:  clock,
		Logger: logger,
		OnEvent: func(eventType string, _ json.RawMessage) {
			logger.Debug("event applied", "type", eventType, "position", player.Position())
		},
	})
	if err != nil {
		return err
	}
	defer viewer.Close()

	if cfg.ReportInterval > 0 {
		go func() {
			ticker := clock.NewTicker(cfg.ReportInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.Chan():
					logger.Info("position",
						"source", player.Source(),
						"position", player.Position(),
						"paused", player.Paused(),
						"viewers", viewer.Meta().ViewerCount,
					)
				}
			}
		}()
	}

	logger.Info("following stream", "url", cfg.URL)
	err = viewer.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, client.ErrClosed) {
		return nil
	}

	return err
}

func main() {
	cfg := loadConfig()

	jsonConfig, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Printf("starting viewer with config: %s\n", jsonConfig)

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatal(err)
	}
}
