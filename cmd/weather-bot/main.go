package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/i474232898/weather-bot/internal/api/http"
	"github.com/i474232898/weather-bot/internal/config"
	"github.com/i474232898/weather-bot/internal/conversation"
	"github.com/i474232898/weather-bot/internal/dispatcher"
	"github.com/i474232898/weather-bot/internal/observability"
	"github.com/i474232898/weather-bot/internal/scheduler"
	"github.com/i474232898/weather-bot/internal/store"
	"github.com/i474232898/weather-bot/internal/transport/telegram"
	"github.com/i474232898/weather-bot/internal/weather"
	"github.com/i474232898/weather-bot/internal/weather/providers"
)

const serviceName = "weather-bot"

// sessionStore is what both the dispatcher and the sweeper need.
type sessionStore interface {
	dispatcher.SessionStore
	scheduler.IdleEvictor
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	owm := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, metrics)
	sources := weather.Sources{
		Conditions: owm,
		Resolver:   owm,
		Pollution:  owm,
		UVAlerts:   owm,
	}
	if cfg.GoogleGeocodingAPIKey != "" {
		sources.Resolver = providers.NewGoogleGeocoder(cfg.GoogleGeocodingAPIKey, metrics)
		logger.Info("city names resolved through google geocoding")
	}

	service := weather.NewService(sources, cfg.FetchCallTimeout, logger, metrics)
	machine := conversation.NewMachine(service, logger)

	sessions, closeStore, err := openSessionStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sweeper := scheduler.New(sessions, cfg.SessionIdleTTL, cfg.SessionSweepInterval, logger, metrics)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start session sweeper: %w", err)
	}
	defer sweeper.Stop()

	var bot *telegram.Bot
	var sender dispatcher.Sender
	if cfg.TelegramToken != "" {
		bot, err = telegram.New(telegram.Config{Token: cfg.TelegramToken, SendRate: cfg.TelegramSendRate}, logger)
		if err != nil {
			return err
		}
		sender = bot
	} else {
		logger.Info("TELEGRAM_TOKEN not set; serving the HTTP surface only")
	}

	disp := dispatcher.New(machine, sessions, sender, cfg.MaxConcurrentSessions, logger, metrics)

	if bot != nil {
		bot.Attach(disp)
		go bot.Start()
	}

	app := httpapi.NewApp(serviceName)
	httpapi.RegisterRoutes(app, httpapi.Deps{
		ServiceName: serviceName,
		Weather:     service,
		Events:      disp,
	})

	go func() {
		logger.Info("http server listening", "addr", cfg.Addr())
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if bot != nil {
		bot.Stop()
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during http shutdown", "error", err)
	}
	if err := disp.Close(shutdownCtx); err != nil {
		logger.Error("dispatcher did not drain", "error", err)
	}
	return nil
}

func openSessionStore(cfg *config.AppConfig, logger *slog.Logger) (sessionStore, func(), error) {
	switch cfg.SessionStore {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.SessionDBPath, nil, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		logger.Info("sessions persisted in sqlite", "path", cfg.SessionDBPath)
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("close session store", "error", err)
			}
		}, nil
	default:
		return store.NewMemoryStore(nil), func() {}, nil
	}
}
