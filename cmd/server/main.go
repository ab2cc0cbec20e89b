package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/gridloop/gridfilter/internal/api"
	"github.com/gridloop/gridfilter/internal/config"
	"github.com/gridloop/gridfilter/internal/fetch"
	"github.com/gridloop/gridfilter/pkg/events"
	"github.com/gridloop/gridfilter/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.IsDev())
	log := logger.Log

	bus := events.NewBus()

	if cfg.NatsURL != "" {
		notifier, err := events.NewNATSNotifier(cfg.NatsURL, cfg.NatsPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer notifier.Close()
		notifier.Bind(bus)
		log.Info().Str("nats", cfg.NatsURL).Msg("render notifications mirrored to NATS")
	}

	var loader *fetch.Loader
	if cfg.AjaxURL != "" {
		loader = fetch.New(fetch.Config{
			AjaxURL:   cfg.AjaxURL,
			Nonce:     cfg.AjaxNonce,
			Timeout:   cfg.FetchTimeout,
			PerSecond: cfg.FetchPerSecond,
			MaxPages:  cfg.MaxPages,
		})
		log.Info().Str("ajax_url", cfg.AjaxURL).Msg("pagination loader configured")
	}

	server := api.NewServer(bus, loader, api.ControllerConfig{
		SearchDelay:  cfg.SearchDelay,
		ReadyTimeout: cfg.ReadyTimeout,
		ForceLayout:  cfg.ForceLayout,
	})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             10 * 1024 * 1024,
	})
	server.SetupRoutes(app)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	addr := ":" + cfg.HTTPPort
	log.Info().Str("addr", addr).Msg("grid filter server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("HTTP server error")
	}
}
