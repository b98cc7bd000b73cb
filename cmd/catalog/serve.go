package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xelth-com/catalogbot/internal/catalog"
	"github.com/xelth-com/catalogbot/internal/handlers"
	"github.com/xelth-com/catalogbot/internal/images"
	"github.com/xelth-com/catalogbot/internal/posting"
	"github.com/xelth-com/catalogbot/internal/pricing"
	"github.com/xelth-com/catalogbot/internal/render"
	"github.com/xelth-com/catalogbot/internal/telegram"
	"github.com/xelth-com/catalogbot/internal/utils"
	"github.com/xelth-com/catalogbot/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, event hub and retention sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		log.Println("🚀 Synchronizing database schema...")
		if err := db.Migrate(); err != nil {
			log.Printf("⚠️ Migration warning: %v\n", err)
		} else {
			log.Println("✅ Schema synchronized successfully")
		}

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		logger := newLogger()
		hub := websocket.NewHub()
		go hub.Run(ctx)

		downloader := images.NewDownloader(cfg.ImagesDir, cfg.Images.MaxBytes, cfg.Images.Timeout, logger)
		svc := catalog.NewService(db,
			catalog.WithLogger(logger),
			catalog.WithImagesDir(cfg.ImagesDir),
			catalog.WithDownloader(downloader),
			catalog.WithNotifier(hub),
		)

		policy := pricing.FromConfig(cfg.Pricing)
		renderer := render.New(policy)

		var poster *posting.Poster
		if cfg.Telegram.Token != "" {
			tg := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL,
				telegram.WithLogger(logger),
				telegram.WithImagesDir(cfg.ImagesDir),
				telegram.WithRateLimit(cfg.Telegram.RatePerSec),
				telegram.WithRetry(cfg.Telegram.MaxRetries, time.Second),
			)
			poster = posting.NewPoster(svc, renderer, tg, logger)
			log.Printf("✅ Telegram: posting enabled for %d channel(s)", len(cfg.Telegram.Channels))
		} else {
			log.Println("⚠️ Telegram: TELEGRAM_BOT_TOKEN not set, posting disabled")
		}

		sweeper := catalog.NewSweeper(db, svc, logger)
		go sweeper.Run(ctx, cfg.Retention.Interval, cfg.Retention.Days)
		log.Printf("✅ Retention: sweeper started (every %s, %d days)", cfg.Retention.Interval, cfg.Retention.Days)

		router := handlers.NewRouter(handlers.Deps{
			Catalog:  svc,
			Renderer: renderer,
			Poster:   poster,
			Hub:      hub,
			Dedup:    utils.NewDeduplicator(5 * time.Minute),
			Pricing:  policy,
			Channels: cfg.Telegram.Channels,
			Logger:   logger,
		})

		server := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		}

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		serverErr := make(chan error, 1)
		go func() {
			log.Printf("🚀 Server (%s) starting on port %s\n", cfg.Env, cfg.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
		}()

		select {
		case sig := <-shutdown:
			log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)
		case err := <-serverErr:
			return err
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		stop()

		log.Println("✅ Shutdown complete")
		return nil
	},
}
