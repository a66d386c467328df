package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/offbeatfm/offbeat/internal/auth"
	"github.com/offbeatfm/offbeat/internal/cache"
	"github.com/offbeatfm/offbeat/internal/config"
	"github.com/offbeatfm/offbeat/internal/database"
	"github.com/offbeatfm/offbeat/internal/logging"
	"github.com/offbeatfm/offbeat/internal/realtime"
	"github.com/offbeatfm/offbeat/internal/review"
	"github.com/offbeatfm/offbeat/internal/server"
	"github.com/offbeatfm/offbeat/internal/station"
	"github.com/offbeatfm/offbeat/internal/user"
	"github.com/offbeatfm/offbeat/internal/youtube"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *database.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.MongoURL, cfg.MongoDBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db
}

func runGracefulShutdown(srv *server.Server, hub *realtime.Hub, stopSweeper func(), db *database.DB) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		stopSweeper()

		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDisconnect()
		if err := db.Disconnect(disconnectCtx); err != nil {
			slog.Error("Database disconnect error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	_ = godotenv.Load()

	clock := clockwork.NewRealClock()
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	db := setupDB(cfg)

	apiCache := cache.New(cfg.CacheDefaultTTL, clock)
	stopSweeper := apiCache.StartSweeper(cfg.CacheSweepEvery)

	hub := realtime.NewHub()

	reviewStore := review.NewMongoStore(db)
	userStore := user.NewMongoStore(db)
	stationStore := station.NewMongoStore(db)

	// The user and review services reference each other through narrow
	// interfaces; wire the review side first with a user service that has no
	// review lookups, then build the full user service on top of it.
	reviewUserSource := user.NewService(userStore, nil)
	reviewSvc := review.NewService(reviewStore, reviewUserSource, hub)
	userSvc := user.NewService(userStore, reviewSvc)
	stationSvc := station.NewService(stationStore, clock)
	authSvc := auth.NewService(userSvc)

	youtubeClient := youtube.NewClient(cfg.YouTubeAPIKey)
	youtubeSvc := youtube.NewService(apiCache, youtubeClient)

	srv := server.NewServer(cfg, authSvc, userSvc, stationSvc, reviewSvc, youtubeSvc, hub, db, clock)

	done := runGracefulShutdown(srv, hub, stopSweeper, db)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
