package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"labyrinth-server/api"
	"labyrinth-server/boardcache"
	"labyrinth-server/config"
	"labyrinth-server/engine"
	"labyrinth-server/loghandler"
	"labyrinth-server/model"
	"labyrinth-server/storage"
	"labyrinth-server/tournament"
	"labyrinth-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("server/.env"); err2 != nil {
			slog.Info("No .env file found; using environment variables.")
		}
	}

	logger := slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo))
	slog.SetDefault(logger)

	cfg := config.Load()

	if cfg.AuthBaseURL == "" {
		logger.Warn("AUTH_BASE_URL is not set; operation requests will be rejected as unauthenticated", "tag", "auth")
	} else {
		logger.Info("auth configured", "tag", "auth", "base_url", cfg.AuthBaseURL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Postgres connection failed", "tag", "storage", "error", err)
		os.Exit(1)
	}
	var backing storage.Store = store
	if store == nil {
		logger.Info("DATABASE_URL not set; using in-memory storage", "tag", "storage")
		backing = storage.NewMemory()
	}
	defer backing.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)

	publishers := []engine.Publisher{hub}
	mirror, err := boardcache.NewMirror(cfg.RedisAddr, logger)
	if err != nil {
		logger.Error("Redis connection failed", "tag", "boardcache", "error", err)
		os.Exit(1)
	}
	if mirror != nil {
		defer mirror.Close()
		publishers = append(publishers, mirror)
	}

	difficulty, ok := model.ParseDifficulty(cfg.Bootstrap.Difficulty)
	if !ok {
		logger.Warn("invalid bootstrap difficulty, using medium", "tag", "config", "value", cfg.Bootstrap.Difficulty)
	}
	eng := engine.New(backing, engine.NewSystemClock(), tournament.BootstrapParams{
		Title:        cfg.Bootstrap.Title,
		Description:  cfg.Bootstrap.Description,
		Difficulty:   difficulty,
		DurationDays: cfg.Bootstrap.DurationDays,
		XPRewardPool: cfg.Bootstrap.XPRewardPool,
	}, publishers...)
	go eng.Run(ctx)

	if _, err := eng.Execute(ctx, "bootstrap", engine.BootstrapTournament{}); err != nil {
		logger.Error("bootstrap failed", "tag", "engine", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(cfg, eng)
	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("/ws", hub.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("Labyrinth Legends server listening", "tag", "http", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server stopped", "tag", "http", "error", err)
		os.Exit(1)
	}
}
