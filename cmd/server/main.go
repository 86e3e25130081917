package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/warfront/internal/config"
	"github.com/freeeve/warfront/internal/corps"
	"github.com/freeeve/warfront/internal/handler"
	"github.com/freeeve/warfront/internal/logger"
	"github.com/freeeve/warfront/internal/metrics"
	"github.com/freeeve/warfront/internal/middleware"
	"github.com/freeeve/warfront/internal/repository"
	"github.com/freeeve/warfront/internal/repository/memory"
	"github.com/freeeve/warfront/internal/repository/postgres"
	redisrepo "github.com/freeeve/warfront/internal/repository/redis"
	"github.com/freeeve/warfront/internal/repository/sqlite"
	"github.com/freeeve/warfront/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config invalid")
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON})
	log.Info().
		Str("archive", cfg.ArchiveDriver).
		Str("cache", cfg.CacheDriver).
		Str("doctrine", cfg.DoctrinePath).
		Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := make(map[string]handler.Check)

	// Archive
	var archive repository.ReportArchive
	switch cfg.ArchiveDriver {
	case config.ArchiveSQLite:
		a, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("SQLite archive open failed")
		}
		defer a.Close()
		archive = a
	default:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		archive = postgres.NewArchiveRepo(db)
		checks["postgres"] = db.PingContext
	}

	// State cache
	var cache repository.StateCache
	switch cfg.CacheDriver {
	case config.CacheMemory:
		cache = memory.NewCache()
	default:
		redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL,
			redisrepo.WithPrefix(cfg.RedisPrefix), redisrepo.WithTTL(cfg.RunStateTTL))
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		cache = redisClient
		checks["redis"] = redisClient.Ping
	}

	// Corps AI doctrine
	doctrine, err := corps.LoadDoctrine(cfg.DoctrinePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Doctrine load failed")
	}
	log.Info().Str("version", doctrine.Version).Msg("Doctrine loaded")

	m := metrics.New()
	wsHub := handler.NewHub(m)

	// Services
	engine := service.NewEngine(corps.New(doctrine, logger.Get().With().Str("component", "corps").Logger()))
	runSvc := service.NewRunService(cache, archive, engine, m, wsHub)

	var autoplay *service.AutoPlayer
	if cfg.AutoplayInterval > 0 {
		autoplay = service.NewAutoPlayer(runSvc, cfg.AutoplayInterval)
	}

	// Router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Health(checks))
	mux.Handle("GET /metrics", m.Handler())
	handler.NewRunHandler(runSvc, autoplay).Register(mux)
	mux.HandleFunc("GET /api/v1/ws", handler.NewWSHandler(wsHub, cfg.CORSOrigins).ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.Metrics(m), middleware.CORS(cfg.CORSOrigins))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if autoplay != nil {
		go autoplay.Start(ctx)
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
