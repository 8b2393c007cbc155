package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "hbnb/internal/adapters/http_server"
	"hbnb/internal/adapters/observability"
	redisad "hbnb/internal/adapters/redis"
	"hbnb/internal/app"
	"hbnb/internal/domain"
	"hbnb/internal/shared"
	"hbnb/internal/storage/memory"
	mysqlrepo "hbnb/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	if cfg.MetricsAddr != "" {
		observability.Serve(cfg.MetricsAddr, reg)
	}

	repo := openRepo(cfg)
	defer repo.Close()

	q := app.NewQueryService(repo, openCache(cfg), cfg.CacheTTL)
	c := app.NewCommandService(repo, q)

	// http
	srv := server.New(server.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPM:   cfg.RateLimitRPM,
		RequestTimeout: cfg.RequestTimeout,
	})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.Storage).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("API stopped")
}

func openRepo(cfg shared.Config) domain.Repository {
	if !cfg.UseDB() {
		st, err := memory.Open(cfg.FilePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.FilePath).Msg("file storage open failed")
		}
		log.Info().Str("path", cfg.FilePath).Msg("file storage loaded")
		return st
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")
	return mysqlrepo.New(db)
}

// openCache returns nil (no caching) when Redis is not configured or not reachable.
func openCache(cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, caching disabled")
		_ = cache.Close()
		return nil
	}
	return cache
}
