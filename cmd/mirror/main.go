package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hbnb/internal/adapters/observability"
	redisad "hbnb/internal/adapters/redis"
	"hbnb/internal/adapters/upstream"
	"hbnb/internal/app"
	"hbnb/internal/domain"
	"hbnb/internal/shared"
	"hbnb/internal/storage/memory"
	mysqlrepo "hbnb/internal/storage/mysql"
)

// mirror copies every object of an upstream hbnb API into the configured
// local storage, one state per worker.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if cfg.MirrorSource == "" {
		log.Fatal().Msg("MIRROR_SOURCE_URL is required")
	}
	log.Info().
		Str("source", cfg.MirrorSource).
		Int("workers", cfg.MirrorWorkers).
		Str("storage", cfg.Storage).
		Msg("mirror starting")

	repo := openRepo(cfg)
	defer repo.Close()

	client, err := upstream.New(cfg.MirrorSource, cfg.MirrorRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upstream client")
	}
	// share the API's cache so mirrored writes invalidate what it serves
	q := app.NewQueryService(repo, openCache(ctx, cfg), cfg.CacheTTL)
	m := app.NewMirrorService(client, repo, q)

	n, err := m.MirrorDirectory(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("mirror users/amenities failed")
	}
	log.Info().Int("objects", n).Msg("directory mirrored")

	states, err := client.ListStates(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list states failed")
	}

	workers := cfg.MirrorWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var total, failed atomic.Int64

	for _, st := range states {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("mirror interrupted")
			break
		}

		wg.Add(1)
		go func(st domain.State) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := m.MirrorState(ctx, st)
			total.Add(int64(n))
			if err != nil {
				failed.Add(1)
				log.Warn().Str("state", st.ID).Err(err).Msg("mirror failed")
				return
			}
			log.Info().Str("state", st.ID).Int("objects", n).Msg("mirror ok")
		}(st)
	}

	wg.Wait()
	log.Info().
		Int("states", len(states)).
		Int64("objects", total.Load()).
		Int64("failed", failed.Load()).
		Msg("mirror completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

func openRepo(cfg shared.Config) domain.Repository {
	if !cfg.UseDB() {
		st, err := memory.Open(cfg.FilePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.FilePath).Msg("file storage open failed")
		}
		return st
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")
	return mysqlrepo.New(db)
}

func openCache(ctx context.Context, cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cache.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, API cache will not be invalidated")
		_ = cache.Close()
		return nil
	}
	return cache
}
