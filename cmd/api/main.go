package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"

	"jobswipe-core/internal/api"
	"jobswipe-core/internal/classifier"
	"jobswipe-core/internal/config"
	"jobswipe-core/internal/dispatch"
	"jobswipe-core/internal/enrichment"
	"jobswipe-core/internal/queue"
	"jobswipe-core/internal/ratelimit"
	"jobswipe-core/internal/snapshot"
	"jobswipe-core/internal/stats"
	"jobswipe-core/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	dispatcher := dispatch.NewRedis(cfg)

	var archiver queue.Archiver
	if a, err := snapshot.NewArchiver(ctx, cfg); err != nil {
		log.Fatalf("init snapshot archiver: %v", err)
	} else if a != nil {
		archiver = a
	}

	manager := queue.NewManager(st, dispatcher, archiver, queue.Options{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
	})

	var enrich enrichment.Client
	if cfg.EnrichmentAPIKey != "" {
		enrich = enrichment.NewHTTPClient(enrichment.Config{
			APIBase: cfg.EnrichmentAPIBase,
			APIKey:  cfg.EnrichmentAPIKey,
			Model:   cfg.EnrichmentModel,
		}, nil)
	}
	schemaBuilder := classifier.NewBuilder(enrich)

	redisLimiter := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	limiter := ratelimit.NewSwipeLimiter(redisLimiter, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)

	aggregator := stats.NewAggregator(st, dispatcher)

	server := api.New(cfg, st, manager, aggregator, schemaBuilder, limiter)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Printf("api listening on :%s", cfg.HTTPPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
