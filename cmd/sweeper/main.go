package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"jobswipe-core/internal/config"
	"jobswipe-core/internal/dispatch"
	"jobswipe-core/internal/store"
	"jobswipe-core/internal/sweeper"
	"jobswipe-core/internal/telemetry"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
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

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	sw := sweeper.New(st, dispatcher, sweeper.Options{
		Interval:   cfg.SweepInterval,
		BatchSize:  cfg.SweepBatchSize,
		StaleAfter: cfg.DispatchLeaseTTL,
	})

	log.Printf("sweeper started interval=%s batch=%d", cfg.SweepInterval, cfg.SweepBatchSize)
	if err := sw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("sweeper stopped: %v", err)
	}
}
