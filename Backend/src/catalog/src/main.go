package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Logger
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := LoadConfig()
	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("db", cfg.DBPath).
		Msg("starting catalog service")

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		must(os.MkdirAll(dir, 0o755))
	}

	repo, err := NewRepository(cfg.DBPath)
	must(err)
	defer repo.Close()

	if cfg.SeedOnStart {
		must(repo.Seed(context.Background()))
		log.Info().Msg("seeded catalog")
	}

	rabbit, err := NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
	must(err)
	defer rabbit.Close()
	if rabbit != nil {
		log.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbit publisher ready")
	}

	mux := http.NewServeMux()
	NewServer(repo, rabbit).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: withRequestID(withLog(mux)),
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Warn().Msg("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Info().Msg("HTTP listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		must(err)
	}
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
