package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lingua-flow-go/internal/app"
	"lingua-flow-go/internal/config"
	"lingua-flow-go/internal/httpapi"
	"lingua-flow-go/internal/logger"
)

func main() {
	bootLog := logger.New()
	if err := config.LoadEnvFile(envOr("ENV_FILE", ".env")); err != nil {
		bootLog.WithError(err).Fatal("failed to load env file")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.WithError(err).Fatal("invalid configuration")
	}

	log := logger.NewWith(cfg.Environment, cfg.LogLevel, os.Stdout)
	log.WithField("environment", cfg.Environment).Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log.Entry)
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}

	srv := httpapi.NewServer(log, a.Composer, a.Languages, httpapi.Options{
		Addr:                     cfg.Addr(),
		MaxUploadBytes:           cfg.MaxUploadBytes,
		SpeechRecognitionEnabled: a.SpeechRecognitionEnabled,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             cfg.ProviderTimeout() * 4,
		IdleTimeout:              120 * time.Second,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("server terminated")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
