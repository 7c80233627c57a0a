package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"plantchecks/internal/config"
	"plantchecks/internal/events"
	httpapi "plantchecks/internal/http"
	"plantchecks/internal/logger"
	"plantchecks/internal/mailer"
	"plantchecks/internal/repository"
	"plantchecks/internal/service"
	"plantchecks/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "plantchecks")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting plantchecks service", zap.String("addr", cfg.HTTP.Addr))

	redisClient := store.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	err = store.Ping(pingCtx, redisClient)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	// Audit trail is optional: the KV record is the source of truth, the
	// Postgres table only keeps raw submissions for later review.
	var audit repository.SubmissionsRepository
	if cfg.AuditEnabled {
		db, err := repository.NewPostgresDB(cfg.Database.DSN())
		if err != nil {
			log.Warn("Audit trail disabled: cannot connect to postgres", zap.Error(err))
		} else {
			defer db.Close()
			audit = repository.NewPostgresSubmissions(db, log)
		}
	}

	mail := mailer.NewClient(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.SecretKey, log)
	publisher := events.NewPublisher(redisClient, cfg.EventStream, log)

	svc := service.NewChecksService(
		store.NewRedisKV(redisClient),
		audit,
		mail,
		publisher,
		cfg.Checklists,
		cfg.Mail,
		cfg.StoreTimeout,
		log,
	)

	router := httpapi.NewRouter(log)
	router.RegisterCheckRoutes(httpapi.NewChecksHandler(svc, cfg.SubmitToken, log))

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing redis client", zap.Error(err))
	}

	log.Info("Service stopped")
}
