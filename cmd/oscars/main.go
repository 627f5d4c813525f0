package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/catalog"
	"github.com/Clark-Hu/movie-oscars/internal/config"
	httpserver "github.com/Clark-Hu/movie-oscars/internal/http"
	"github.com/Clark-Hu/movie-oscars/internal/logging"
	"github.com/Clark-Hu/movie-oscars/internal/notify"
	"github.com/Clark-Hu/movie-oscars/internal/oscars"
	"github.com/Clark-Hu/movie-oscars/internal/soap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadOscars()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New("oscars", cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := catalog.NewHTTPClient(cfg.CatalogURL, time.Duration(cfg.CatalogTimeoutSecs)*time.Second, cfg.CatalogPageSize, logger)
	if err != nil {
		logger.Fatal("init catalog client", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(notify.Options{
		Delay:     time.Duration(cfg.NotifyDelayMillis) * time.Millisecond,
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   time.Duration(cfg.NotifyTimeoutSecs) * time.Second,
		Logger:    logger,
	})

	engine := oscars.NewEngine(client, dispatcher, logger)
	server := httpserver.NewOscars(cfg, engine, client, soap.NewEndpoint(engine, logger), logger)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("oscars listening", zap.String("port", cfg.Port), zap.String("catalog", cfg.CatalogURL))
		serverErrCh <- server.Start(ctx)
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	// Pending notifications that are not yet due are dropped.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notification dispatcher shutdown", zap.Error(err))
	}
}
