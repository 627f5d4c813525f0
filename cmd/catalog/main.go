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

	"github.com/Clark-Hu/movie-oscars/internal/config"
	httpserver "github.com/Clark-Hu/movie-oscars/internal/http"
	"github.com/Clark-Hu/movie-oscars/internal/logging"
	"github.com/Clark-Hu/movie-oscars/internal/repository"
	"github.com/Clark-Hu/movie-oscars/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadCatalog()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New("catalog", cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DBConnTimeoutSecs)*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	repo := repository.New(st)
	server := httpserver.NewCatalog(cfg, st, repo, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("catalog listening", zap.String("port", cfg.Port))
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
	st.LogStats()
}
