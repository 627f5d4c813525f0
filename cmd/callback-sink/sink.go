package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-oscars/internal/logging"
)

const maxCallbackBody = 1 << 20

type callback struct {
	ID         string          `json:"id"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// recorder keeps the most recent callbacks, oldest first.
type recorder struct {
	mu       sync.RWMutex
	capacity int
	items    []callback
}

func newRecorder(capacity int) *recorder {
	if capacity <= 0 {
		capacity = 1
	}
	return &recorder{capacity: capacity}
}

func (r *recorder) add(c callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, c)
	if over := len(r.items) - r.capacity; over > 0 {
		r.items = append(r.items[:0:0], r.items[over:]...)
	}
}

func (r *recorder) list() []callback {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]callback, len(r.items))
	copy(out, r.items)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

func newRouter(rec *recorder, logger *zap.Logger, verbose bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/callbacks", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxCallbackBody))
		if err != nil {
			http.Error(w, "cannot read body", http.StatusBadRequest)
			return
		}
		if !json.Valid(body) {
			http.Error(w, "body must be JSON", http.StatusBadRequest)
			return
		}
		c := callback{
			ID:         req.Header.Get("X-Notification-Id"),
			ReceivedAt: time.Now().UTC(),
			Payload:    json.RawMessage(body),
		}
		rec.add(c)
		if verbose {
			logger.Info("callback received", zap.String("id", c.ID), zap.ByteString("payload", body))
		} else {
			logger.Info("callback received", zap.String("id", c.ID), zap.Int("bytes", len(body)))
		}
		w.WriteHeader(http.StatusAccepted)
	})

	r.Get("/callbacks", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rec.list()); err != nil {
			logger.Warn("encode callbacks", zap.Error(err))
		}
	})

	r.Delete("/callbacks", func(w http.ResponseWriter, _ *http.Request) {
		rec.reset()
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func runSink(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New("callback-sink", "info")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(newRecorder(capacity), logger, verbose),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("callback sink listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
