package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServerConfig configures the observability endpoint served during a run.
type ServerConfig struct {
	Addr        string
	Version     string
	Environment string
	// DB backs /health. Nil reports healthy without checking storage.
	DB Pinger
}

// NewHandler returns the mux serving /metrics, /health and /ping.
func NewHandler(cfg ServerConfig, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health := &healthHandler{
		version:     cfg.Version,
		environment: cfg.Environment,
		db:          cfg.DB,
		logger:      logger,
	}
	health.register(mux)
	return requestLogger(logger, mux)
}

// Serve exposes NewHandler on cfg.Addr until ctx is cancelled.
func Serve(ctx context.Context, cfg ServerConfig, logger *zap.Logger) error {
	logger = logger.Named("metrics")
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", zap.String("addr", cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
		return nil
	}
}
