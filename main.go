package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/config"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/database"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/metrics"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/retry"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/services"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/source"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	exitOK         = 0
	exitSetupError = 1
	exitIncomplete = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	input := flag.String("input", "", "JSON-lines file of movie records (overrides ingest.input_path)")
	workers := flag.Int("workers", 0, "Records processed concurrently (overrides ingest.workers)")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before ingesting")
	reportPath := flag.String("report", "", "Write the YAML run summary here (overrides ingest.report_path)")
	flag.Parse()

	cfg, err := config.Load(Version, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitSetupError
	}
	if *input != "" {
		cfg.Ingest.InputPath = *input
	}
	if *workers > 0 {
		cfg.Ingest.Workers = *workers
	}
	if *migrate {
		cfg.Ingest.RunMigrations = true
	}
	if *reportPath != "" {
		cfg.Ingest.ReportPath = *reportPath
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return exitSetupError
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Ingest.InputPath == "" {
		logger.Error("No input file: set -input or ingest.input_path")
		return exitSetupError
	}

	logger.Info("Starting tmdb ingest",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("input", cfg.Ingest.InputPath),
		zap.Int("workers", cfg.Ingest.Workers),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
		MinConnections: cfg.Database.MaxIdleConns,
	}, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
		return exitSetupError
	}
	defer db.Close()

	if cfg.Ingest.RunMigrations {
		sqlDB := db.SQLDB()
		err := database.RunMigrations(sqlDB, logger)
		_ = sqlDB.Close()
		if err != nil {
			logger.Error("Failed to run migrations", zap.Error(err))
			return exitSetupError
		}
	}

	var cache services.IDCache
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		return exitSetupError
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = services.NewRedisIDCache(redisClient, cfg.Redis.KeyPrefix, cfg.Redis.TTL, logger)
		logger.Info("Using Redis id cache", zap.String("addr", cfg.Redis.Addr()))
	} else {
		cache = services.NewMemoryIDCache()
	}

	if cfg.Metrics.ListenAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			serverCfg := metrics.ServerConfig{
				Addr:        cfg.Metrics.ListenAddr,
				Version:     cfg.Version,
				Environment: cfg.Env,
				DB:          db,
			}
			if err := metrics.Serve(metricsCtx, serverCfg, logger); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	reader, err := source.OpenJSONLines(cfg.Ingest.InputPath)
	if err != nil {
		logger.Error("Failed to open input", zap.Error(err))
		return exitSetupError
	}
	defer reader.Close()

	executor := database.NewExecutor(db, retry.WithMaxRetries(cfg.Ingest.WriteRetries), logger)
	resolver := services.NewDimensionResolver(executor, cache, logger)
	ingest := services.NewIngestService(
		services.NewRecordBuilder(logger),
		services.NewPersistenceService(executor, resolver, logger),
		cfg.Ingest.Workers,
		logger,
	)

	summary, runErr := ingest.Run(ctx, reader)
	if summary != nil && cfg.Ingest.ReportPath != "" {
		if err := writeReport(cfg.Ingest.ReportPath, summary); err != nil {
			logger.Error("Failed to write run report", zap.Error(err))
		}
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Ingest interrupted")
		} else {
			logger.Error("Ingest failed", zap.Error(runErr))
		}
		return exitSetupError
	}
	if !summary.Clean() {
		return exitIncomplete
	}
	return exitOK
}

func writeReport(path string, summary *models.RunSummary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
