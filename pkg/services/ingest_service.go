package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/metrics"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/source"
)

// RecordSource yields raw records until it returns io.EOF.
type RecordSource interface {
	Next() (source.Record, error)
}

// IngestService builds and persists every record of a source.
type IngestService interface {
	// Run processes the source to the end. Rejected and partially written
	// records are counted in the summary, not returned as errors; the error is
	// reserved for an unreadable source or a cancelled context.
	Run(ctx context.Context, src RecordSource) (*models.RunSummary, error)
}

type ingestService struct {
	builder     RecordBuilder
	persistence PersistenceService
	workers     int
	logger      *zap.Logger
}

// NewIngestService creates a runner that processes up to workers records at a
// time. Values below 1 mean one.
func NewIngestService(builder RecordBuilder, persistence PersistenceService, workers int, logger *zap.Logger) IngestService {
	if workers < 1 {
		workers = 1
	}
	return &ingestService{
		builder:     builder,
		persistence: persistence,
		workers:     workers,
		logger:      logger.Named("ingest"),
	}
}

var _ IngestService = (*ingestService)(nil)

func (s *ingestService) Run(ctx context.Context, src RecordSource) (*models.RunSummary, error) {
	runID := uuid.New().String()
	logger := s.logger.With(zap.String("run_id", runID))
	logger.Info("Starting ingest run", zap.Int("workers", s.workers))

	started := time.Now()
	summary := &models.RunSummary{RunID: runID}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var readErr error
	for gctx.Err() == nil {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		g.Go(func() error {
			one := s.process(gctx, logger, rec)
			mu.Lock()
			summary.Merge(one)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	summary.SortProblems()

	logger.Info("Ingest run finished",
		zap.Int("records", summary.Records),
		zap.Int("written", summary.Written),
		zap.Int("partial", summary.Partial),
		zap.Int("rejected", summary.Rejected),
		zap.Duration("elapsed", time.Since(started)))

	if readErr != nil {
		return summary, fmt.Errorf("read input: %w", readErr)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// process handles one record and returns a summary holding only that record.
func (s *ingestService) process(ctx context.Context, logger *zap.Logger, rec source.Record) *models.RunSummary {
	start := time.Now()
	one := &models.RunSummary{}

	err := rec.Err
	var record *models.MovieRecord
	if err == nil {
		record, err = s.builder.Build(rec.Raw)
	}
	if err != nil {
		one.Reject(rec.Line, err)
		metrics.RecordOutcome(metrics.OutcomeRejected, time.Since(start))
		logger.Warn("Record rejected",
			zap.Int("line", rec.Line),
			zap.Error(err))
		return one
	}

	report := s.persistence.Persist(ctx, record)
	one.Add(rec.Line, report)
	if report.OK() {
		metrics.RecordOutcome(metrics.OutcomeWritten, time.Since(start))
		return one
	}

	metrics.RecordOutcome(metrics.OutcomePartial, time.Since(start))
	logger.Warn("Record partially written",
		zap.Int("line", rec.Line),
		zap.Int64("movie_id", record.Movie.ID),
		zap.String("failures", report.Summary()))
	return one
}
