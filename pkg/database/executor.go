package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/retry"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// Executor runs statements against Postgres, one transaction per call.
// A failed call is rolled back and never leaves a transaction open.
type Executor struct {
	db     *DB
	retry  *retry.Config
	logger *zap.Logger
}

// NewExecutor creates an Executor. Transient errors are retried with retryCfg;
// nil disables retries.
func NewExecutor(db *DB, retryCfg *retry.Config, logger *zap.Logger) *Executor {
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxRetries: 0}
	}
	return &Executor{
		db:     db,
		retry:  retryCfg,
		logger: logger.Named("executor"),
	}
}

// ExecuteWrite applies one write statement in its own transaction.
func (e *Executor) ExecuteWrite(ctx context.Context, stmt sql.Statement) error {
	err := retry.DoIfRetryable(ctx, e.retry, func() error {
		return pgx.BeginFunc(ctx, e.db.Pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, stmt.SQL, stmt.Args...)
			return err
		})
	})
	if err != nil {
		e.logFailure("Write failed, transaction rolled back", stmt, err)
		return fmt.Errorf("execute write: %w", err)
	}

	e.logApplied(stmt)
	return nil
}

// ExecuteQuery returns every row the statement produces. An empty, non-nil
// slice means the query ran and matched nothing.
func (e *Executor) ExecuteQuery(ctx context.Context, stmt sql.Statement) ([][]any, error) {
	var result [][]any
	err := retry.DoIfRetryable(ctx, e.retry, func() error {
		result = [][]any{}
		return pgx.BeginTxFunc(ctx, e.db.Pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, stmt.SQL, stmt.Args...)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				values, err := rows.Values()
				if err != nil {
					return err
				}
				result = append(result, values)
			}
			return rows.Err()
		})
	})
	if err != nil {
		e.logFailure("Query failed", stmt, err)
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return result, nil
}

// ExecuteScalar returns the first column of the first row, or
// apperrors.ErrNotFound when the query matched nothing.
func (e *Executor) ExecuteScalar(ctx context.Context, stmt sql.Statement) (any, error) {
	rows, err := e.ExecuteQuery(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return rows[0][0], nil
}

// logApplied renders the statement only when debug logging is enabled.
func (e *Executor) logApplied(stmt sql.Statement) {
	if ce := e.logger.Check(zap.DebugLevel, "Write applied"); ce != nil {
		ce.Write(zap.String("statement", logging.SanitizeStatement(stmt.String())))
	}
}

func (e *Executor) logFailure(msg string, stmt sql.Statement, err error) {
	e.logger.Warn(msg,
		zap.String("statement", logging.SanitizeStatement(stmt.String())),
		zap.String("error", logging.SanitizeError(err)))
}
