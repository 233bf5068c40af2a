package services

import (
	"context"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/database"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// Storage executes statements, one transaction per call.
type Storage interface {
	// ExecuteWrite applies one write. A non-nil error means it was rolled back.
	ExecuteWrite(ctx context.Context, stmt sql.Statement) error
	// ExecuteQuery returns all rows. An empty slice means the query ran and
	// matched nothing; an error means it did not run.
	ExecuteQuery(ctx context.Context, stmt sql.Statement) ([][]any, error)
	// ExecuteScalar returns the first column of the first row, or
	// apperrors.ErrNotFound when there are no rows.
	ExecuteScalar(ctx context.Context, stmt sql.Statement) (any, error)
}

var _ Storage = (*database.Executor)(nil)
