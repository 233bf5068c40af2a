package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/metrics"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
)

// DimensionResolver obtains the storage-assigned id of a dimension row,
// creating the row when its natural key has not been seen before.
type DimensionResolver interface {
	ResolveCountry(ctx context.Context, country models.Country) (models.ResolvedCountry, error)
	ResolveLanguage(ctx context.Context, language models.Language) (models.ResolvedLanguage, error)
}

type dimensionResolver struct {
	storage Storage
	cache   IDCache
	locks   *keyedMutex
	logger  *zap.Logger
}

// NewDimensionResolver creates a resolver. cache may be nil.
//
// Resolution is lookup, then insert, then lookup again. Callers in this
// process are serialized per natural key; other processes racing on the same
// key are absorbed by the insert's ON CONFLICT DO NOTHING.
func NewDimensionResolver(storage Storage, cache IDCache, logger *zap.Logger) DimensionResolver {
	return &dimensionResolver{
		storage: storage,
		cache:   cache,
		locks:   newKeyedMutex(),
		logger:  logger.Named("dimension_resolver"),
	}
}

var _ DimensionResolver = (*dimensionResolver)(nil)

func (r *dimensionResolver) ResolveCountry(ctx context.Context, country models.Country) (models.ResolvedCountry, error) {
	id, err := r.resolve(ctx, country)
	if err != nil {
		return models.ResolvedCountry{}, err
	}
	return country.Resolve(id), nil
}

func (r *dimensionResolver) ResolveLanguage(ctx context.Context, language models.Language) (models.ResolvedLanguage, error) {
	id, err := r.resolve(ctx, language)
	if err != nil {
		return models.ResolvedLanguage{}, err
	}
	return language.Resolve(id), nil
}

func (r *dimensionResolver) resolve(ctx context.Context, dim models.Dimension) (int64, error) {
	kind := dim.Kind()
	key := dim.NaturalKey()

	unlock := r.locks.Lock(dim.Table() + ":" + key)
	defer unlock()

	if r.cache != nil {
		if id, ok := r.cache.Get(ctx, kind, key); ok {
			metrics.RecordResolution(string(kind), metrics.SourceCache)
			return id, nil
		}
	}

	id, err := r.lookup(ctx, dim)
	if err == nil {
		r.remember(ctx, dim, id, metrics.SourceLookup)
		return id, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return 0, r.unresolved(dim, "lookup failed", err)
	}

	if err := r.storage.ExecuteWrite(ctx, dim.InsertStatement()); err != nil {
		return 0, r.unresolved(dim, "insert failed", err)
	}

	id, err = r.lookup(ctx, dim)
	if err != nil {
		return 0, r.unresolved(dim, "not found after insert", err)
	}

	r.logger.Debug("Created dimension row",
		zap.String("kind", string(kind)),
		zap.String("natural_key", key),
		zap.Int64("id", id))
	r.remember(ctx, dim, id, metrics.SourceInserted)
	return id, nil
}

func (r *dimensionResolver) lookup(ctx context.Context, dim models.Dimension) (int64, error) {
	value, err := r.storage.ExecuteScalar(ctx, dim.LookupStatement())
	if err != nil {
		return 0, err
	}
	return toInt64(value)
}

func (r *dimensionResolver) remember(ctx context.Context, dim models.Dimension, id int64, source string) {
	metrics.RecordResolution(string(dim.Kind()), source)
	if r.cache != nil {
		r.cache.Set(ctx, dim.Kind(), dim.NaturalKey(), id)
	}
}

func (r *dimensionResolver) unresolved(dim models.Dimension, reason string, err error) error {
	metrics.RecordResolution(string(dim.Kind()), metrics.SourceFailed)
	r.logger.Warn("Dimension unresolved",
		zap.String("kind", string(dim.Kind())),
		zap.String("natural_key", dim.NaturalKey()),
		zap.String("reason", reason),
		zap.Error(err))
	return fmt.Errorf("%w: %s %q: %s: %w", apperrors.ErrUnresolved, dim.Kind().Noun(), dim.NaturalKey(), reason, err)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int16:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected id type %T", value)
	}
}
