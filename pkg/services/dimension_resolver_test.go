package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
)

func TestDimensionResolver_InsertsUnknownKey(t *testing.T) {
	storage := &mockStorage{scalars: []scalarResult{
		{err: apperrors.ErrNotFound},
		{value: int64(42)},
	}}
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	resolved, err := resolver.ResolveCountry(context.Background(), models.Country{ISO31661: "US", Name: "United States of America"})
	require.NoError(t, err)

	assert.Equal(t, int64(42), resolved.ID)
	assert.Equal(t, "US", resolved.ISO31661)
	require.Len(t, storage.writes, 1)
	assert.Equal(t,
		"INSERT INTO tmdb_countries (iso_3166_1, name) VALUES ($$US$$, $$United States of America$$) ON CONFLICT DO NOTHING",
		storage.writes[0].String())
	assert.Len(t, storage.lookups, 2)
}

func TestDimensionResolver_ExistingKeySkipsInsert(t *testing.T) {
	storage := &mockStorage{scalars: []scalarResult{{value: int64(7)}}}
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	resolved, err := resolver.ResolveLanguage(context.Background(), models.Language{ISO6391: "en", Name: "English"})
	require.NoError(t, err)

	assert.Equal(t, int64(7), resolved.ID)
	assert.Empty(t, storage.writes)
	require.Len(t, storage.lookups, 1)
	assert.Equal(t, "SELECT id FROM tmdb_languages WHERE iso_639_1 = $$en$$", storage.lookups[0].String())
}

func TestDimensionResolver_AcceptsNarrowIntegerIDs(t *testing.T) {
	storage := &mockStorage{scalars: []scalarResult{{value: int32(3)}}}
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	resolved, err := resolver.ResolveCountry(context.Background(), models.Country{ISO31661: "FR"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resolved.ID)
}

func TestDimensionResolver_LookupErrorIsUnresolved(t *testing.T) {
	boom := errors.New("connection reset")
	storage := &mockStorage{scalars: []scalarResult{{err: boom}}}
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	_, err := resolver.ResolveCountry(context.Background(), models.Country{ISO31661: "US"})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrUnresolved)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, storage.writes, "no insert when the lookup did not run")
}

func TestDimensionResolver_InsertFailureIsUnresolved(t *testing.T) {
	boom := errors.New("permission denied")
	storage := &mockStorage{writeErr: boom}
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	_, err := resolver.ResolveLanguage(context.Background(), models.Language{ISO6391: "fr"})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrUnresolved)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, storage.lookups, 1, "no second lookup after a failed insert")
}

func TestDimensionResolver_MissingAfterInsertIsUnresolved(t *testing.T) {
	storage := &mockStorage{}
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	_, err := resolver.ResolveCountry(context.Background(), models.Country{ISO31661: "DE"})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrUnresolved)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), `country "DE"`)
	assert.Len(t, storage.writes, 1)
	assert.Len(t, storage.lookups, 2)
}

func TestDimensionResolver_UnexpectedIDType(t *testing.T) {
	storage := &mockStorage{scalars: []scalarResult{{value: "seven"}}}
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	_, err := resolver.ResolveCountry(context.Background(), models.Country{ISO31661: "US"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnresolved)
	assert.Contains(t, err.Error(), "unexpected id type string")
}

func TestDimensionResolver_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryIDCache()
	cache.Set(ctx, models.KindCountry, "US", 11)

	storage := &mockStorage{}
	resolver := NewDimensionResolver(storage, cache, zap.NewNop())

	resolved, err := resolver.ResolveCountry(ctx, models.Country{ISO31661: "US"})
	require.NoError(t, err)

	assert.Equal(t, int64(11), resolved.ID)
	assert.Empty(t, storage.lookups)
	assert.Empty(t, storage.writes)
}

func TestDimensionResolver_FillsCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryIDCache()
	storage := &mockStorage{scalars: []scalarResult{{value: int64(5)}}}
	resolver := NewDimensionResolver(storage, cache, zap.NewNop())

	for i := 0; i < 3; i++ {
		resolved, err := resolver.ResolveLanguage(ctx, models.Language{ISO6391: "es"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), resolved.ID)
	}

	assert.Len(t, storage.lookups, 1)
	id, ok := cache.Get(ctx, models.KindLanguage, "es")
	require.True(t, ok)
	assert.Equal(t, int64(5), id)
}

func TestDimensionResolver_FailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryIDCache()
	storage := &mockStorage{writeErr: errors.New("boom")}
	resolver := NewDimensionResolver(storage, cache, zap.NewNop())

	_, err := resolver.ResolveCountry(ctx, models.Country{ISO31661: "IT"})
	require.Error(t, err)

	_, ok := cache.Get(ctx, models.KindCountry, "IT")
	assert.False(t, ok)
}

func TestDimensionResolver_ConcurrentCallersInsertOnce(t *testing.T) {
	storage := newMemoryStorage()
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())

	const callers = 20
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resolved, err := resolver.ResolveCountry(context.Background(), models.Country{ISO31661: "US"})
			assert.NoError(t, err)
			ids[i] = resolved.ID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, storage.inserts)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestDimensionResolver_KindsDoNotCollide(t *testing.T) {
	storage := newMemoryStorage()
	resolver := NewDimensionResolver(storage, nil, zap.NewNop())
	ctx := context.Background()

	// "ES" is both a country (Spain) and, lowercased, a language (Spanish).
	country, err := resolver.ResolveCountry(ctx, models.Country{ISO31661: "ES"})
	require.NoError(t, err)
	language, err := resolver.ResolveLanguage(ctx, models.Language{ISO6391: "es"})
	require.NoError(t, err)

	assert.NotEqual(t, country.ID, language.ID)
	assert.Equal(t, 2, storage.inserts)
}
