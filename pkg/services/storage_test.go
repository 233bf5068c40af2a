package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/sql"
)

// scalarResult is one scripted ExecuteScalar answer.
type scalarResult struct {
	value any
	err   error
}

// mockStorage answers ExecuteScalar from a script and records every write.
// Once the script runs out, lookups report ErrNotFound.
type mockStorage struct {
	mu       sync.Mutex
	scalars  []scalarResult
	writeErr error
	writes   []sql.Statement
	lookups  []sql.Statement
}

func (m *mockStorage) ExecuteWrite(_ context.Context, stmt sql.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, stmt)
	return m.writeErr
}

func (m *mockStorage) ExecuteQuery(_ context.Context, _ sql.Statement) ([][]any, error) {
	return [][]any{}, nil
}

func (m *mockStorage) ExecuteScalar(_ context.Context, stmt sql.Statement) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, stmt)
	if len(m.scalars) == 0 {
		return nil, apperrors.ErrNotFound
	}
	next := m.scalars[0]
	m.scalars = m.scalars[1:]
	return next.value, next.err
}

var _ Storage = (*mockStorage)(nil)

// memoryStorage behaves like the database for dimension tables: inserts assign
// ids, lookups find them. Every other write is only recorded. failWrite, when
// set, decides which writes fail.
type memoryStorage struct {
	mu        sync.Mutex
	ids       map[string]int64
	nextID    int64
	writes    []sql.Statement
	failWrite func(table string) error
	inserts   int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{ids: make(map[string]int64)}
}

func (m *memoryStorage) ExecuteWrite(_ context.Context, stmt sql.Statement) error {
	table := statementTable(stmt)
	if m.failWrite != nil {
		if err := m.failWrite(table); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, stmt)
	if table == models.TableCountries || table == models.TableLanguages {
		key := fmt.Sprintf("%s:%v", table, stmt.Args[0])
		if _, exists := m.ids[key]; !exists {
			m.nextID++
			m.ids[key] = m.nextID
			m.inserts++
		}
	}
	return nil
}

func (m *memoryStorage) ExecuteQuery(_ context.Context, _ sql.Statement) ([][]any, error) {
	return [][]any{}, nil
}

func (m *memoryStorage) ExecuteScalar(_ context.Context, stmt sql.Statement) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[fmt.Sprintf("%s:%v", statementTable(stmt), stmt.Args[0])]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return id, nil
}

// writtenTables lists the table of every successful write, in order.
func (m *memoryStorage) writtenTables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tables := make([]string, len(m.writes))
	for i, w := range m.writes {
		tables[i] = statementTable(w)
	}
	return tables
}

var _ Storage = (*memoryStorage)(nil)

// statementTable extracts the table from "INSERT INTO t ..." or
// "SELECT c FROM t WHERE ...".
func statementTable(stmt sql.Statement) string {
	fields := strings.Fields(stmt.SQL)
	for i, f := range fields {
		if (f == "INTO" || f == "FROM") && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}
