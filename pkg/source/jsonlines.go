// Package source reads raw movie records for ingestion.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
)

// Record is one raw record with its position in the input.
// Err is set, and Raw is nil, when the line could not be decoded.
type Record struct {
	Line int
	Raw  models.RawRecord
	Err  error
}

// JSONLinesReader yields one raw record per non-blank line of JSON objects.
type JSONLinesReader struct {
	r      *bufio.Reader
	closer io.Closer
	line   int
}

// NewJSONLinesReader reads records from r.
func NewJSONLinesReader(r io.Reader) *JSONLinesReader {
	return &JSONLinesReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// OpenJSONLines opens the file at path. Close releases it.
func OpenJSONLines(path string) (*JSONLinesReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	reader := NewJSONLinesReader(f)
	reader.closer = f
	return reader, nil
}

// Next returns the next record, or io.EOF when the input is exhausted.
// A malformed line is returned as a Record carrying a BuildError, so callers
// can report it and keep going. Other errors are I/O failures.
func (j *JSONLinesReader) Next() (Record, error) {
	for {
		data, err := j.r.ReadBytes('\n')
		if len(data) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("read line %d: %w", j.line+1, err)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Record{}, fmt.Errorf("read line %d: %w", j.line+1, err)
		}
		j.line++

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}

		var raw models.RawRecord
		if err := json.Unmarshal(data, &raw); err != nil {
			return Record{
				Line: j.line,
				Err:  apperrors.NewBuildError(fmt.Sprintf("line %d", j.line), fmt.Errorf("%w: %v", apperrors.ErrInvalidField, err)),
			}, nil
		}
		if raw == nil {
			return Record{
				Line: j.line,
				Err:  apperrors.NewBuildError(fmt.Sprintf("line %d", j.line), fmt.Errorf("%w: not a JSON object", apperrors.ErrInvalidField)),
			}, nil
		}
		return Record{Line: j.line, Raw: raw}, nil
	}
}

// Close releases the underlying file, if the reader owns one.
func (j *JSONLinesReader) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}
