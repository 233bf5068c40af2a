package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnresolved        = errors.New("dimension id could not be resolved")
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidField      = errors.New("invalid field value")
	ErrInvalidDate       = errors.New("unparsable date")
	ErrMissingCollection = errors.New("record has no collection")
)

// BuildError reports a raw record that cannot be turned into an aggregate.
// It is fatal to the record and is returned before any storage write happens.
type BuildError struct {
	Field string // dotted path into the raw record, e.g. "cast[2].credit_id"
	Err   error
}

func (e *BuildError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("build record: %v", e.Err)
	}
	return fmt.Sprintf("build record: %s: %v", e.Field, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// NewBuildError wraps err for the given field path.
func NewBuildError(field string, err error) *BuildError {
	return &BuildError{Field: field, Err: err}
}

// IsBuildError reports whether err (or anything it wraps) is a *BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
