package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
	"github.com/ekaya-inc/ekaya-tmdb/pkg/validation"
)

// fieldPath joins a parent path and a field name: "cast[2]" + "credit_id".
func fieldPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func invalidField(path string, err error) error {
	return apperrors.NewBuildError(path, fmt.Errorf("%w: %v", apperrors.ErrInvalidField, err))
}

func requiredInt64(el models.RawRecord, path, name string) (int64, error) {
	v, ok, err := jsonutil.FlexibleInt64(el[name])
	if err != nil {
		return 0, invalidField(fieldPath(path, name), err)
	}
	if !ok {
		return 0, apperrors.NewBuildError(fieldPath(path, name), apperrors.ErrMissingField)
	}
	return v, nil
}

// optionalInt64 returns 0 when the field is absent.
func optionalInt64(el models.RawRecord, path, name string) (int64, error) {
	v, _, err := jsonutil.FlexibleInt64(el[name])
	if err != nil {
		return 0, invalidField(fieldPath(path, name), err)
	}
	return v, nil
}

// optionalInt64Ptr returns nil when the field is absent.
func optionalInt64Ptr(el models.RawRecord, path, name string) (*int64, error) {
	v, ok, err := jsonutil.FlexibleInt64(el[name])
	if err != nil {
		return nil, invalidField(fieldPath(path, name), err)
	}
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func optionalInt(el models.RawRecord, path, name string) (int, error) {
	v, err := optionalInt64(el, path, name)
	return int(v), err
}

func optionalFloat64(el models.RawRecord, path, name string) (float64, error) {
	v, _, err := jsonutil.FlexibleFloat64(el[name])
	if err != nil {
		return 0, invalidField(fieldPath(path, name), err)
	}
	return v, nil
}

func requiredString(el models.RawRecord, path, name string) (string, error) {
	s, err := optionalString(el, path, name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", apperrors.NewBuildError(fieldPath(path, name), apperrors.ErrMissingField)
	}
	return s, nil
}

func optionalString(el models.RawRecord, path, name string) (string, error) {
	s, _, err := jsonutil.StringValue(el[name])
	if err != nil {
		return "", invalidField(fieldPath(path, name), err)
	}
	return strings.TrimSpace(s), nil
}

type stringField struct {
	name string
	dst  *string
}

// optionalStrings reads each field into its destination, stopping at the
// first mistyped one.
func optionalStrings(el models.RawRecord, path string, fields ...stringField) error {
	for _, f := range fields {
		s, err := optionalString(el, path, f.name)
		if err != nil {
			return err
		}
		*f.dst = s
	}
	return nil
}

func isAbsent(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}

// unquoteNested unwraps a nested value that a CSV export stored as a JSON
// string, e.g. "[{\"id\": 35}]".
func unquoteNested(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return trimmed
	}
	return []byte(strings.TrimSpace(inner))
}

// decodeObjects decodes a nested list of objects. A bare object is accepted as
// a single element when allowObject is set.
func decodeObjects(raw []byte, field string, allowObject bool) ([]models.RawRecord, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	raw = unquoteNested(raw)
	if isAbsent(raw) {
		return nil, nil
	}

	if allowObject && raw[0] == '{' {
		var el models.RawRecord
		if err := json.Unmarshal(raw, &el); err != nil {
			return nil, invalidField(field, err)
		}
		return []models.RawRecord{el}, nil
	}

	var elements []models.RawRecord
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, invalidField(field, fmt.Errorf("expected a list of objects: %v", err))
	}
	return elements, nil
}

// buildList runs build over every element of a nested list, stopping at the
// first element that cannot be built.
func buildList[T any](raw models.RawRecord, field string, build func(path string, el models.RawRecord) (T, error)) ([]T, error) {
	elements, err := decodeObjects(raw[field], field, false)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(elements))
	for i, el := range elements {
		item, err := build(fmt.Sprintf("%s[%d]", field, i), el)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// validateEntity runs struct validation and reports the first offending field
// under path.
func validateEntity(path string, v any) error {
	if err := validation.ValidateStruct(v); err != nil {
		return invalidField(fieldPath(path, validation.FirstField(err)), err)
	}
	return nil
}
