// Package handler provides typed handler conversion for the uow package.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jdziat/simple-uow/pkg/core"
)

// RecordFunc is the record-level handler signature the adapter invokes.
type RecordFunc func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error)

// Typed wraps a typed handler. The job record is converted to J (passed
// through unchanged when J is core.JobRecord or map[string]any) and the
// returned R is converted back into a result record. Errors returned by fn
// are passed through as-is.
func Typed[J, R any](fn func(ctx context.Context, job J) (R, error)) RecordFunc {
	return func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		in, err := ConvertJob[J](job)
		if err != nil {
			return nil, err
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return ConvertResult(out)
	}
}

// ConvertJob converts a job record into J.
func ConvertJob[J any](job core.JobRecord) (J, error) {
	var zero J

	switch any(zero).(type) {
	case core.JobRecord:
		return any(job).(J), nil
	case map[string]any:
		return any(map[string]any(job)).(J), nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal job: %w", err)
	}
	var out J
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("failed to unmarshal job into %T: %w", zero, err)
	}
	return out, nil
}

// ConvertResult converts a handler's return value into a result record.
// Nil pointers, maps, slices and interfaces are the absent result and yield a
// nil record, which the codec rejects.
func ConvertResult(out any) (core.ResultRecord, error) {
	v := reflect.ValueOf(out)
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
	}

	switch r := out.(type) {
	case core.ResultRecord:
		return r, nil
	case map[string]any:
		return core.ResultRecord(r), nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidResult, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: result of type %T is not an object", core.ErrInvalidResult, out)
	}
	if rec == nil {
		return nil, nil
	}
	return core.ResultRecord(rec), nil
}
