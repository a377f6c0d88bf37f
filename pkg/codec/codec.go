package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jdziat/simple-uow/pkg/core"
)

// DecodeJob converts a wire job payload into a JobRecord.
// The record's top-level keys are exactly those present in the payload; nothing
// is defaulted or coerced. Numbers are kept as json.Number.
func DecodeJob(payload string) (core.JobRecord, error) {
	if payload == "" {
		return nil, core.ErrInvalidPayload
	}
	obj, err := decodeObject([]byte(payload))
	if err != nil {
		return nil, err
	}
	return core.JobRecord(obj), nil
}

// DecodeJobBytes is DecodeJob for raw transport bodies. A nil or empty slice
// is rejected with core.ErrInvalidPayload.
func DecodeJobBytes(payload []byte) (core.JobRecord, error) {
	if len(payload) == 0 {
		return nil, core.ErrInvalidPayload
	}
	obj, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}
	return core.JobRecord(obj), nil
}

// EncodeResult converts a ResultRecord into a wire result payload.
// A nil record is the absent result and fails with core.ErrInvalidResult.
func EncodeResult(result core.ResultRecord) (string, error) {
	if result == nil {
		return "", core.ErrInvalidResult
	}
	data, err := marshal(result)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrInvalidResult, err)
	}
	return string(data), nil
}

// EncodeJob converts a typed job into a wire job payload.
func EncodeJob(job core.Job) (string, error) {
	data, err := marshal(job)
	if err != nil {
		return "", fmt.Errorf("uow: encode job: %w", err)
	}
	return string(data), nil
}

// DecodeResult parses a wire result payload into the typed Result.
// It applies the same emptiness and well-formedness rules as DecodeJob.
func DecodeResult(payload string) (*core.Result, error) {
	if payload == "" {
		return nil, core.ErrInvalidPayload
	}
	if _, err := decodeObject([]byte(payload)); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var res core.Result
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedPayload, err)
	}
	return &res, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after value", core.ErrMalformedPayload)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: root must be an object, got %s", core.ErrMalformedPayload, kindOf(v))
	}
	return obj, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
