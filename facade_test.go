package uow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uow "github.com/jdziat/simple-uow"
)

const payload = `{"job_id":"j-1","uow":"echo","file":{"id":"f-1","blob":{"location":"in/a.pdf"}},"priority":3}`

func echo(ctx context.Context, job uow.JobRecord) (uow.ResultRecord, error) {
	return uow.NewResult(job).SetAttribute("location", job.BlobLocation()), nil
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

func TestFacadeRegister_EmptyName(t *testing.T) {
	_, err := uow.Register("", uow.HandlerFunc(echo))
	assert.ErrorIs(t, err, uow.ErrInvalidName)
	assert.ErrorIs(t, uow.ValidateUoWName(""), uow.ErrInvalidName)
}

func TestFacadeMustRegister_Panics(t *testing.T) {
	assert.Panics(t, func() { uow.MustRegister("", uow.HandlerFunc(echo)) })
}

func TestFacadeRegister_NamesAreIndependent(t *testing.T) {
	a, err := uow.RegisterFunc("echo", echo)
	require.NoError(t, err)
	b, err := uow.RegisterFunc("echo", func(ctx context.Context, job uow.JobRecord) (uow.ResultRecord, error) {
		return nil, errors.New("second")
	})
	require.NoError(t, err)

	assert.Equal(t, "echo", a.Name())
	assert.Equal(t, "echo", b.Name())

	_, err = a.Invoke(context.Background(), payload)
	assert.NoError(t, err)
	_, err = b.Invoke(context.Background(), payload)
	assert.EqualError(t, err, "second")
}

// ---------------------------------------------------------------------------
// Invocation
// ---------------------------------------------------------------------------

func TestFacadeEntrypoint_EchoEndToEnd(t *testing.T) {
	ep := uow.MustRegister("echo", uow.HandlerFunc(echo))

	out, err := ep.Invoke(context.Background(), payload)
	require.NoError(t, err)

	res, err := uow.DecodeJob(out)
	require.NoError(t, err)
	assert.Equal(t, "j-1", res["job_id"])
	assert.Equal(t, "f-1", res["file_id"])
	assert.Equal(t, map[string]any{"location": "in/a.pdf"}, res["attributes_patch"])
}

func TestFacadeEntrypoint_EmptyPayloadNeverReachesHandler(t *testing.T) {
	var calls atomic.Int32
	ep := uow.MustRegister("echo", uow.HandlerFunc(func(ctx context.Context, job uow.JobRecord) (uow.ResultRecord, error) {
		calls.Add(1)
		return echo(ctx, job)
	}))

	_, err := ep.Invoke(context.Background(), "")
	assert.ErrorIs(t, err, uow.ErrInvalidPayload)
	_, err = ep.Invoke(context.Background(), "[]")
	assert.ErrorIs(t, err, uow.ErrMalformedPayload)
	assert.Zero(t, calls.Load())
}

func TestFacadeEntrypoint_HandlerErrorIsReturnedUnchanged(t *testing.T) {
	boom := errors.New("boom")
	ep := uow.MustRegister("fail", uow.HandlerFunc(func(ctx context.Context, job uow.JobRecord) (uow.ResultRecord, error) {
		return nil, boom
	}))

	_, err := ep.Invoke(context.Background(), payload)
	assert.Same(t, boom, err)
}

func TestFacadeEntrypoint_AbsentResult(t *testing.T) {
	ep := uow.MustRegister("nothing", uow.HandlerFunc(func(ctx context.Context, job uow.JobRecord) (uow.ResultRecord, error) {
		return nil, nil
	}))

	_, err := ep.Invoke(context.Background(), payload)
	assert.ErrorIs(t, err, uow.ErrInvalidResult)

	_, err = uow.EncodeResult(nil)
	assert.ErrorIs(t, err, uow.ErrInvalidResult)
}

func TestFacadeRegisterTyped(t *testing.T) {
	type sizeResult struct {
		JobID           string         `json:"job_id"`
		FileID          string         `json:"file_id"`
		AttributesPatch map[string]any `json:"attributes_patch"`
		Artifacts       []uow.Artifact `json:"artifacts"`
	}
	ep, err := uow.RegisterTyped("size", func(ctx context.Context, job uow.Job) (*sizeResult, error) {
		return &sizeResult{
			JobID:           job.JobID,
			FileID:          job.File.ID,
			AttributesPatch: map[string]any{"pages": 3},
			Artifacts:       []uow.Artifact{},
		}, nil
	})
	require.NoError(t, err)

	out, err := ep.Invoke(context.Background(), payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"j-1","file_id":"f-1","attributes_patch":{"pages":3},"artifacts":[]}`, out)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestFacadeRegistry_Dispatch(t *testing.T) {
	reg := uow.NewRegistry()
	reg.MustAdd(uow.MustRegister("echo", uow.HandlerFunc(echo)))

	out, err := reg.Dispatch(context.Background(), payload)
	require.NoError(t, err)
	assert.Contains(t, out, `"location":"in/a.pdf"`)

	_, err = reg.Dispatch(context.Background(), `{"job_id":"j-2","uow":"missing"}`)
	assert.ErrorIs(t, err, uow.ErrUnknownUoW)

	err = reg.Add(uow.MustRegister("echo", uow.HandlerFunc(echo)))
	assert.ErrorIs(t, err, uow.ErrDuplicateUoW)
}
