package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/core"
)

func named(tag string) adapter.HandlerFunc {
	return func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		return core.NewResult(job).SetAttribute("handled_by", tag), nil
	}
}

// ---------------------------------------------------------------------------
// Add / Register
// ---------------------------------------------------------------------------

func TestRegistry_AddAndGet(t *testing.T) {
	reg := New()
	ep := adapter.MustRegister("hash", named("hash"))

	require.NoError(t, reg.Add(ep))
	assert.True(t, reg.Has("hash"))
	assert.False(t, reg.Has("ocr_pdf"))

	got, ok := reg.Get("hash")
	require.True(t, ok)
	assert.Equal(t, "hash", got.Name())
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(adapter.MustRegister("hash", named("a"))))

	err := reg.Add(adapter.MustRegister("hash", named("b")))
	assert.ErrorIs(t, err, core.ErrDuplicateUoW)

	_, err = reg.Register("hash", named("c"))
	assert.ErrorIs(t, err, core.ErrDuplicateUoW)

	assert.Panics(t, func() { reg.MustAdd(adapter.MustRegister("hash", named("d"))) })
}

func TestRegistry_ZeroEntrypointRejected(t *testing.T) {
	reg := New()
	assert.ErrorIs(t, reg.Add(adapter.Entrypoint{}), core.ErrInvalidName)
}

func TestRegistry_RegisterValidatesName(t *testing.T) {
	reg := New()
	_, err := reg.Register("", named("x"))
	assert.ErrorIs(t, err, core.ErrInvalidName)
	assert.Empty(t, reg.Names())
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := New()
	for _, name := range []string{"ocr_pdf", "hash", "archive"} {
		_, err := reg.Register(name, named(name))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"archive", "hash", "ocr_pdf"}, reg.Names())
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestRegistry_DispatchRoutesByUoW(t *testing.T) {
	reg := New()
	_, err := reg.Register("hash", named("hash"))
	require.NoError(t, err)
	_, err = reg.Register("ocr_pdf", named("ocr"))
	require.NoError(t, err)

	out, err := reg.Dispatch(context.Background(), `{"job_id":"1","uow":"ocr_pdf","file":{"id":"f"}}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"handled_by":"ocr"`)
	assert.Contains(t, out, `"file_id":"f"`)
}

func TestRegistry_DispatchUnknown(t *testing.T) {
	reg := New()
	_, err := reg.Dispatch(context.Background(), `{"job_id":"1","uow":"missing"}`)
	assert.ErrorIs(t, err, core.ErrUnknownUoW)
}

func TestRegistry_DispatchDecodeErrors(t *testing.T) {
	reg := New()
	_, err := reg.Dispatch(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrInvalidPayload)

	_, err = reg.Dispatch(context.Background(), "[1]")
	assert.ErrorIs(t, err, core.ErrMalformedPayload)
}

func TestRegistry_DispatchHandlerError(t *testing.T) {
	boom := errors.New("boom")
	reg := New()
	_, err := reg.Register("fail", adapter.HandlerFunc(func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		return nil, boom
	}))
	require.NoError(t, err)

	_, err = reg.Dispatch(context.Background(), `{"uow":"fail"}`)
	assert.Same(t, boom, err)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := New()
	_, err := reg.Register("hash", named("hash"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = reg.Dispatch(context.Background(), `{"uow":"hash"}`)
		}()
		go func() {
			defer wg.Done()
			_ = reg.Names()
		}()
	}
	wg.Wait()
}
