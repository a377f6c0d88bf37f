package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/bus"
	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/jobctx"
	"github.com/jdziat/simple-uow/pkg/registry"
	"github.com/jdziat/simple-uow/pkg/runner"
	"github.com/jdziat/simple-uow/pkg/storage"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type memLedger struct {
	mu       sync.Mutex
	runs     map[string]core.RunStatus
	errs     map[string]string
	released int64
}

func newMemLedger() *memLedger {
	return &memLedger{runs: map[string]core.RunStatus{}, errs: map[string]string{}}
}

func (l *memLedger) StartRun(ctx context.Context, job core.Job, workerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[job.JobID] = core.RunRunning
	return nil
}

func (l *memLedger) CompleteRun(ctx context.Context, jobID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[jobID] = core.RunCompleted
	return nil
}

func (l *memLedger) FailRun(ctx context.Context, jobID string, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[jobID] = core.RunFailed
	l.errs[jobID] = errMsg
	return nil
}

func (l *memLedger) ReleaseStaleRuns(ctx context.Context, staleAfter time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released, nil
}

func (l *memLedger) status(jobID string) core.RunStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runs[jobID]
}

// flakyMetadata fails the first n writes with a transient error.
type flakyMetadata struct {
	*storage.MemoryMetadata
	failures atomic.Int32
	calls    atomic.Int32
}

func (m *flakyMetadata) UpdateFileAttributes(ctx context.Context, fileID string, patch map[string]any) error {
	m.calls.Add(1)
	if m.failures.Add(-1) >= 0 {
		return errors.New("connection reset")
	}
	return m.MemoryMetadata.UpdateFileAttributes(ctx, fileID, patch)
}

func fastRetry() WorkerOption {
	return WithStorageRetry(RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	})
}

func testJob(id string) core.Job {
	return core.Job{JobID: id, UoW: "tag", File: core.File{ID: "file-" + id, Blob: core.Blob{Location: "in/" + id}}}
}

// tagRegistry registers a "tag" unit of work that patches the blob location
// and declares one artifact.
func tagRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	_, err := reg.Register("tag", adapter.HandlerFunc(func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		return core.NewResult(job).
			SetAttribute("location", job.BlobLocation()).
			SetAttribute("worker", jobctx.WorkerIDFromContext(ctx)).
			AddArtifact(core.Artifact{Kind: "tagged", MIME: "text/plain", Bytes: 1, Location: job.BlobLocation() + ".tag"}), nil
	}))
	require.NoError(t, err)
	return reg
}

func registryWith(t *testing.T, fn adapter.HandlerFunc) *registry.Registry {
	t.Helper()
	reg := registry.New()
	_, err := reg.Register("tag", fn)
	require.NoError(t, err)
	return reg
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(bus.NewMemoryBus(1), runner.NewSyncRunner(registry.New()), storage.NewMemoryMetadata())
	cfg := w.Config()

	assert.Equal(t, 10, cfg.Concurrency)
	assert.NotEmpty(t, w.ID())
	assert.Equal(t, DefaultStaleAfter, cfg.StaleAfter)
	require.NotNil(t, cfg.StorageRetry)
	assert.Equal(t, DefaultRetryConfig(), *cfg.StorageRetry)
	assert.Nil(t, w.limiter)
}

func TestConcurrency_Clamped(t *testing.T) {
	cfg := WorkerConfig{}

	Concurrency(5000).ApplyWorker(&cfg)
	assert.Equal(t, 1000, cfg.Concurrency)

	Concurrency(0).ApplyWorker(&cfg)
	assert.Equal(t, 1, cfg.Concurrency)

	Concurrency(4).ApplyWorker(&cfg)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestOptions_Apply(t *testing.T) {
	ledger := newMemLedger()
	cfg := WorkerConfig{WorkerID: "orig"}

	WithWorkerID("").ApplyWorker(&cfg)
	assert.Equal(t, "orig", cfg.WorkerID)
	WithWorkerID("w-1").ApplyWorker(&cfg)
	assert.Equal(t, "w-1", cfg.WorkerID)

	WithRateLimit(20, 0).ApplyWorker(&cfg)
	assert.EqualValues(t, 20, cfg.RateLimit)
	assert.Equal(t, 1, cfg.RateBurst)

	WithJobTimeout(time.Second).ApplyWorker(&cfg)
	assert.Equal(t, time.Second, cfg.JobTimeout)

	WithRunLedger(ledger).ApplyWorker(&cfg)
	assert.Same(t, ledger, cfg.Ledger)

	WithSweeper("", time.Minute).ApplyWorker(&cfg)
	assert.Equal(t, DefaultSweepSchedule, cfg.SweepSchedule)
	assert.Equal(t, time.Minute, cfg.StaleAfter)

	WithLogger(nil).ApplyWorker(&cfg)
	assert.Nil(t, cfg.Logger)
}

func TestNewWorker_RateLimiter(t *testing.T) {
	w := NewWorker(bus.NewMemoryBus(1), runner.NewSyncRunner(registry.New()), storage.NewMemoryMetadata(),
		WithRateLimit(50, 5))
	require.NotNil(t, w.limiter)
	assert.Equal(t, 5, w.limiter.Burst())
}

// ---------------------------------------------------------------------------
// Process
// ---------------------------------------------------------------------------

func TestProcess_AppliesResult(t *testing.T) {
	md := storage.NewMemoryMetadata()
	ledger := newMemLedger()
	w := NewWorker(nil, runner.NewSyncRunner(tagRegistry(t)), md,
		WithWorkerID("w-1"), WithRunLedger(ledger))

	var started, completed atomic.Int32
	w.OnJobStart(func(context.Context, core.Job) { started.Add(1) })
	w.OnJobComplete(func(_ context.Context, _ core.Job, res *core.Result) {
		completed.Add(1)
		assert.Equal(t, "file-1", res.FileID)
	})
	events := w.Events()

	require.NoError(t, w.Process(context.Background(), testJob("1")))

	attrs, artifacts := md.Snapshot()
	assert.Equal(t, "in/1", attrs["file-1"]["location"])
	assert.Equal(t, "w-1", attrs["file-1"]["worker"])
	require.Len(t, artifacts["file-1"], 1)
	assert.Equal(t, "tagged", artifacts["file-1"][0].Kind)

	assert.Equal(t, core.RunCompleted, ledger.status("1"))
	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(1), completed.Load())

	first := <-events
	_, ok := first.(*core.JobStarted)
	assert.True(t, ok, "first event should be JobStarted, got %T", first)
	second := <-events
	done, ok := second.(*core.JobCompleted)
	require.True(t, ok, "second event should be JobCompleted, got %T", second)
	assert.Equal(t, "1", done.Job.JobID)
}

func TestProcess_HandlerError(t *testing.T) {
	md := storage.NewMemoryMetadata()
	ledger := newMemLedger()
	boom := errors.New("ocr engine unavailable")
	w := NewWorker(nil, runner.NewSyncRunner(registryWith(t, func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		return nil, boom
	})), md, WithRunLedger(ledger))

	var failed error
	w.OnJobFail(func(_ context.Context, _ core.Job, err error) { failed = err })

	err := w.Process(context.Background(), testJob("1"))
	assert.Same(t, boom, err)
	assert.Same(t, boom, failed)
	assert.Equal(t, core.RunFailed, ledger.status("1"))
	assert.Equal(t, "ocr engine unavailable", ledger.errs["1"])

	attrs, _ := md.Snapshot()
	assert.Empty(t, attrs)
}

func TestProcess_RecoversPanics(t *testing.T) {
	w := NewWorker(nil, runner.NewSyncRunner(registryWith(t, func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		panic("boom")
	})), storage.NewMemoryMetadata())

	err := w.Process(context.Background(), testJob("1"))
	require.Error(t, err)
	assert.Equal(t, "panic: boom", err.Error())
}

func TestProcess_RejectsIncompleteResult(t *testing.T) {
	w := NewWorker(nil, runner.NewSyncRunner(registryWith(t, func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		return core.ResultRecord{"job_id": job.JobID()}, nil
	})), storage.NewMemoryMetadata())

	err := w.Process(context.Background(), testJob("1"))
	assert.ErrorIs(t, err, core.ErrResultShape)
}

func TestProcess_AsyncRunnerHasNoResult(t *testing.T) {
	w := NewWorker(nil, runner.NewAsyncRunner(bus.NewMemoryBus(4)), storage.NewMemoryMetadata())

	err := w.Process(context.Background(), testJob("1"))
	assert.ErrorIs(t, err, ErrNoResult)
	assert.ErrorIs(t, err, core.ErrInvalidResult)
}

func TestProcess_JobTimeout(t *testing.T) {
	w := NewWorker(nil, runner.NewSyncRunner(registryWith(t, func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})), storage.NewMemoryMetadata(), WithJobTimeout(20*time.Millisecond))

	err := w.Process(context.Background(), testJob("1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestApply_RetriesTransientFailures(t *testing.T) {
	md := &flakyMetadata{MemoryMetadata: storage.NewMemoryMetadata()}
	md.failures.Store(2)
	w := NewWorker(nil, runner.NewSyncRunner(tagRegistry(t)), md, fastRetry())

	require.NoError(t, w.Process(context.Background(), testJob("1")))
	assert.Equal(t, int32(3), md.calls.Load())

	attrs, _ := md.Snapshot()
	assert.Equal(t, "in/1", attrs["file-1"]["location"])
}

func TestApply_GivesUpAfterMaxAttempts(t *testing.T) {
	md := &flakyMetadata{MemoryMetadata: storage.NewMemoryMetadata()}
	md.failures.Store(10)
	w := NewWorker(nil, runner.NewSyncRunner(tagRegistry(t)), md, fastRetry())

	err := w.Process(context.Background(), testJob("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update attributes for file file-1")
	assert.Equal(t, int32(3), md.calls.Load())
}

func TestApply_NilResult(t *testing.T) {
	w := NewWorker(nil, nil, storage.NewMemoryMetadata())
	assert.ErrorIs(t, w.Apply(context.Background(), nil), core.ErrInvalidResult)
}

// ---------------------------------------------------------------------------
// Start
// ---------------------------------------------------------------------------

func TestStart_DrainsBusUntilClosed(t *testing.T) {
	b := bus.NewMemoryBus(10)
	md := storage.NewMemoryMetadata()
	w := NewWorker(b, runner.NewSyncRunner(tagRegistry(t)), md, Concurrency(3), WithRateLimit(1000, 10))

	for i := 0; i < 6; i++ {
		require.NoError(t, b.Publish(context.Background(), testJob(fmt.Sprint(i))))
	}
	b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx))

	attrs, artifacts := md.Snapshot()
	assert.Len(t, attrs, 6)
	assert.Len(t, artifacts, 6)
}

func TestStart_StopsOnCancel(t *testing.T) {
	b := bus.NewMemoryBus(1)
	w := NewWorker(b, runner.NewSyncRunner(tagRegistry(t)), storage.NewMemoryMetadata())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStart_InvalidSweepSchedule(t *testing.T) {
	w := NewWorker(bus.NewMemoryBus(1), runner.NewSyncRunner(registry.New()), storage.NewMemoryMetadata(),
		WithRunLedger(newMemLedger()), WithSweeper("every tuesday", time.Minute))

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sweep schedule")
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	w := NewWorker(nil, runner.NewSyncRunner(tagRegistry(t)), storage.NewMemoryMetadata())
	ch := w.Events()
	w.Unsubscribe(ch)

	require.NoError(t, w.Process(context.Background(), testJob("1")))
	select {
	case e := <-ch:
		t.Fatalf("unexpected event after unsubscribe: %T", e)
	default:
	}
}

func TestEmit_DropsWhenFull(t *testing.T) {
	w := NewWorker(nil, nil, storage.NewMemoryMetadata())
	ch := w.Events()
	for i := 0; i < 150; i++ {
		w.Emit(&core.RunsReleased{Count: int64(i)})
	}
	assert.Len(t, ch, 100)
}
