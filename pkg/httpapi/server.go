package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/internal/handler"
	"github.com/jdziat/simple-uow/pkg/runner"
	"github.com/jdziat/simple-uow/pkg/security"
	"github.com/jdziat/simple-uow/pkg/storage"
)

// Routes resolves unit of work names to entrypoints.
// *registry.Registry implements it.
type Routes interface {
	Get(name string) (adapter.Entrypoint, bool)
	Names() []string
}

// ResultApplier writes a decoded result to metadata.
// *worker.Worker implements it.
type ResultApplier interface {
	Apply(ctx context.Context, res *core.Result) error
}

// FileReader reads stored file metadata.
type FileReader interface {
	GetFileAttributes(ctx context.Context, fileID string) (map[string]any, error)
	ListArtifacts(ctx context.Context, fileID string) ([]core.Artifact, error)
}

// RunReader reads the run ledger. *storage.GormStorage implements it.
type RunReader interface {
	GetRun(ctx context.Context, jobID string) (*core.Run, error)
	GetRunStats(ctx context.Context) ([]*storage.RunStats, error)
	SearchRuns(ctx context.Context, filter storage.RunFilter) ([]*core.Run, int64, error)
}

// Server serves the HTTP API.
type Server struct {
	routes  Routes
	jobs    *runner.AsyncRunner
	results ResultApplier
	files   FileReader
	blobs   core.BlobStore
	runs    RunReader
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Server.
type Option interface {
	apply(*Server)
}

type optionFunc func(*Server)

func (f optionFunc) apply(s *Server) { f(s) }

// WithPublisher mounts POST /jobs, which publishes jobs to bus for the
// worker to consume.
func WithPublisher(bus core.Bus) Option {
	return optionFunc(func(s *Server) {
		if bus != nil {
			s.jobs = runner.NewAsyncRunner(bus)
		}
	})
}

// WithResultApplier mounts POST /results.
func WithResultApplier(a ResultApplier) Option {
	return optionFunc(func(s *Server) { s.results = a })
}

// WithFileReader mounts GET /files/{id}.
func WithFileReader(r FileReader) Option {
	return optionFunc(func(s *Server) { s.files = r })
}

// WithBlobStore adds presigned download URLs to the artifacts listed by
// GET /files/{id}.
func WithBlobStore(b core.BlobStore) Option {
	return optionFunc(func(s *Server) { s.blobs = b })
}

// WithRunReader mounts the /runs routes.
func WithRunReader(r RunReader) Option {
	return optionFunc(func(s *Server) { s.runs = r })
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(s *Server) {
		if l != nil {
			s.logger = l
		}
	})
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return optionFunc(func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	})
}

// NewServer creates a Server routing invocations through routes.
func NewServer(routes Routes, opts ...Option) *Server {
	s := &Server{
		routes: routes,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/jdziat/simple-uow/pkg/httpapi"),
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// Handler returns the HTTP handler with logging and tracing applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /uows", s.handleListUoWs)
	mux.HandleFunc("POST /uows/{name}", s.handleInvoke)
	if s.jobs != nil {
		mux.HandleFunc("POST /jobs", s.handleEnqueue)
	}
	if s.results != nil {
		mux.HandleFunc("POST /results", s.handleResult)
	}
	if s.files != nil {
		mux.HandleFunc("GET /files/{id}", s.handleFile)
	}
	if s.runs != nil {
		mux.HandleFunc("GET /runs", s.handleSearchRuns)
		mux.HandleFunc("GET /runs/stats", s.handleRunStats)
		mux.HandleFunc("GET /runs/{job_id}", s.handleGetRun)
	}
	return s.withTracing(s.withLogging(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListUoWs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"uows": s.routes.Names()})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ep, ok := s.routes.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown unit of work: "+name)
		return
	}

	payload, ok := readBody(w, r)
	if !ok {
		return
	}

	out, err := ep.Invoke(r.Context(), string(payload))
	if err != nil {
		status := invokeStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("unit of work failed", "uow", name, "error", err)
		}
		writeError(w, status, security.SanitizeErrorMessage(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	payload, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, err := codec.DecodeJobBytes(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := handler.ConvertJob[core.Job](rec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.routes.Get(job.UoW); !ok {
		writeError(w, http.StatusNotFound, "unknown unit of work: "+job.UoW)
		return
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}

	if _, err := s.jobs.Run(r.Context(), job); err != nil {
		if errors.Is(err, core.ErrBusClosed) {
			writeError(w, http.StatusServiceUnavailable, "bus is closed")
			return
		}
		s.logger.Error("failed to publish job", "job_id", job.JobID, "uow", job.UoW, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"uow":    job.UoW,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	payload, ok := readBody(w, r)
	if !ok {
		return
	}

	res, err := codec.DecodeResult(string(payload))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.results.Apply(r.Context(), res); err != nil {
		if errors.Is(err, core.ErrResultShape) || errors.Is(err, core.ErrInvalidResult) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("failed to apply result", "job_id", res.JobID, "file_id", res.FileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply result")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    res.JobID,
		"file_id":   res.FileID,
		"artifacts": len(res.Artifacts),
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	attrs, err := s.files.GetFileAttributes(r.Context(), id)
	if err != nil {
		s.internalError(w, "failed to read file attributes", err)
		return
	}
	artifacts, err := s.files.ListArtifacts(r.Context(), id)
	if err != nil {
		s.internalError(w, "failed to list artifacts", err)
		return
	}
	if len(attrs) == 0 && len(artifacts) == 0 {
		writeError(w, http.StatusNotFound, "file not found: "+id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file_id":    id,
		"attributes": attrs,
		"artifacts":  s.artifactViews(r.Context(), artifacts),
	})
}

// artifactView is an artifact with an optional download URL.
type artifactView struct {
	core.Artifact
	URL string `json:"url,omitempty"`
}

// artifactViews presigns each artifact location when a blob store is
// configured. Artifacts whose blob cannot be presigned are listed without a URL.
func (s *Server) artifactViews(ctx context.Context, artifacts []core.Artifact) []artifactView {
	views := make([]artifactView, len(artifacts))
	for i, a := range artifacts {
		views[i] = artifactView{Artifact: a}
		if s.blobs == nil || a.Location == "" {
			continue
		}
		url, err := s.blobs.PresignGet(ctx, a.Location)
		if err != nil {
			s.logger.Debug("artifact not presigned", "location", a.Location, "error", err)
			continue
		}
		views[i].URL = url
	}
	return views
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.Context(), r.PathValue("job_id"))
	if errors.Is(err, core.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "failed to read run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.runs.GetRunStats(r.Context())
	if err != nil {
		s.internalError(w, "failed to read run stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleSearchRuns(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRunFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, total, err := s.runs.SearchRuns(r.Context(), filter)
	if err != nil {
		s.internalError(w, "failed to search runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": total})
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

// invokeStatus maps an entrypoint error to an HTTP status.
func invokeStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidPayload), errors.Is(err, core.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidResult):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseRunFilter(r *http.Request) (storage.RunFilter, error) {
	q := r.URL.Query()
	filter := storage.RunFilter{
		Status: core.RunStatus(q.Get("status")),
		UoW:    q.Get("uow"),
		FileID: q.Get("file_id"),
		Limit:  50,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = min(n, 500)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("since must be an RFC 3339 timestamp")
		}
		filter.Since = t
	}
	return filter, nil
}

// readBody reads the request body up to security.MaxPayloadSize, writing an
// error response and returning false when it cannot.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, security.MaxPayloadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) withTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "http.request",
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		if sc := span.SpanContext(); sc.HasTraceID() {
			sw.Header().Set("X-Trace-ID", sc.TraceID().String())
		}
		next.ServeHTTP(sw, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", sw.status))
	})
}
