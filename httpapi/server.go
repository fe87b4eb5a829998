package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/scriptvault/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultMaxPayloadBytes matches the historical 1 MiB upload limit.
	DefaultMaxPayloadBytes = 1 << 20

	// DefaultPoolSize bounds concurrent storage operations.
	DefaultPoolSize = 64

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second

	contentTypeLua = "text/x-lua; charset=utf-8"
)

// Store is the subset of store.Store the transport needs.
type Store interface {
	Put(ctx context.Context, group, entity string, payload []byte) (core.WriteOutcome, error)
	ListVersions(ctx context.Context, group, entity string) ([]core.VersionID, error)
	GetLatestInfo(ctx context.Context, group, entity string) (core.VersionID, error)
	GetLatestContent(ctx context.Context, group, entity string) (core.VersionID, []byte, error)
}

// Server serves the store over HTTP.
type Server struct {
	store      Store
	apiKeys    []string
	maxPayload int64
	pool       *ants.Pool
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
	handler    http.Handler
}

// Option configures a Server.
type Option func(*Server) error

// WithAPIKeys sets the keys accepted for writes.
func WithAPIKeys(keys ...string) Option {
	return func(s *Server) error {
		s.apiKeys = append([]string(nil), keys...)
		return nil
	}
}

// WithMaxPayloadBytes sets the upload size limit.
// Default is DefaultMaxPayloadBytes.
func WithMaxPayloadBytes(n int64) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("max payload must be greater than 0, got %d", n)
		}
		s.maxPayload = n
		return nil
	}
}

// WithPoolSize sets the worker pool size for storage operations.
// Default is DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(s *Server) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithGatherer exposes metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) error {
		s.gatherer = g
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer creates a server for st. Call Release when done.
func NewServer(st Store, opts ...Option) (*Server, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}

	pool, err := ants.NewPool(DefaultPoolSize)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:      st,
		maxPayload: DefaultMaxPayloadBytes,
		pool:       pool,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}

	s.handler = withRequestLogging(s.logger, s.routes())
	return s, nil
}

// Release stops the worker pool.
func (s *Server) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on l until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	s.logger.Info("listening", "addr", l.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /storage/{group}/{entity}", s.handlePut)
	mux.HandleFunc("GET /storage/{group}/{entity}/versions", s.handleVersions)
	mux.HandleFunc("GET /storage/{group}/{entity}/info", s.handleInfo)
	mux.HandleFunc("GET /storage/{group}/{entity}/latest", s.handleLatest)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// run executes fn on the worker pool and waits for it or for ctx.
func (s *Server) run(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	err := s.pool.Submit(func() {
		defer close(done)
		fn()
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if err := CheckAPIKey(r, s.apiKeys); err != nil {
		writeError(w, r, err)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxPayload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, tooLarge.Limit))
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read body", RequestID: requestIDFrom(r.Context())})
		return
	}

	group, entity := r.PathValue("group"), r.PathValue("entity")
	var outcome core.WriteOutcome
	var putErr error
	if err := s.run(r.Context(), func() {
		// Detached so a client disconnect cannot abandon a write half way.
		outcome, putErr = s.store.Put(context.WithoutCancel(r.Context()), group, entity, payload)
	}); err != nil {
		s.logger.Warn("write not completed", "group", group, "entity", entity, "err", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), RequestID: requestIDFrom(r.Context())})
		return
	}
	if putErr != nil {
		s.logFailure("put", group, entity, putErr)
		writeError(w, r, putErr)
		return
	}

	status := http.StatusOK
	if outcome.Created() {
		status = http.StatusCreated
	}
	writeJSON(w, status, newWriteResponse(outcome))
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	group, entity := r.PathValue("group"), r.PathValue("entity")
	var ids []core.VersionID
	var listErr error
	if !s.runOrFail(w, r, func() {
		ids, listErr = s.store.ListVersions(r.Context(), group, entity)
	}) {
		return
	}
	if listErr != nil {
		s.logFailure("versions", group, entity, listErr)
		writeError(w, r, listErr)
		return
	}
	writeJSON(w, http.StatusOK, newFilesResponse(ids))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	group, entity := r.PathValue("group"), r.PathValue("entity")
	var latest core.VersionID
	var infoErr error
	if !s.runOrFail(w, r, func() {
		latest, infoErr = s.store.GetLatestInfo(r.Context(), group, entity)
	}) {
		return
	}
	if infoErr != nil {
		s.logFailure("info", group, entity, infoErr)
		writeError(w, r, infoErr)
		return
	}
	writeJSON(w, http.StatusOK, InfoResponse{Latest: latest.String()})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	group, entity := r.PathValue("group"), r.PathValue("entity")
	var id core.VersionID
	var payload []byte
	var readErr error
	if !s.runOrFail(w, r, func() {
		id, payload, readErr = s.store.GetLatestContent(r.Context(), group, entity)
	}) {
		return
	}
	if errors.Is(readErr, core.ErrNotFound) {
		http.Error(w, NoVersionsMessage, http.StatusNotFound)
		return
	}
	if readErr != nil {
		s.logFailure("latest", group, entity, readErr)
		writeError(w, r, readErr)
		return
	}

	etag := `"` + core.Digest(payload) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Version-Id", id.String())
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentTypeLua)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		s.logger.Debug("failed to write payload", "err", err)
	}
}

// etagMatches reports whether an If-None-Match value matches etag. The
// comparison is weak: a W/ prefix is ignored on either side.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	etag = strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runOrFail runs fn on the pool and writes a 503 if it could not.
func (s *Server) runOrFail(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := s.run(r.Context(), fn); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), RequestID: requestIDFrom(r.Context())})
		return false
	}
	return true
}

func (s *Server) logFailure(op, group, entity string, err error) {
	level := slog.LevelDebug
	if statusFor(err) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "store operation failed",
		"op", op, "group", group, "entity", entity, "err", err)
}
