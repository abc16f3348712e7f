package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ai_receptionist/internal/booking"
	"ai_receptionist/internal/config"
	"ai_receptionist/internal/core"
	"ai_receptionist/internal/logger"
	"ai_receptionist/internal/storage"
	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// TurnPipeline runs one inbound turn
type TurnPipeline interface {
	Execute(ctx context.Context, input core.ProcessorInput) (*core.ProcessorOutput, error)
}

// SessionInspector reads live session summaries
type SessionInspector interface {
	SessionInfo(ctx context.Context, sessionID string) (pkg.SessionInfo, error)
}

// AvailabilityChecker lists open calendar slots
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, req booking.AvailabilityRequest) (booking.Outcome, error)
}

// Deps are the collaborators behind the gateway. A nil Archive disables the
// call endpoints and a nil Availability disables the slot listing.
type Deps struct {
	Pipeline       TurnPipeline
	Sessions       SessionInspector
	Availability   AvailabilityChecker
	Archive        storage.CallArchive
	MaxUploadBytes int64
	Now            func() time.Time
}

// Server is the REST and websocket gateway
type Server struct {
	deps     Deps
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

const (
	defaultMaxUpload = 25 << 20
	maxTextBody      = 64 << 10
)

// NewServer creates the gateway
func NewServer(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUpload
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logger.With("http"),
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// websocket upgrades bypass the access log writer wrapper
	r.Get("/v1/sessions/{id}/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(req).Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Int("size", size).
				Int64("duration_ms", duration.Milliseconds()).
				Msg("Request handled")
		}))

		r.Post("/v1/turns", s.handleTurn)
		r.Post("/v1/voice/turns", s.handleVoiceTurn)
		r.Get("/v1/sessions/{id}", s.handleSession)
		r.Get("/v1/availability", s.handleAvailability)
		r.Get("/v1/calls", s.handleListCalls)
		r.Get("/v1/calls/{id}", s.handleGetCall)
	})

	return r
}

// Run serves until ctx ends, then shuts down gracefully
func (s *Server) Run(ctx context.Context, cfg config.HTTPConfig) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", cfg.Addr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info().Msg("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	payload, err := sonic.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkg.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, pkg.ErrSessionNotFound), errors.Is(err, pkg.ErrCallNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure logs server-side failures and hides their detail from callers
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}
