package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/phishguard/internal/application/assessments"
	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
	"github.com/bryanwahyu/phishguard/internal/middleware"
)

// maxBodyBytes caps the /analyze request body.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// Options carries the optional collaborators of the router.
type Options struct {
	Logger         *slog.Logger
	Metrics        *middleware.Metrics
	RateLimiter    *middleware.RateLimiter
	APIKeys        map[string]string
	HealthCheckers map[string]middleware.HealthChecker
	AIEnabled      bool
}

type Router struct {
	svc  *assessments.Service
	opts Options
}

func NewRouter(svc *assessments.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}

	r := &Router{svc: svc, opts: opts}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(middleware.RequestLogger(opts.Logger))
	mux.Use(opts.Metrics.Middleware)
	mux.Use(middleware.APIKeyAuth(opts.APIKeys, "/", "/health", "/health/live", "/health/ready"))

	mux.Get("/", r.wrap(r.handleStatus))
	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers, opts.AIEnabled))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", opts.Metrics.Handler)

	analyze := r.wrap(r.handleAnalyze)
	if opts.RateLimiter != nil {
		mux.With(middleware.RateLimit(opts.RateLimiter)).Post("/analyze", analyze)
	} else {
		mux.Post("/analyze", analyze)
	}
	mux.Get("/history", r.wrap(r.handleHistory))
	mux.Delete("/history", r.wrap(r.handleClearHistory))
	mux.Get("/debug/models", r.wrap(r.handleDebugModels))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, errBadRequest):
				writeError(w, http.StatusBadRequest, err)
			case errors.Is(err, domain.ErrQuotaExceeded):
				writeError(w, http.StatusTooManyRequests, err)
			default:
				r.opts.Logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
				writeError(w, http.StatusInternalServerError, err)
			}
		}
	}
}

// GET /
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.svc.Status(r.opts.AIEnabled))
}

// POST /analyze
// Body: {"url": "<url>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL string `json:"url"`
	}
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}

	// no URL validation: whatever was submitted is scored and recorded
	entry, err := r.svc.Evaluate(req.Context(), body.URL)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, entry)
}

// GET /history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.svc.ListHistory(req.Context()))
}

// DELETE /history
func (r *Router) handleClearHistory(w http.ResponseWriter, req *http.Request) error {
	if err := r.svc.ClearHistory(req.Context()); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GET /debug/models
// Failures are reported in the body with 200, callers read the payload.
func (r *Router) handleDebugModels(w http.ResponseWriter, req *http.Request) error {
	models, err := r.svc.Models(req.Context())
	if err != nil {
		var status interface{ StatusCode() int }
		switch {
		case errors.Is(err, domain.ErrConfigurationMissing):
			return writeJSON(w, http.StatusOK, map[string]string{"error": "AI API key not configured"})
		case errors.As(err, &status):
			return writeJSON(w, http.StatusOK, map[string]any{"status": status.StatusCode(), "error": err.Error()})
		default:
			return writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		}
	}
	if models == nil {
		models = []domain.ModelInfo{}
	}
	return writeJSON(w, http.StatusOK, map[string]any{"supported_models": models})
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
