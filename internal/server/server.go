package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gnomegl/commitctx/internal/blame"
	"github.com/gnomegl/commitctx/internal/linksign"
	"github.com/gnomegl/commitctx/internal/logging"
	"github.com/gnomegl/commitctx/internal/metrics"
	"github.com/gnomegl/commitctx/internal/models"
	"github.com/gnomegl/commitctx/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxBlameFiles bounds a single blame request.
const maxBlameFiles = 100

type Options struct {
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	// Blamers is keyed by provider name.
	Blamers map[string]blame.FileBlamer
	Links   *linksign.Service
}

type server struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	blamers map[string]blame.FileBlamer
}

func New(opts Options) http.Handler {
	s := &server{
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
		blamers: opts.Blamers,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/api/0/blame", s.handleBlame)

	if opts.Links != nil {
		routes := opts.Links.Routes()
		r.Group(func(r chi.Router) {
			r.Use(opts.Links.Middleware)
			for _, name := range routes.Names() {
				pattern, _ := routes.Pattern(name)
				r.Get(pattern, signedView(name))
			}
		})
	}

	return r
}

type blameRequest struct {
	Files []models.SourceLineInfo `json:"files"`
}

type blameResponse struct {
	Blames []models.FileBlameInfo `json:"blames"`
}

func (s *server) handleBlame(w http.ResponseWriter, r *http.Request) {
	var req blameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Files) == 0 {
		writeJSON(w, http.StatusOK, blameResponse{Blames: []models.FileBlameInfo{}})
		return
	}
	if len(req.Files) > maxBlameFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per request", maxBlameFiles))
		return
	}

	provider := req.Files[0].Repo.Provider
	for _, f := range req.Files[1:] {
		if f.Repo.Provider != provider {
			writeError(w, http.StatusBadRequest, "all files must belong to the same provider")
			return
		}
	}
	client, ok := s.blamers[provider]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported provider %q", provider))
		return
	}

	fetcher := blame.NewFetcher(client, blame.WithLogger(s.logger), blame.WithMetrics(s.metrics))
	blames, err := fetcher.FetchFileBlames(r.Context(), req.Files,
		zap.String("provider", provider),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	switch {
	case errors.Is(err, blame.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		s.logger.Error("blame request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to fetch blame")
		return
	}
	writeJSON(w, http.StatusOK, blameResponse{Blames: blames})
}

func signedView(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := users.FromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "a valid signed link is required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"view": name,
			"user": user,
		})
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
