package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"

	"github.com/hamed0406/uptimemonitor/internal/domain"
	apimw "github.com/hamed0406/uptimemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/uptimemonitor/internal/repo"
	"github.com/hamed0406/uptimemonitor/internal/scheduler"
)

// Engine is the part of the scheduler the API drives.
type Engine interface {
	RunSingle(ctx context.Context, id domain.MonitorID) (scheduler.Record, error)
	RunRound(ctx context.Context) error
}

type Server struct {
	Logger    *zap.Logger
	Monitors  repo.MonitorStore
	Checks    repo.CheckStore
	Snapshots repo.SnapshotStore
	Engine    Engine

	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// OnDelete runs with the monitor ID after a successful delete.
	OnDelete func(id domain.MonitorID)
	Version  string
	Now      func() time.Time
}

type Options struct {
	Keys           apimw.Keys
	AllowedOrigins []string // empty allows any origin
	RateRPM        int
	RateBurst      int
}

func NewServer(l *zap.Logger, ms repo.MonitorStore, cs repo.CheckStore, ss repo.SnapshotStore, e Engine) *Server {
	return &Server{
		Logger:    l,
		Monitors:  ms,
		Checks:    cs,
		Snapshots: ss,
		Engine:    e,
		Version:   "dev",
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Router(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	// httplog wants a slog.Logger; route it into the same zap core
	r.Use(httplog.RequestLogger(slog.New(zapslog.NewHandler(s.Logger.Core())), &httplog.Options{
		Level:             slog.LevelDebug,
		Schema:            httplog.SchemaECS.Concise(true),
		LogRequestHeaders: []string{},
	}))
	r.Use(corsHandler(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/health", s.handleHealth)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.Authenticate(opts.Keys))
		r.Use(apimw.RateLimit(opts.RateRPM, opts.RateBurst))

		r.Get("/monitors", s.handleListMonitors)
		r.Post("/monitors", s.handleCreateMonitor)
		r.Delete("/monitors/{id}", s.handleDeleteMonitor)
		r.Post("/monitors/{id}/toggle", s.handleToggleMonitor)
		r.Post("/monitors/{id}/check", s.handleInstantCheck)
		r.Get("/monitors/{id}/checks", s.handleRecentChecks)

		r.With(apimw.RequireAdmin(opts.Keys)).Post("/rounds", s.handleRunRound)
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	})
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
