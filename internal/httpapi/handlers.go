package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimemonitor/internal/domain"
	apimw "github.com/hamed0406/uptimemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/uptimemonitor/internal/scheduler"
)

const (
	recentOnDashboard  = 10
	defaultChecksLimit = 10
	maxChecksLimit     = 100
)

type monitorView struct {
	domain.Monitor
	Stats        domain.Snapshot      `json:"stats"`
	RecentChecks []domain.CheckResult `json:"recent_checks"`
}

type createPayload struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	CheckInterval int    `json:"check_interval"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
		"version":   s.Version,
	})
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, _ := apimw.OwnerFrom(ctx)

	ms, err := s.Monitors.ListByOwner(ctx, owner)
	if err != nil {
		s.fail(w, "list_monitors_error", err)
		return
	}
	out := make([]monitorView, 0, len(ms))
	for _, m := range ms {
		snap, err := s.Snapshots.GetSnapshot(ctx, m.ID)
		if err != nil {
			s.fail(w, "get_snapshot_error", err)
			return
		}
		if snap == nil {
			// never checked
			snap = &domain.Snapshot{MonitorID: m.ID, LastStatus: domain.StatusDown}
		}
		recent, err := s.Checks.Recent(ctx, m.ID, recentOnDashboard)
		if err != nil {
			s.fail(w, "recent_checks_error", err)
			return
		}
		if recent == nil {
			recent = []domain.CheckResult{}
		}
		out = append(out, monitorView{Monitor: *m, Stats: *snap, RecentChecks: recent})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMonitor(w http.ResponseWriter, r *http.Request) {
	var p createPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	owner, _ := apimw.OwnerFrom(r.Context())

	m := &domain.Monitor{
		Owner:         owner,
		Name:          strings.TrimSpace(p.Name),
		URL:           domain.NormalizeURL(p.URL),
		Active:        true,
		CheckInterval: p.CheckInterval,
		CreatedAt:     s.now(),
	}
	if m.CheckInterval == 0 {
		m.CheckInterval = domain.DefaultCheckInterval
	}
	if err := s.Monitors.Create(r.Context(), m); err != nil {
		if domain.IsInvalid(err) {
			problems := []string{}
			for _, e := range multierr.Errors(err) {
				problems = append(problems, e.Error())
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid monitor", "problems": problems})
			return
		}
		s.fail(w, "create_monitor_error", err)
		return
	}

	s.Logger.Info("monitor_created",
		zap.String("monitor_id", string(m.ID)),
		zap.String("owner", string(owner)),
		zap.String("url", m.URL),
	)
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleDeleteMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.owned(w, r)
	if !ok {
		return
	}
	if err := s.Monitors.Delete(r.Context(), m.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
			return
		}
		s.fail(w, "delete_monitor_error", err)
		return
	}
	if s.OnDelete != nil {
		s.OnDelete(m.ID)
	}
	s.Logger.Info("monitor_deleted", zap.String("monitor_id", string(m.ID)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.owned(w, r)
	if !ok {
		return
	}
	active := !m.Active
	if err := s.Monitors.SetActive(r.Context(), m.ID, active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
			return
		}
		s.fail(w, "toggle_monitor_error", err)
		return
	}
	s.Logger.Info("monitor_toggled",
		zap.String("monitor_id", string(m.ID)),
		zap.Bool("active", active),
	)
	writeJSON(w, http.StatusOK, map[string]any{"id": m.ID, "active": active})
}

func (s *Server) handleInstantCheck(w http.ResponseWriter, r *http.Request) {
	m, ok := s.owned(w, r)
	if !ok {
		return
	}
	rec, err := s.Engine.RunSingle(r.Context(), m.ID)
	switch {
	case errors.Is(err, domain.ErrInactive):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.fail(w, "instant_check_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": rec.Result, "stats": rec.Snapshot})
}

func (s *Server) handleRecentChecks(w http.ResponseWriter, r *http.Request) {
	limit := defaultChecksLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxChecksLimit)
	}
	m, ok := s.owned(w, r)
	if !ok {
		return
	}
	rows, err := s.Checks.Recent(r.Context(), m.ID, limit)
	if err != nil {
		s.fail(w, "recent_checks_error", err)
		return
	}
	if rows == nil {
		rows = []domain.CheckResult{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleRunRound(w http.ResponseWriter, r *http.Request) {
	err := s.Engine.RunRound(r.Context())
	failed := scheduler.FailedMonitors(err)
	if err != nil && len(failed) == 0 {
		s.fail(w, "round_error", err)
		return
	}
	code := http.StatusOK
	if len(failed) > 0 {
		code = http.StatusMultiStatus
	}
	if failed == nil {
		failed = []domain.MonitorID{}
	}
	writeJSON(w, code, map[string]any{"failed": failed})
}

// owned loads the {id} monitor and checks it belongs to the caller. A
// monitor owned by someone else looks exactly like a missing one.
func (s *Server) owned(w http.ResponseWriter, r *http.Request) (*domain.Monitor, bool) {
	owner, _ := apimw.OwnerFrom(r.Context())
	id := domain.MonitorID(chi.URLParam(r, "id"))

	m, err := s.Monitors.Get(r.Context(), id)
	if err != nil {
		s.fail(w, "get_monitor_error", err)
		return nil, false
	}
	if m == nil || m.Owner != owner {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return nil, false
	}
	return m, true
}

func (s *Server) fail(w http.ResponseWriter, event string, err error) {
	s.Logger.Error(event, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
