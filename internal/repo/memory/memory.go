package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/uptimemonitor/internal/domain"
	"github.com/hamed0406/uptimemonitor/internal/repo"
)

type Store struct {
	mu        sync.RWMutex
	monitors  map[domain.MonitorID]*domain.Monitor
	results   []*domain.CheckResult
	snapshots map[domain.MonitorID]*domain.Snapshot
	nextID    int64
}

func New() *Store {
	return &Store{
		monitors:  make(map[domain.MonitorID]*domain.Monitor),
		results:   make([]*domain.CheckResult, 0, 128),
		snapshots: make(map[domain.MonitorID]*domain.Snapshot),
	}
}

// ---- MonitorStore ----

func (m *Store) Create(ctx context.Context, mon *domain.Monitor) error {
	if err := mon.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mon.ID == "" {
		mon.ID = domain.MonitorID(uuid.NewString())
	}
	if mon.CreatedAt.IsZero() {
		mon.CreatedAt = time.Now().UTC()
	}
	if _, ok := m.monitors[mon.ID]; ok {
		return fmt.Errorf("monitor %s already exists", mon.ID)
	}
	cp := *mon
	m.monitors[mon.ID] = &cp
	return nil
}

func (m *Store) Get(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mon, ok := m.monitors[id]
	if !ok {
		return nil, nil
	}
	cp := *mon
	return &cp, nil
}

func (m *Store) ListActive(ctx context.Context) ([]*domain.Monitor, error) {
	return m.list(func(mon *domain.Monitor) bool { return mon.Active }), nil
}

func (m *Store) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*domain.Monitor, error) {
	return m.list(func(mon *domain.Monitor) bool { return mon.Owner == owner }), nil
}

func (m *Store) list(keep func(*domain.Monitor) bool) []*domain.Monitor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Monitor, 0, len(m.monitors))
	for _, mon := range m.monitors {
		if keep(mon) {
			cp := *mon
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *Store) SetActive(ctx context.Context, id domain.MonitorID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.monitors[id]
	if !ok {
		return domain.ErrNotFound
	}
	mon.Active = active
	return nil
}

func (m *Store) Delete(ctx context.Context, id domain.MonitorID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.monitors[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.monitors, id)
	delete(m.snapshots, id)
	return nil
}

// ---- CheckStore ----

func (m *Store) Append(ctx context.Context, cr *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cr.ID = m.nextID
	cp := *cr
	m.results = append(m.results, &cp)
	return nil
}

func (m *Store) Recent(ctx context.Context, id domain.MonitorID, limit int) ([]domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CheckResult
	for _, r := range m.results {
		if r.MonitorID == id {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckedAt.After(out[j].CheckedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- SnapshotStore ----

func (m *Store) GetSnapshot(ctx context.Context, id domain.MonitorID) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *Store) UpsertSnapshot(ctx context.Context, s *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.monitors[s.MonitorID]; !ok {
		return domain.ErrNotFound
	}
	var stored int64
	if cur, ok := m.snapshots[s.MonitorID]; ok {
		stored = cur.Version
	}
	if s.Version != stored+1 {
		return repo.ErrConflict
	}
	cp := *s
	m.snapshots[s.MonitorID] = &cp
	return nil
}

var (
	_ repo.MonitorStore  = (*Store)(nil)
	_ repo.CheckStore    = (*Store)(nil)
	_ repo.SnapshotStore = (*Store)(nil)
)
