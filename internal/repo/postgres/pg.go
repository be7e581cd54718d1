package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimemonitor/internal/domain"
	"github.com/hamed0406/uptimemonitor/internal/repo"
)

var _ repo.MonitorStore = (*Store)(nil)
var _ repo.CheckStore = (*Store)(nil)
var _ repo.SnapshotStore = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("schema_applied")
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- MonitorStore ----

const monitorColumns = `id, owner_id, name, url, active, check_interval, created_at`

func (s *Store) Create(ctx context.Context, m *domain.Monitor) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = domain.MonitorID(uuid.NewString())
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO monitors (`+monitorColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(m.ID), string(m.Owner), m.Name, m.URL, m.Active, m.CheckInterval, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert monitor: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, string(id))
	m, err := scanMonitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

func (s *Store) ListActive(ctx context.Context) ([]*domain.Monitor, error) {
	return s.listMonitors(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE active ORDER BY created_at DESC, id DESC`)
}

func (s *Store) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*domain.Monitor, error) {
	return s.listMonitors(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`,
		string(owner))
}

func (s *Store) listMonitors(ctx context.Context, q string, args ...any) ([]*domain.Monitor, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []*domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var (
		m         domain.Monitor
		id, owner string
	)
	if err := row.Scan(&id, &owner, &m.Name, &m.URL, &m.Active, &m.CheckInterval, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ID = domain.MonitorID(id)
	m.Owner = domain.OwnerID(owner)
	return &m, nil
}

func (s *Store) SetActive(ctx context.Context, id domain.MonitorID, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE monitors SET active = $2 WHERE id = $1`, string(id), active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete cascades to the snapshot; check_results has no foreign key.
func (s *Store) Delete(ctx context.Context, id domain.MonitorID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- CheckStore ----

func (s *Store) Append(ctx context.Context, cr *domain.CheckResult) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO check_results
		   (monitor_id, status, latency_ms, status_code, error_message, checked_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		string(cr.MonitorID), string(cr.Status), cr.LatencyMS, cr.StatusCode, cr.ErrorMessage, cr.CheckedAt,
	).Scan(&cr.ID)
	if err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, id domain.MonitorID, limit int) ([]domain.CheckResult, error) {
	q := `SELECT id, status, latency_ms, status_code, error_message, checked_at
	        FROM check_results
	       WHERE monitor_id = $1
	       ORDER BY checked_at DESC, id DESC`
	args := []any{string(id)}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("recent checks: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckResult
	for rows.Next() {
		var (
			cr     domain.CheckResult
			status string
		)
		if err := rows.Scan(&cr.ID, &status, &cr.LatencyMS, &cr.StatusCode, &cr.ErrorMessage, &cr.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		cr.MonitorID = id
		cr.Status = domain.Status(status)
		out = append(out, cr)
	}
	return out, rows.Err()
}

// ---- SnapshotStore ----

func (s *Store) GetSnapshot(ctx context.Context, id domain.MonitorID) (*domain.Snapshot, error) {
	var (
		snap   domain.Snapshot
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT uptime_percentage, avg_latency_ms, latency_samples, total_checks, successful_checks,
		        last_status, last_check_at, last_latency_ms, version
		   FROM monitor_snapshots
		  WHERE monitor_id = $1`, string(id),
	).Scan(&snap.UptimePercentage, &snap.AvgLatencyMS, &snap.LatencySamples, &snap.TotalChecks,
		&snap.SuccessfulChecks, &status, &snap.LastCheckAt, &snap.LastLatencyMS, &snap.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	snap.MonitorID = id
	snap.LastStatus = domain.Status(status)
	return &snap, nil
}

// UpsertSnapshot writes only over the version it was computed from. A row
// that moved on (or a new row racing another first write) leaves the
// statement without effect and yields repo.ErrConflict.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	const q = `
INSERT INTO monitor_snapshots
  (monitor_id, uptime_percentage, avg_latency_ms, latency_samples, total_checks, successful_checks,
   last_status, last_check_at, last_latency_ms, version)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
 WHERE $10 = 1 OR EXISTS (SELECT 1 FROM monitor_snapshots WHERE monitor_id = $1)
ON CONFLICT (monitor_id) DO UPDATE SET
  uptime_percentage = EXCLUDED.uptime_percentage,
  avg_latency_ms    = EXCLUDED.avg_latency_ms,
  latency_samples   = EXCLUDED.latency_samples,
  total_checks      = EXCLUDED.total_checks,
  successful_checks = EXCLUDED.successful_checks,
  last_status       = EXCLUDED.last_status,
  last_check_at     = EXCLUDED.last_check_at,
  last_latency_ms   = EXCLUDED.last_latency_ms,
  version           = EXCLUDED.version
WHERE monitor_snapshots.version = EXCLUDED.version - 1`

	tag, err := s.pool.Exec(ctx, q,
		string(snap.MonitorID), snap.UptimePercentage, snap.AvgLatencyMS, snap.LatencySamples,
		snap.TotalChecks, snap.SuccessfulChecks, string(snap.LastStatus), snap.LastCheckAt,
		snap.LastLatencyMS, snap.Version,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrConflict
	}
	return nil
}
