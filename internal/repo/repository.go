package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

// ErrConflict is returned by UpsertSnapshot when the stored snapshot moved
// on since it was read. Callers re-read and retry.
var ErrConflict = errors.New("snapshot version conflict")

// Ports (interfaces); memory and postgres adapters live in subpackages.

// MonitorReader is all the scheduler needs. Get returns nil, nil when the
// monitor does not exist.
type MonitorReader interface {
	Get(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error)
	ListActive(ctx context.Context) ([]*domain.Monitor, error)
}

type MonitorStore interface {
	MonitorReader
	// Create rejects a monitor that fails Validate; domain.IsInvalid
	// reports such errors.
	Create(ctx context.Context, m *domain.Monitor) error
	ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*domain.Monitor, error)
	SetActive(ctx context.Context, id domain.MonitorID, active bool) error
	// Delete removes the monitor and its snapshot. Check history is kept.
	Delete(ctx context.Context, id domain.MonitorID) error
}

// CheckStore is the append-only check history.
type CheckStore interface {
	Append(ctx context.Context, cr *domain.CheckResult) error
	// Recent returns up to limit results, newest first.
	Recent(ctx context.Context, id domain.MonitorID, limit int) ([]domain.CheckResult, error)
}

type SnapshotStore interface {
	// GetSnapshot returns nil, nil before the first check.
	GetSnapshot(ctx context.Context, id domain.MonitorID) (*domain.Snapshot, error)
	// UpsertSnapshot stores s only if the stored version is s.Version-1
	// (or nothing is stored and s.Version is 1); otherwise ErrConflict.
	UpsertSnapshot(ctx context.Context, s *domain.Snapshot) error
}
