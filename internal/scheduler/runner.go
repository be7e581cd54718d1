package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimemonitor/internal/domain"
	"github.com/hamed0406/uptimemonitor/internal/metricsink"
	"github.com/hamed0406/uptimemonitor/internal/probe"
	"github.com/hamed0406/uptimemonitor/internal/repo"
	"github.com/hamed0406/uptimemonitor/internal/stats"
)

// maxSnapshotAttempts bounds the read-advance-write retries on a version
// conflict.
const maxSnapshotAttempts = 3

// Forwarder receives every check's metrics. It must not fail.
type Forwarder interface {
	Forward(ctx context.Context, target metricsink.Target, metrics map[string]float64)
}

// MonitorError ties a storage failure to the monitor whose iteration hit it.
type MonitorError struct {
	MonitorID domain.MonitorID
	Name      string
	Err       error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("monitor %s (%s): %v", e.MonitorID, e.Name, e.Err)
}

func (e *MonitorError) Unwrap() error { return e.Err }

// Record is what one check produced: the appended result and the snapshot
// it advanced to.
type Record struct {
	Result   domain.CheckResult
	Snapshot domain.Snapshot
}

// Runner executes scheduling rounds. It holds no timers; Loop or any other
// outer trigger decides when a round runs.
type Runner struct {
	Logger    *zap.Logger
	Monitors  repo.MonitorReader
	Checks    repo.CheckStore
	Snapshots repo.SnapshotStore
	Checker   probe.Checker
	Sink      Forwarder
	// MaxConcurrent caps in-flight probes; 0 runs one goroutine per monitor.
	MaxConcurrent int
	Now           func() time.Time

	forwards sync.WaitGroup
}

func NewRunner(
	logger *zap.Logger,
	monitors repo.MonitorReader,
	checks repo.CheckStore,
	snapshots repo.SnapshotStore,
	checker probe.Checker,
	sink Forwarder,
	maxConcurrent int,
) *Runner {
	if maxConcurrent < 0 {
		maxConcurrent = 0
	}
	return &Runner{
		Logger:        logger,
		Monitors:      monitors,
		Checks:        checks,
		Snapshots:     snapshots,
		Checker:       checker,
		Sink:          sink,
		MaxConcurrent: maxConcurrent,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// RunRound checks every active monitor once. Monitors are probed
// concurrently and each one is recorded on its own: a failing monitor never
// stops its siblings. The returned error joins one *MonitorError per
// monitor whose result could not be stored.
//
// A round runs to completion even if ctx is cancelled; every probe is
// bounded by the checker's own timeout.
func (r *Runner) RunRound(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	monitors, err := r.Monitors.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active monitors: %w", err)
	}
	r.Logger.Info("round_started", zap.Int("monitors", len(monitors)))
	if len(monitors) == 0 {
		return nil
	}

	p := pool.New().WithErrors()
	if r.MaxConcurrent > 0 {
		p = p.WithMaxGoroutines(r.MaxConcurrent)
	}
	for _, m := range monitors {
		m := m
		p.Go(func() error {
			if _, err := r.check(ctx, m); err != nil {
				return &MonitorError{MonitorID: m.ID, Name: m.Name, Err: err}
			}
			return nil
		})
	}
	err = p.Wait()

	failed := len(FailedMonitors(err))
	r.Logger.Info("round_completed",
		zap.Int("monitors", len(monitors)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
	return err
}

// RunSingle checks one monitor on demand. Missing and paused monitors are
// rejected before any probe is dispatched.
func (r *Runner) RunSingle(ctx context.Context, id domain.MonitorID) (Record, error) {
	m, err := r.Monitors.Get(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("get monitor: %w", err)
	}
	if m == nil {
		return Record{}, domain.ErrNotFound
	}
	if !m.Active {
		return Record{}, domain.ErrInactive
	}
	rec, err := r.check(ctx, m)
	if err != nil {
		return Record{}, &MonitorError{MonitorID: m.ID, Name: m.Name, Err: err}
	}
	return rec, nil
}

func (r *Runner) check(ctx context.Context, m *domain.Monitor) (Record, error) {
	out := r.probe(ctx, m)
	cr := out.CheckResult(m.ID, r.now())

	rec, err := r.record(ctx, &cr)

	r.forward(ctx, m, out)

	if err != nil {
		r.Logger.Warn("check_record_error",
			zap.String("monitor_id", string(m.ID)),
			zap.String("url", m.URL),
			zap.Error(err),
		)
		return Record{}, err
	}
	r.Logger.Debug("check_recorded",
		zap.String("monitor_id", string(m.ID)),
		zap.String("url", m.URL),
		zap.String("status", string(out.Status)),
		zap.Int("status_code", out.StatusCode),
		zap.Duration("elapsed", out.Elapsed),
		zap.String("message", out.Message),
		zap.Float64("uptime", rec.Snapshot.UptimePercentage),
	)
	return rec, nil
}

// probe turns a panicking checker into an ERROR outcome.
func (r *Runner) probe(ctx context.Context, m *domain.Monitor) (out probe.Outcome) {
	defer func() {
		if v := recover(); v != nil {
			r.Logger.Error("probe_panic",
				zap.String("monitor_id", string(m.ID)),
				zap.Any("panic", v),
			)
			out = probe.Outcome{Status: domain.StatusError, Message: fmt.Sprintf("probe panic: %v", v)}
		}
	}()
	return r.Checker.Check(ctx, m.URL)
}

// record appends the result, then advances the snapshot with a
// version-checked upsert. A conflicting writer makes us re-read.
func (r *Runner) record(ctx context.Context, cr *domain.CheckResult) (Record, error) {
	if err := r.Checks.Append(ctx, cr); err != nil {
		return Record{}, fmt.Errorf("append check result: %w", err)
	}

	for attempt := 1; ; attempt++ {
		prev, err := r.Snapshots.GetSnapshot(ctx, cr.MonitorID)
		if err != nil {
			return Record{}, fmt.Errorf("get snapshot: %w", err)
		}
		next := stats.Advance(prev, *cr)
		err = r.Snapshots.UpsertSnapshot(ctx, &next)
		if err == nil {
			return Record{Result: *cr, Snapshot: next}, nil
		}
		if !errors.Is(err, repo.ErrConflict) || attempt == maxSnapshotAttempts {
			return Record{}, fmt.Errorf("upsert snapshot: %w", err)
		}
		r.Logger.Debug("snapshot_conflict",
			zap.String("monitor_id", string(cr.MonitorID)),
			zap.Int("attempt", attempt),
		)
	}
}

// forward hands the metrics to the sink in the background so a slow
// collector never holds up a round or an instant check.
func (r *Runner) forward(ctx context.Context, m *domain.Monitor, out probe.Outcome) {
	if r.Sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	target, metrics := metricsink.TargetOf(m), out.Metrics()
	r.forwards.Add(1)
	go func() {
		defer r.forwards.Done()
		r.Sink.Forward(ctx, target, metrics)
	}()
}

// Flush blocks until every metric forward started so far has returned.
func (r *Runner) Flush() {
	r.forwards.Wait()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// FailedMonitors lists the monitors a round error reports, in any order.
func FailedMonitors(err error) []domain.MonitorID {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []domain.MonitorID
		for _, e := range joined.Unwrap() {
			out = append(out, FailedMonitors(e)...)
		}
		return out
	}
	var me *MonitorError
	if errors.As(err, &me) {
		return []domain.MonitorID{me.MonitorID}
	}
	return nil
}
