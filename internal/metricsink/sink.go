// Package metricsink forwards per-check metrics to external collectors.
// Delivery is best-effort: nothing here can fail a check.
package metricsink

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

// Target identifies the monitor a set of metrics belongs to. Names are
// not unique; collectors that keep per-monitor state key on ID.
type Target struct {
	ID   domain.MonitorID
	Name string
}

func TargetOf(m *domain.Monitor) Target { return Target{ID: m.ID, Name: m.Name} }

// Sink delivers one monitor's metrics to a collector.
type Sink interface {
	Send(ctx context.Context, target Target, metrics map[string]float64) error
}

type Multi []Sink

func (m Multi) Send(ctx context.Context, target Target, metrics map[string]float64) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Send(ctx, target, metrics))
	}
	return err
}

const DefaultTimeout = 5 * time.Second

// Forwarder is the adapter the scheduler talks to. Forward never returns
// an error; failures are logged and dropped.
type Forwarder struct {
	Logger  *zap.Logger
	Sink    Sink
	Timeout time.Duration
}

func NewForwarder(logger *zap.Logger, sink Sink, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{Logger: logger, Sink: sink, Timeout: timeout}
}

func (f *Forwarder) Forward(ctx context.Context, target Target, metrics map[string]float64) {
	if f == nil || f.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	if err := f.Sink.Send(ctx, target, metrics); err != nil {
		for _, e := range multierr.Errors(err) {
			f.Logger.Warn("sink_forward_error",
				zap.String("monitor_id", string(target.ID)),
				zap.String("monitor", target.Name),
				zap.Error(e),
			)
		}
	}
}
