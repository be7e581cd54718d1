package probe

import (
	"context"
	"time"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

// Outcome is the classified result of a single probe.
//
// Fields:
//   - StatusCode: HTTP status code when a response arrived; 0 otherwise.
//   - Elapsed: dispatch until the last body byte, or until the failure.
//   - Responded: false for transport errors (DNS, TLS, connection, timeout).
type Outcome struct {
	Status     domain.Status
	StatusCode int
	Elapsed    time.Duration
	Responded  bool
	Message    string
}

// Checker performs one bounded reachability check against a URL.
type Checker interface {
	Check(ctx context.Context, target string) Outcome
}

// CheckResult turns the outcome into the record that gets persisted.
// Latency and status code are only set when a response was received.
func (o Outcome) CheckResult(id domain.MonitorID, at time.Time) domain.CheckResult {
	cr := domain.CheckResult{
		MonitorID: id,
		Status:    o.Status,
		CheckedAt: at,
	}
	if o.Responded {
		lat := o.LatencyMS()
		code := o.StatusCode
		cr.LatencyMS = &lat
		cr.StatusCode = &code
	} else {
		cr.ErrorMessage = o.Message
	}
	return cr
}

func (o Outcome) LatencyMS() float64 {
	return float64(o.Elapsed) / float64(time.Millisecond)
}

// Metrics is the map forwarded to external sinks for this outcome.
func (o Outcome) Metrics() map[string]float64 {
	m := map[string]float64{
		"status":       0,
		"responseTime": o.LatencyMS(),
	}
	if o.Status == domain.StatusUp {
		m["status"] = 1
	}
	if o.Responded {
		m["statusCode"] = float64(o.StatusCode)
	} else {
		m["error"] = 1
	}
	return m
}
