package domain

import "time"

type MonitorID string

// OwnerID identifies the user a monitor belongs to. Ownership is enforced
// by the HTTP layer before any scheduler call is reachable.
type OwnerID string

// DefaultCheckInterval is used when a monitor is created without an interval.
const DefaultCheckInterval = 60

type Monitor struct {
	ID    MonitorID `json:"id"`
	Owner OwnerID   `json:"owner"`
	Name  string    `json:"name"`
	URL   string    `json:"url"`
	// Active monitors are checked every round; paused ones are skipped.
	Active bool `json:"active"`
	// CheckInterval is stored in seconds. The scheduler checks every active
	// monitor each round, so the value is advisory.
	CheckInterval int       `json:"check_interval"`
	CreatedAt     time.Time `json:"created_at"`
}

type Status string

const (
	StatusUp    Status = "UP"
	StatusDown  Status = "DOWN"
	StatusError Status = "ERROR"
)

// CheckResult is one immutable observation of a monitor. LatencyMS and
// StatusCode are nil unless a response was received.
type CheckResult struct {
	ID           int64     `json:"id,omitempty"`
	MonitorID    MonitorID `json:"monitor_id"`
	Status       Status    `json:"status"`
	LatencyMS    *float64  `json:"latency_ms"`
	StatusCode   *int      `json:"status_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

func (c CheckResult) Up() bool { return c.Status == StatusUp }

// Snapshot holds the running statistics of one monitor. It is derived
// state: replaying every CheckResult in timestamp order rebuilds it.
type Snapshot struct {
	MonitorID        MonitorID `json:"monitor_id"`
	UptimePercentage float64   `json:"uptime_percentage"`
	AvgLatencyMS     float64   `json:"avg_latency_ms"`
	// LatencySamples counts the checks that contributed to AvgLatencyMS.
	LatencySamples   int64     `json:"latency_samples"`
	TotalChecks      int64     `json:"total_checks"`
	SuccessfulChecks int64     `json:"successful_checks"`
	LastStatus       Status    `json:"last_status"`
	LastCheckAt      time.Time `json:"last_check_at"`
	LastLatencyMS    *float64  `json:"last_latency_ms"`
	// Version grows by one on every update and guards concurrent upserts.
	Version int64 `json:"version"`
}
