package metricsink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

// Prometheus keeps the latest check of every monitor as gauges and counts
// checks. It is scraped through the API's /metrics endpoint.
type Prometheus struct {
	status       *prometheus.GaugeVec
	responseTime *prometheus.GaugeVec
	checks       *prometheus.CounterVec
	errors       *prometheus.CounterVec
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		status: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "uptime_monitor_status",
				Help: "Monitor status of the latest check (1=UP, 0=DOWN)",
			},
			[]string{"monitor_id", "monitor"},
		),
		responseTime: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "uptime_monitor_response_time_ms",
				Help: "Elapsed time of the latest check in milliseconds",
			},
			[]string{"monitor_id", "monitor"},
		),
		checks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uptime_monitor_checks_total",
				Help: "Total number of checks executed",
			},
			[]string{"monitor_id", "monitor", "status"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uptime_monitor_errors_total",
				Help: "Checks that ended without a response",
			},
			[]string{"monitor_id", "monitor"},
		),
	}
}

func (p *Prometheus) Send(ctx context.Context, target Target, metrics map[string]float64) error {
	id := string(target.ID)
	status := metrics["status"]
	p.status.WithLabelValues(id, target.Name).Set(status)
	if rt, ok := metrics["responseTime"]; ok {
		p.responseTime.WithLabelValues(id, target.Name).Set(rt)
	}
	label := "down"
	if status == 1 {
		label = "up"
	}
	p.checks.WithLabelValues(id, target.Name, label).Inc()
	if metrics["error"] > 0 {
		p.errors.WithLabelValues(id, target.Name).Inc()
	}
	return nil
}

// Forget drops every series of a deleted monitor, whatever name it had.
func (p *Prometheus) Forget(id domain.MonitorID) {
	match := prometheus.Labels{"monitor_id": string(id)}
	p.status.DeletePartialMatch(match)
	p.responseTime.DeletePartialMatch(match)
	p.checks.DeletePartialMatch(match)
	p.errors.DeletePartialMatch(match)
}
