// Package stats maintains the running aggregate of a monitor's checks.
// Everything here is pure: no I/O, no clocks, no failure paths.
package stats

import "github.com/hamed0406/uptimemonitor/internal/domain"

// Advance folds one check result into the previous snapshot (nil when the
// monitor has never been checked) and returns the next snapshot.
//
// The average latency is a running mean over the checks that carried a
// latency only; LatencySamples is its denominator. Results without a latency
// leave the average untouched.
func Advance(prev *domain.Snapshot, r domain.CheckResult) domain.Snapshot {
	var next domain.Snapshot
	if prev != nil {
		next = *prev
	}
	next.MonitorID = r.MonitorID
	next.TotalChecks++
	if r.Up() {
		next.SuccessfulChecks++
	}
	next.UptimePercentage = uptime(next.SuccessfulChecks, next.TotalChecks)

	if r.LatencyMS != nil {
		sum := next.AvgLatencyMS * float64(next.LatencySamples)
		next.LatencySamples++
		next.AvgLatencyMS = (sum + *r.LatencyMS) / float64(next.LatencySamples)
	}

	next.LastStatus = r.Status
	next.LastCheckAt = r.CheckedAt
	next.LastLatencyMS = nil
	if r.LatencyMS != nil {
		v := *r.LatencyMS
		next.LastLatencyMS = &v
	}
	next.Version++
	return next
}

func uptime(successful, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}
