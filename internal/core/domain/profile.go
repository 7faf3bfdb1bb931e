package domain

// PerformanceProfile holds per-document runtime signals collected by an
// external telemetry source on a rolling window. The ranking engine only
// reads these values.
type PerformanceProfile struct {
	// DocumentID links the profile to its document.
	DocumentID string

	// P50LatencyMs is the median observed latency.
	P50LatencyMs float64

	// P95LatencyMs is the 95th-percentile observed latency.
	P95LatencyMs float64

	// AvailabilitySLO is the availability target met over the window (0-1).
	AvailabilitySLO float64

	// CallVolume30d is the number of calls observed in the last 30 days.
	CallVolume30d int64
}
