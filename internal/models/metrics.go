package models

import "time"

// SystemMetrics is a point-in-time snapshot of process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	ResultsGenerated         uint64    `json:"results_generated"`
	ResultsSkipped           uint64    `json:"results_skipped"`
	ResultsFailed            uint64    `json:"results_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
