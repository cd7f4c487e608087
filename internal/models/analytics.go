package models

import "time"

// GenderSplit summarises male/female counts for parity categories.
type GenderSplit struct {
	Male          float64 `json:"male"`
	Female        float64 `json:"female"`
	Total         float64 `json:"total"`
	FemalePercent float64 `json:"female_percent"`
}

// CategorySummary aggregates approved records for one category and period.
type CategorySummary struct {
	Category    Category           `json:"category"`
	Label       string             `json:"label"`
	Period      string             `json:"period"`
	Records     int                `json:"records"`
	Totals      map[string]float64 `json:"totals"`
	Gender      *GenderSplit       `json:"gender,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// SystemMetrics is a lightweight snapshot of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64            `json:"cache_hit_ratio"`
	CacheHits                uint64             `json:"cache_hits"`
	CacheMisses              uint64             `json:"cache_misses"`
	RequestsTotal            uint64             `json:"requests_total"`
	AverageRequestDurationMs float64            `json:"average_request_duration_ms"`
	PendingRecords           map[Category]int64 `json:"pending_records"`
	Transitions              map[string]uint64  `json:"transitions"`
	Goroutines               int                `json:"goroutines"`
	GeneratedAt              time.Time          `json:"generated_at"`
}
