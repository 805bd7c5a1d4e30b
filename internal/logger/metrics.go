package logger

import (
	"sync"
	"time"
)

// Metrics tracks operational metrics including counters, gauges, and timings.
// All operations are thread-safe.
//
// Counters track incrementing values (e.g., number of refreshes).
// Gauges track point-in-time values (e.g., records in the current feed).
// Timings track durations and are summarized as count/total/average/min/max.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

// TimingStats summarizes the recorded durations for one timing name.
type TimingStats struct {
	Count   int    `json:"count"`
	Total   string `json:"total"`
	Average string `json:"average"`
	Min     string `json:"min"`
	Max     string `json:"max"`
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters map[string]int64       `json:"counters"`
	Gauges   map[string]float64     `json:"gauges"`
	Timings  map[string]TimingStats `json:"timings"`
}

var defaultMetrics = NewMetrics()

// NewMetrics creates a new metrics tracker with empty counters, gauges, and timings.
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

// IncrCounter increments a counter by 1. If the counter doesn't exist, it is initialized to 1.
func (m *Metrics) IncrCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// SetGauge sets a gauge to the specified value, overwriting any previous value.
func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// RecordTiming records a duration measurement.
func (m *Metrics) RecordTiming(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[name] = append(m.timings[name], duration)
}

// Snapshot returns a deep copy of all metrics, safe to use concurrently with updates.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Counters: make(map[string]int64, len(m.counters)),
		Gauges:   make(map[string]float64, len(m.gauges)),
		Timings:  make(map[string]TimingStats, len(m.timings)),
	}

	for k, v := range m.counters {
		snap.Counters[k] = v
	}
	for k, v := range m.gauges {
		snap.Gauges[k] = v
	}

	for name, durations := range m.timings {
		if len(durations) == 0 {
			continue
		}

		var total time.Duration
		lo, hi := durations[0], durations[0]
		for _, d := range durations {
			total += d
			if d < lo {
				lo = d
			}
			if d > hi {
				hi = d
			}
		}

		snap.Timings[name] = TimingStats{
			Count:   len(durations),
			Total:   total.String(),
			Average: (total / time.Duration(len(durations))).String(),
			Min:     lo.String(),
			Max:     hi.String(),
		}
	}

	return snap
}

// Package-level metrics functions using the default metrics tracker

// IncrCounter increments a counter on the default metrics tracker.
func IncrCounter(name string) {
	defaultMetrics.IncrCounter(name)
}

// SetGauge sets a gauge on the default metrics tracker.
func SetGauge(name string, value float64) {
	defaultMetrics.SetGauge(name, value)
}

// RecordTiming records a timing on the default metrics tracker.
func RecordTiming(name string, duration time.Duration) {
	defaultMetrics.RecordTiming(name, duration)
}

// GetMetricsSnapshot returns a snapshot of all metrics from the default tracker.
func GetMetricsSnapshot() MetricsSnapshot {
	return defaultMetrics.Snapshot()
}
