package octgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordSerialize is called after each chunk serialization.
	// duration is the time taken, err is nil if successful.
	RecordSerialize(duration time.Duration, err error)

	// RecordLoad is called after each chunk rematerialization.
	RecordLoad(duration time.Duration, err error)

	// RecordPurge is called after each purge pass that submitted work.
	// submitted is the number of serialization tasks queued.
	RecordPurge(submitted int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSerialize(time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)      {}
func (NoopMetricsCollector) RecordPurge(int)                      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SerializeCount      atomic.Int64
	SerializeErrors     atomic.Int64
	SerializeTotalNanos atomic.Int64
	LoadCount           atomic.Int64
	LoadErrors          atomic.Int64
	LoadTotalNanos      atomic.Int64
	PurgeCount          atomic.Int64
	PurgeSubmitted      atomic.Int64
}

// RecordSerialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSerialize(duration time.Duration, err error) {
	b.SerializeCount.Add(1)
	b.SerializeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SerializeErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordPurge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPurge(submitted int) {
	b.PurgeCount.Add(1)
	b.PurgeSubmitted.Add(int64(submitted))
}
