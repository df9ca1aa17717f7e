// Package metrics contains [domain.MetricsCollector] implementations.
//
// Plug an external monitoring system by implementing
// domain.MetricsCollector directly, for example with Prometheus counters
// and histograms.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Noop discards every measurement.
type Noop struct{}

// NewNoop returns a collector that records nothing.
func NewNoop() domain.MetricsCollector { return Noop{} }

func (Noop) RecordInsert(time.Duration, error)         {}
func (Noop) RecordBatchInsert(int, int, time.Duration) {}
func (Noop) RecordFind(int, time.Duration, error)      {}
func (Noop) RecordUpdate(time.Duration, error)         {}
func (Noop) RecordDelete(time.Duration, error)         {}
func (Noop) RecordAggregate(int, time.Duration, error) {}

// Basic keeps counters in memory.
type Basic struct {
	InsertCount       atomic.Int64
	InsertErrors      atomic.Int64
	InsertTotalNanos  atomic.Int64
	BatchInsertCount  atomic.Int64
	BatchInsertItems  atomic.Int64
	BatchInsertFailed atomic.Int64
	FindCount         atomic.Int64
	FindErrors        atomic.Int64
	FindResults       atomic.Int64
	FindTotalNanos    atomic.Int64
	UpdateCount       atomic.Int64
	UpdateErrors      atomic.Int64
	DeleteCount       atomic.Int64
	DeleteErrors      atomic.Int64
	AggregateCount    atomic.Int64
	AggregateErrors   atomic.Int64
	AggregateStages   atomic.Int64
}

// NewBasic returns an empty in-memory collector.
func NewBasic() *Basic { return &Basic{} }

// RecordInsert implements domain.MetricsCollector.
func (b *Basic) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordBatchInsert implements domain.MetricsCollector.
func (b *Basic) RecordBatchInsert(count, failed int, _ time.Duration) {
	b.BatchInsertCount.Add(1)
	b.BatchInsertItems.Add(int64(count))
	b.BatchInsertFailed.Add(int64(failed))
}

// RecordFind implements domain.MetricsCollector.
func (b *Basic) RecordFind(results int, duration time.Duration, err error) {
	b.FindCount.Add(1)
	b.FindResults.Add(int64(results))
	b.FindTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FindErrors.Add(1)
	}
}

// RecordUpdate implements domain.MetricsCollector.
func (b *Basic) RecordUpdate(_ time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordDelete implements domain.MetricsCollector.
func (b *Basic) RecordDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordAggregate implements domain.MetricsCollector.
func (b *Basic) RecordAggregate(stages int, _ time.Duration, err error) {
	b.AggregateCount.Add(1)
	b.AggregateStages.Add(int64(stages))
	if err != nil {
		b.AggregateErrors.Add(1)
	}
}

// Stats is a point in time copy of a [Basic] collector.
type Stats struct {
	InsertCount       int64
	InsertErrors      int64
	InsertAvg         time.Duration
	BatchInsertCount  int64
	BatchInsertItems  int64
	BatchInsertFailed int64
	FindCount         int64
	FindErrors        int64
	FindResults       int64
	FindAvg           time.Duration
	UpdateCount       int64
	UpdateErrors      int64
	DeleteCount       int64
	DeleteErrors      int64
	AggregateCount    int64
	AggregateErrors   int64
	AggregateStages   int64
}

// Stats returns the current counters.
func (b *Basic) Stats() Stats {
	return Stats{
		InsertCount:       b.InsertCount.Load(),
		InsertErrors:      b.InsertErrors.Load(),
		InsertAvg:         avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		BatchInsertCount:  b.BatchInsertCount.Load(),
		BatchInsertItems:  b.BatchInsertItems.Load(),
		BatchInsertFailed: b.BatchInsertFailed.Load(),
		FindCount:         b.FindCount.Load(),
		FindErrors:        b.FindErrors.Load(),
		FindResults:       b.FindResults.Load(),
		FindAvg:           avg(b.FindTotalNanos.Load(), b.FindCount.Load()),
		UpdateCount:       b.UpdateCount.Load(),
		UpdateErrors:      b.UpdateErrors.Load(),
		DeleteCount:       b.DeleteCount.Load(),
		DeleteErrors:      b.DeleteErrors.Load(),
		AggregateCount:    b.AggregateCount.Load(),
		AggregateErrors:   b.AggregateErrors.Load(),
		AggregateStages:   b.AggregateStages.Load(),
	}
}

func avg(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}
