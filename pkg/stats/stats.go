// Package stats implements the periodic statistics collector: read each
// manager's most recent statistics interval and push per-queue volume and
// rate gauges to a Prometheus Pushgateway.
//
// Each manager is pushed under its own grouping so roughly eighty managers
// can share one gateway without metric clashes. Inactive queues are pushed
// with zero values so dashboards do not break between active intervals.
package stats

import (
	"time"

	"github.com/vsundar/flowtrace/pkg/admin"
)

// QueueMetrics is one queue's activity over a statistics interval, with
// rates derived from the broker's own interval boundaries.
type QueueMetrics struct {
	Queue         string
	EnqueueVolume int64
	DequeueVolume int64
	EnqueueRate   float64
	DequeueRate   float64
}

// TotalQueue is the synthetic queue label carrying manager-level rollups.
const TotalQueue = "total"

// Report is one manager's metrics for one interval, ready to push.
// The last entry in Queues is always the TotalQueue rollup.
type Report struct {
	Manager         string
	End             time.Time
	IntervalSeconds float64
	Queues          []QueueMetrics
}

// buildReport derives volumes and rates from a statistics interval.
// The interval length is floored at one second to avoid divide-by-zero on
// degenerate broker timestamps.
func buildReport(manager string, interval admin.StatisticsInterval) Report {
	seconds := interval.End.Sub(interval.Start).Seconds()
	if seconds < 1 {
		seconds = 1
	}

	report := Report{
		Manager:         manager,
		End:             interval.End,
		IntervalSeconds: seconds,
		Queues:          make([]QueueMetrics, 0, len(interval.Queues)+1),
	}

	var totalEnq, totalDeq int64
	for _, q := range interval.Queues {
		report.Queues = append(report.Queues, QueueMetrics{
			Queue:         q.Queue,
			EnqueueVolume: q.Enqueued,
			DequeueVolume: q.Dequeued,
			EnqueueRate:   float64(q.Enqueued) / seconds,
			DequeueRate:   float64(q.Dequeued) / seconds,
		})
		totalEnq += q.Enqueued
		totalDeq += q.Dequeued
	}

	report.Queues = append(report.Queues, QueueMetrics{
		Queue:         TotalQueue,
		EnqueueVolume: totalEnq,
		DequeueVolume: totalDeq,
		EnqueueRate:   float64(totalEnq) / seconds,
		DequeueRate:   float64(totalDeq) / seconds,
	})
	return report
}
