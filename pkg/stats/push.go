package stats

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/vsundar/flowtrace/pkg/cache"
	apperrors "github.com/vsundar/flowtrace/pkg/errors"
)

// Pusher publishes one manager's report to a metrics backend.
type Pusher interface {
	Push(ctx context.Context, report Report) error
}

// GatewayPusher pushes reports to a Prometheus Pushgateway, one grouping
// per manager.
type GatewayPusher struct {
	// URL is the gateway address, e.g. "http://localhost:9091".
	URL string
	// Job is the base job name shared by all managers.
	Job string
}

// NewGatewayPusher creates a pusher for the given gateway and job name.
func NewGatewayPusher(url, job string) *GatewayPusher {
	return &GatewayPusher{URL: url, Job: job}
}

// Push builds a fresh registry for the report and pushes it under the
// manager's grouping. Gateway failures are retried with backoff.
func (p *GatewayPusher) Push(ctx context.Context, report Report) error {
	registry := prometheus.NewRegistry()
	labels := []string{"qmgr", "queue"}

	enqVol := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mq_queue_enqueue_volume_5min",
		Help: "Total messages enqueued in the last statistics interval",
	}, labels)
	deqVol := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mq_queue_dequeue_volume_5min",
		Help: "Total messages dequeued in the last statistics interval",
	}, labels)
	enqRate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mq_queue_enqueue_rate",
		Help: "Enqueue rate (messages per second)",
	}, labels)
	deqRate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mq_queue_dequeue_rate",
		Help: "Dequeue rate (messages per second)",
	}, labels)
	registry.MustRegister(enqVol, deqVol, enqRate, deqRate)

	for _, q := range report.Queues {
		enqVol.WithLabelValues(report.Manager, q.Queue).Set(float64(q.EnqueueVolume))
		deqVol.WithLabelValues(report.Manager, q.Queue).Set(float64(q.DequeueVolume))
		enqRate.WithLabelValues(report.Manager, q.Queue).Set(q.EnqueueRate)
		deqRate.WithLabelValues(report.Manager, q.Queue).Set(q.DequeueRate)
	}

	pusher := push.New(p.URL, p.Job).
		Grouping("qmgr", report.Manager).
		Gatherer(registry)

	err := cache.RetryWithBackoff(ctx, func() error {
		if err := pusher.PushContext(ctx); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "push metrics for %s", report.Manager)
	}
	return nil
}

// Ensure GatewayPusher implements Pusher.
var _ Pusher = (*GatewayPusher)(nil)
