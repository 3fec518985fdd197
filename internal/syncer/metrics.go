package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Drained      prometheus.Counter
	Failed       prometheus.Counter
	DeadLettered prometheus.Counter
	QueueDepth   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Drained: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_sync_mutations_drained_total",
			Help: "Queued mutations successfully replayed against the remote system.",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_sync_mutations_failed_total",
			Help: "Replay attempts that failed and left the mutation queued.",
		}),
		DeadLettered: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_sync_mutations_dead_total",
			Help: "Mutations parked after exhausting their retry budget.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_sync_queue_depth",
			Help: "Live pending mutations after the latest drain pass.",
		}),
	}
}
