package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Tasks handed to the queue grouped by outcome",
		},
		[]string{"kind", "status"},
	)
	QueueProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_processed_total",
			Help: "Total tasks processed grouped by status",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(QueueEnqueuedTotal, QueueProcessedTotal)
}
