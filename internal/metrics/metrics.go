package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	BatchCount          prometheus.Counter
	MessagesFetched     prometheus.Counter
	MessagesByOutcome   *prometheus.CounterVec
	HardErrors          prometheus.Counter
	EnrichmentAttempts  prometheus.Counter
	EnrichmentSuccesses prometheus.Counter
	BatchDuration       prometheus.Histogram
}

// New creates the metrics registered against the given registerer. Tests
// pass a fresh registry so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "support_mail_ingest_batch_count",
			Help: "Total number of ingestion batches run",
		}),
		MessagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "support_mail_ingest_messages_fetched",
			Help: "Total number of unread messages fetched from the mailbox",
		}),
		MessagesByOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_mail_ingest_messages_processed",
			Help: "Messages processed, labelled by outcome",
		}, []string{"outcome"}),
		HardErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "support_mail_ingest_hard_errors",
			Help: "Messages that failed processing with an unexpected error",
		}),
		EnrichmentAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "support_mail_ingest_enrichment_attempts",
			Help: "Order lookup attempts during ticket enrichment",
		}),
		EnrichmentSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "support_mail_ingest_enrichment_successes",
			Help: "Order lookups that returned a usable answer",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "support_mail_ingest_batch_duration_seconds",
			Help:    "Time spent processing one ingestion batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
