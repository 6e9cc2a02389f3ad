package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"support-mail-ingest-go/internal/metrics"
	"support-mail-ingest-go/internal/model"
)

// DefaultBatchSize bounds one batch when the config does not say otherwise.
const DefaultBatchSize = 50

// BatchSummary aggregates one batch run. Counts follow mailbox order.
type BatchSummary struct {
	RunID               string    `json:"run_id"`
	Fetched             int       `json:"fetched"`
	Tickets             int       `json:"tickets"`
	Comments            int       `json:"comments"`
	Discarded           int       `json:"discarded"`
	Quarantined         int       `json:"quarantined"`
	Skipped             int       `json:"skipped"`
	HardErrors          int       `json:"hard_errors"`
	EnrichmentAttempts  int       `json:"enrichment_attempts"`
	EnrichmentSuccesses int       `json:"enrichment_successes"`
	Errors              []string  `json:"errors,omitempty"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

// BatchRunner fetches a bounded batch of unread messages and drives the
// pipeline over them sequentially. One message fully resolves before the
// next starts: that is what makes same-conversation double-ticket races
// impossible without a distributed lock.
type BatchRunner struct {
	mailbox   MailboxClient
	pipeline  *Pipeline
	store     Store
	alerts    AlertSink
	metrics   *metrics.Metrics
	batchSize int
}

// NewBatchRunner creates a runner. batchSize <= 0 falls back to
// DefaultBatchSize; alerts and metrics may be nil.
func NewBatchRunner(mailbox MailboxClient, p *Pipeline, store Store, alerts AlertSink, m *metrics.Metrics, batchSize int) *BatchRunner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchRunner{
		mailbox:   mailbox,
		pipeline:  p,
		store:     store,
		alerts:    alerts,
		metrics:   m,
		batchSize: batchSize,
	}
}

// Run processes one batch. A hard error on one message never aborts the
// batch; the message is best-effort quarantined and counted.
func (r *BatchRunner) Run(ctx context.Context) (BatchSummary, error) {
	summary := BatchSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	if r.metrics != nil {
		r.metrics.BatchCount.Inc()
	}

	messages, err := r.mailbox.FetchUnread(ctx, r.batchSize)
	if err != nil {
		summary.FinishedAt = time.Now()
		return summary, fmt.Errorf("fetch unread messages: %w", err)
	}
	summary.Fetched = len(messages)
	if r.metrics != nil {
		r.metrics.MessagesFetched.Add(float64(len(messages)))
	}
	logrus.Infof("Batch %s: fetched %d unread messages", summary.RunID, len(messages))

	for _, msg := range messages {
		res := r.processOne(ctx, msg, &summary)
		r.tally(&summary, res)
	}

	summary.FinishedAt = time.Now()
	if r.metrics != nil {
		r.metrics.BatchDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	}
	r.recordBatch(ctx, &summary)

	logrus.Infof("Batch %s complete: %d tickets, %d comments, %d discarded, %d quarantined, %d skipped, %d hard errors",
		summary.RunID, summary.Tickets, summary.Comments, summary.Discarded, summary.Quarantined, summary.Skipped, summary.HardErrors)
	return summary, nil
}

// processOne resolves one message, converting any hard error (returned or
// panicked) into a best-effort quarantine so the batch keeps going.
func (r *BatchRunner) processOne(ctx context.Context, msg InboundMessage, summary *BatchSummary) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Errorf("Panic while processing message %s: %v", msg.ID, rec)
			res = r.recoverMessage(ctx, msg, summary, fmt.Sprintf("panic: %v", rec))
		}
	}()

	res, err := r.pipeline.Process(ctx, msg)
	if err != nil {
		logrus.Errorf("Failed to process message %s: %v", msg.ID, err)
		return r.recoverMessage(ctx, msg, summary, err.Error())
	}
	return res
}

// recoverMessage quarantines a message that failed unexpectedly. If even
// the quarantine insert fails, it alerts and leaves the message unread so
// the next batch retries it: processing twice beats losing it silently.
func (r *BatchRunner) recoverMessage(ctx context.Context, msg InboundMessage, summary *BatchSummary, errText string) Result {
	summary.HardErrors++
	summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", msg.ID, errText))
	if r.metrics != nil {
		r.metrics.HardErrors.Inc()
	}

	res, qerr := r.pipeline.Quarantine(ctx, msg, false, errText)
	if qerr != nil {
		logrus.Errorf("Failed to quarantine message %s after hard error: %v", msg.ID, qerr)
		if r.alerts != nil {
			r.alerts.Notify(ctx, "ingest", "quarantine insert failed after processing error", map[string]string{
				"message_id":       msg.ID,
				"processing_error": errText,
				"quarantine_error": qerr.Error(),
			})
		}
		return Result{}
	}
	return res
}

func (r *BatchRunner) tally(summary *BatchSummary, res Result) {
	switch res.Outcome {
	case OutcomeTicket:
		summary.Tickets++
	case OutcomeComment:
		summary.Comments++
	case OutcomeDiscarded:
		summary.Discarded++
	case OutcomeQuarantined:
		summary.Quarantined++
	case OutcomeSkipped:
		summary.Skipped++
	default:
		return
	}
	if res.EnrichmentAttempted {
		summary.EnrichmentAttempts++
		if res.EnrichmentSucceeded {
			summary.EnrichmentSuccesses++
		}
	}
	if r.metrics != nil {
		r.metrics.MessagesByOutcome.WithLabelValues(string(res.Outcome)).Inc()
		if res.EnrichmentAttempted {
			r.metrics.EnrichmentAttempts.Inc()
			if res.EnrichmentSucceeded {
				r.metrics.EnrichmentSuccesses.Inc()
			}
		}
	}
}

// recordBatch writes the audit row for this run. Audit failures are logged,
// never escalated.
func (r *BatchRunner) recordBatch(ctx context.Context, summary *BatchSummary) {
	if r.store == nil {
		return
	}
	var errorSummary string
	for i, e := range summary.Errors {
		if i > 0 {
			errorSummary += "\n"
		}
		errorSummary += e
	}
	run := &model.BatchRun{
		RunID:        summary.RunID,
		Fetched:      summary.Fetched,
		Tickets:      summary.Tickets,
		Comments:     summary.Comments,
		Discarded:    summary.Discarded,
		Quarantined:  summary.Quarantined,
		Skipped:      summary.Skipped,
		HardErrors:   summary.HardErrors,
		DurationMs:   summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		ErrorSummary: errorSummary,
	}
	if err := r.store.InsertBatchRun(ctx, run); err != nil {
		logrus.Errorf("Failed to record batch run %s: %v", summary.RunID, err)
	}
}
