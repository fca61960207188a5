package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/splitdue/splitdue/internal/jobs"
	"github.com/splitdue/splitdue/internal/metrics"
	"github.com/splitdue/splitdue/internal/settlement"
	"github.com/splitdue/splitdue/internal/webhook"
)

// maxAttempts bounds redelivery of a failing job. The first run counts as
// attempt one.
const maxAttempts = 3

// Settler resolves a charge to a terminal status.
type Settler interface {
	Settle(ctx context.Context, chargeID string) (settlement.Outcome, error)
}

// Notifier delivers a settlement outcome to the configured destinations.
type Notifier interface {
	Dispatch(ctx context.Context, eventType, chargeID string) (webhook.Log, error)
}

// Pool drains the job queue with a fixed number of workers. Failed jobs are
// re-enqueued with an incremented attempt count until maxAttempts, then
// dropped with an error log.
type Pool struct {
	queue    jobs.Queue
	settler  Settler
	notifier Notifier
	size     int
	logger   *slog.Logger
}

// NewPool builds a pool of size workers.
func NewPool(queue jobs.Queue, settler Settler, notifier Notifier, size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		queue:    queue,
		settler:  settler,
		notifier: notifier,
		size:     size,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled and every worker has drained out.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	logger := p.logger.With("worker", id)
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, jobs.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Error("dequeue job", "error", err)
			continue
		}
		p.process(ctx, logger, job)
	}
}

func (p *Pool) process(ctx context.Context, logger *slog.Logger, job jobs.Job) {
	err := p.handle(ctx, job)
	if err == nil {
		metrics.RecordJob(job.Kind, "ok")
		return
	}

	job.Attempts++
	if job.Attempts >= maxAttempts {
		metrics.RecordJob(job.Kind, "dropped")
		logger.Error("job dropped after retries",
			"kind", job.Kind,
			"charge_id", job.ChargeID,
			"attempts", job.Attempts,
			"error", err,
		)
		return
	}

	metrics.RecordJob(job.Kind, "retried")
	logger.Warn("job failed, re-enqueueing",
		"kind", job.Kind,
		"charge_id", job.ChargeID,
		"attempt", job.Attempts,
		"error", err,
	)
	if enqErr := p.queue.Enqueue(ctx, job); enqErr != nil {
		logger.Error("re-enqueue job", "kind", job.Kind, "charge_id", job.ChargeID, "error", enqErr)
	}
}

func (p *Pool) handle(ctx context.Context, job jobs.Job) error {
	switch job.Kind {
	case jobs.KindSettleCharge:
		_, err := p.settler.Settle(ctx, job.ChargeID)
		return err
	case jobs.KindSendWebhook:
		// A dispatch that ran and recorded its outcome is done, even when the
		// log finished failed: delivery failures are not redelivered. Only a
		// dispatch that could not run or record comes back as an error.
		_, err := p.notifier.Dispatch(ctx, job.EventType, job.ChargeID)
		return err
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}
