package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DueProcessor runs one due sweep and reports how many charges it enqueued.
type DueProcessor interface {
	ProcessDue(ctx context.Context) (int, error)
}

// Scheduler triggers the installment due sweep on a cron schedule, evaluated
// in UTC so the run time does not drift with the host timezone.
type Scheduler struct {
	cron      *cron.Cron
	processor DueProcessor
	logger    *slog.Logger
}

// New builds a scheduler running svc.ProcessDue per the cron expression
// (standard five-field syntax, e.g. "0 9 * * *" for 09:00 UTC daily).
func New(processor DueProcessor, schedule string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		processor: processor,
		logger:    logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	start := time.Now()
	n, err := s.processor.ProcessDue(context.Background())
	if err != nil {
		s.logger.Error("due sweep failed", "error", err)
		return
	}
	s.logger.Info("due sweep complete", "enqueued", n, "duration", time.Since(start))
}
