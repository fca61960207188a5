package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/splitdue/splitdue/internal/logging"
)

type countingProcessor struct {
	runs atomic.Int32
}

func (p *countingProcessor) ProcessDue(context.Context) (int, error) {
	p.runs.Add(1)
	return 0, nil
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New(&countingProcessor{}, "not a schedule", logging.Discard()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNewAcceptsDailySchedule(t *testing.T) {
	if _, err := New(&countingProcessor{}, "0 9 * * *", logging.Discard()); err != nil {
		t.Fatalf("daily schedule rejected: %v", err)
	}
}

func TestSchedulerRunsProcessor(t *testing.T) {
	p := &countingProcessor{}
	s, err := New(p, "@every 10ms", logging.Discard())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("processor never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
