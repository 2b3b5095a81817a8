package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mandadito/backend/internal/tasks"
)

// Scheduler runs the sweep in-process on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	log     *slog.Logger
	initial sync.WaitGroup
}

// NewScheduler registers the sweep under schedule. Overlapping ticks are
// skipped rather than queued.
func NewScheduler(sweeper Sweeper, schedule string, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		sweeper: sweeper,
		timeout: 5 * time.Minute,
		log:     log,
	}
	s.cron.Schedule(sched, cron.FuncJob(s.run))
	return s, nil
}

// Start runs one sweep immediately and then follows the schedule.
func (s *Scheduler) Start() {
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.run()
	}()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.initial.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running sweep: %w", ctx.Err())
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := s.sweeper.Sweep(ctx, tasks.TriggerSchedule)
	if err != nil {
		s.log.Error("scheduled auto-confirm sweep failed", "error", err)
		return
	}
	s.log.Info("scheduled auto-confirm sweep done",
		"scanned", res.Scanned,
		"confirmed", res.Confirmed,
		"completed", res.Completed,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
