// Package execution runs the background auto-confirm sweep. With Postgres
// storage the sweep is a River periodic job; the file engine has no job
// queue, so a cron scheduler drives the same Sweeper instead.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/robfig/cron/v3"

	"github.com/mandadito/backend/internal/tasks"
)

type AutoConfirmSweepArgs struct{}

func (AutoConfirmSweepArgs) Kind() string { return "auto_confirm_sweep" }

// Sweeper is the part of the task service the worker needs.
type Sweeper interface {
	Sweep(ctx context.Context, trigger string) (tasks.SweepResult, error)
}

type AutoConfirmSweepWorker struct {
	river.WorkerDefaults[AutoConfirmSweepArgs]
	sweeper Sweeper
	log     *slog.Logger
}

func NewAutoConfirmSweepWorker(sweeper Sweeper, log *slog.Logger) *AutoConfirmSweepWorker {
	if log == nil {
		log = slog.Default()
	}
	return &AutoConfirmSweepWorker{sweeper: sweeper, log: log}
}

func (w *AutoConfirmSweepWorker) Work(ctx context.Context, job *river.Job[AutoConfirmSweepArgs]) error {
	res, err := w.sweeper.Sweep(ctx, tasks.TriggerSchedule)
	if err != nil {
		return fmt.Errorf("auto-confirm sweep: %w", err)
	}
	w.log.Info("auto-confirm sweep job done",
		"job_id", job.ID,
		"scanned", res.Scanned,
		"confirmed", res.Confirmed,
		"completed", res.Completed,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)
	return nil
}

// Timeout bounds one sweep run; the sweep lock outlives it.
func (w *AutoConfirmSweepWorker) Timeout(*river.Job[AutoConfirmSweepArgs]) time.Duration {
	return 5 * time.Minute
}

// ParseSchedule accepts standard five-field cron specs and descriptors such
// as "@hourly" or "@every 1h".
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NewPeriodicSweep builds the periodic job that enqueues one sweep per tick
// and once when the client starts.
func NewPeriodicSweep(sched cron.Schedule) *river.PeriodicJob {
	return river.NewPeriodicJob(
		sched,
		func() (river.JobArgs, *river.InsertOpts) {
			return AutoConfirmSweepArgs{}, &river.InsertOpts{
				UniqueOpts: river.UniqueOpts{ByArgs: true, ByPeriod: time.Minute},
			}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}

// NewClient wires the sweep worker and its periodic job into a River client
// backed by pool. The caller starts and stops it.
func NewClient(pool *pgxpool.Pool, sweeper Sweeper, schedule string, log *slog.Logger) (*river.Client[pgx.Tx], error) {
	if log == nil {
		log = slog.Default()
	}
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewAutoConfirmSweepWorker(sweeper, log)); err != nil {
		return nil, fmt.Errorf("register sweep worker: %w", err)
	}
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: log,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{NewPeriodicSweep(sched)},
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return client, nil
}

// MigrateRiver brings River's own tables up to date.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	return nil
}
