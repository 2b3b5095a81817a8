package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mandadito/backend/internal/lock"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

const (
	sweepLockKey = "auto-confirm-sweep"
	sweepLockTTL = 10 * time.Minute
)

// Sweep triggers, used as log and metric labels.
const (
	TriggerSchedule = "schedule"
	TriggerAdmin    = "admin"
	TriggerCLI      = "cli"
)

type SweepResult struct {
	Scanned   int `json:"scanned"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	// Skipped is set when another sweep held the lock.
	Skipped bool `json:"skipped"`
}

// Sweep auto-confirms every task whose client let the confirmation window
// lapse. Each task is handled in its own unit of work; a failing task is
// logged and the sweep moves on.
func (s *service) Sweep(ctx context.Context, trigger string) (SweepResult, error) {
	var res SweepResult
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, sweepLockKey, sweepLockTTL)
		if errors.Is(err, lock.ErrHeld) {
			s.log.Info("auto-confirm sweep skipped, another sweep is running", "trigger", trigger)
			res.Skipped = true
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("acquire sweep lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release sweep lock", "error", err)
			}
		}()
	}

	started := time.Now()
	cutoff := s.now().Add(-s.autoConfirmAfter)
	due, _, err := s.backend.Stores().Tasks.List(ctx, store.TaskFilter{
		States:          []models.TaskState{models.TaskStateAwaitingPaymentConfirmation},
		CompletedBefore: &cutoff,
	})
	if err != nil {
		return res, fmt.Errorf("list tasks awaiting confirmation: %w", err)
	}

	for _, t := range due {
		if t.ClientConfirmed() {
			continue
		}
		res.Scanned++
		if err := ctx.Err(); err != nil {
			return res, err
		}
		updated, err := s.autoConfirm(ctx, t.ID)
		if err != nil {
			res.Failed++
			s.log.Error("auto-confirm task failed", "task_id", t.ID, "error", err)
			continue
		}
		if updated == nil {
			continue
		}
		res.Confirmed++
		if updated.State == models.TaskStateCompleted {
			res.Completed++
			s.obs.TaskTransition(string(updated.State))
		}
		s.log.Info("task auto-confirmed", "task_id", updated.ID, "state", updated.State)
	}

	s.obs.SweepFinished(trigger, res.Confirmed, res.Completed, res.Failed, time.Since(started))
	s.log.Info("auto-confirm sweep finished",
		"trigger", trigger,
		"scanned", res.Scanned,
		"confirmed", res.Confirmed,
		"completed", res.Completed,
		"failed", res.Failed,
	)
	return res, nil
}

// autoConfirm re-reads the task inside a unit of work so a concurrent manual
// confirmation wins. It returns nil when there was nothing to do.
func (s *service) autoConfirm(ctx context.Context, taskID int64) (*models.Task, error) {
	var out *models.Task
	err := s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, err := loadTask(ctx, st, taskID)
		if err != nil {
			return err
		}
		updated, ok := TryAutoConfirm(t, s.now(), s.autoConfirmAfter)
		if !ok {
			return nil
		}
		if err := s.save(ctx, st, updated, t.State); err != nil {
			return err
		}
		out = updated
		return nil
	})
	return out, err
}
