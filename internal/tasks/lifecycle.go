package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// TryAutoConfirm applies the auto-confirmation rule to t at now. When the task
// is awaiting payment confirmation, the client has not confirmed, and work
// was completed at least after ago, it returns an updated copy with the client
// side confirmed by the platform (and COMPLETED when the tasker already
// confirmed receipt). Otherwise it returns nil, false. t is never modified.
func TryAutoConfirm(t *models.Task, now time.Time, after time.Duration) (*models.Task, bool) {
	if t.State != models.TaskStateAwaitingPaymentConfirmation || t.ClientConfirmed() || t.WorkCompletedAt == nil {
		return nil, false
	}
	if now.Sub(*t.WorkCompletedAt) < after {
		return nil, false
	}
	out := t.Clone()
	out.ClientPaymentConfirmedAt = models.TimePtr(now)
	out.AutoConfirmed = true
	promote(out)
	return out, true
}

// promote completes the task once both sides of the payment handshake are done.
func promote(t *models.Task) {
	if t.State == models.TaskStateAwaitingPaymentConfirmation && t.BothConfirmed() {
		t.State = models.TaskStateCompleted
	}
}

// save persists t and books the settlement when it has just reached COMPLETED.
func (s *service) save(ctx context.Context, st store.Stores, t *models.Task, from models.TaskState) error {
	if err := st.Tasks.Update(ctx, t); err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if t.State == models.TaskStateCompleted && from != models.TaskStateCompleted {
		if err := s.settlement.SettleTask(ctx, st.Ledger, t); err != nil {
			return fmt.Errorf("settle task %d: %w", t.ID, err)
		}
	}
	return nil
}

// transition runs one tasker- or client-driven step inside a unit of work.
// step sees the loaded task after the actor check and mutates it in place;
// returning changed=false leaves the store untouched.
func (s *service) transition(ctx context.Context, taskID int64, authorize func(*models.Task) error, step func(t *models.Task, now time.Time) (changed bool, err error)) (*models.Task, error) {
	var out *models.Task
	var from models.TaskState
	err := s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, err := loadTask(ctx, st, taskID)
		if err != nil {
			return err
		}
		if err := authorize(t); err != nil {
			return err
		}
		from = t.State
		changed, err := step(t, s.now())
		if err != nil {
			return err
		}
		out = t
		if !changed {
			return nil
		}
		return s.save(ctx, st, t, from)
	})
	if err != nil {
		return nil, err
	}
	if out.State != from {
		s.obs.TaskTransition(string(out.State))
		s.log.Info("task state changed", "task_id", out.ID, "from", from, "to", out.State, "auto_confirmed", out.AutoConfirmed)
	}
	return out, nil
}

func assignedTasker(actor models.Identity) (func(*models.Task) error, error) {
	taskerID, err := actingAs(actor, models.RoleTasker)
	if err != nil {
		return nil, err
	}
	return func(t *models.Task) error {
		if !t.IsAssignedTo(taskerID) {
			return apperr.Permission("task %d is not assigned to you", t.ID)
		}
		return nil
	}, nil
}

func owningClient(actor models.Identity) (func(*models.Task) error, error) {
	clientID, err := actingAs(actor, models.RoleClient)
	if err != nil {
		return nil, err
	}
	return func(t *models.Task) error {
		if t.ClientID != clientID {
			return apperr.Permission("task %d belongs to another client", t.ID)
		}
		return nil
	}, nil
}

func (s *service) Start(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error) {
	authorize, err := assignedTasker(actor)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, taskID, authorize, func(t *models.Task, now time.Time) (bool, error) {
		if t.State != models.TaskStateAssigned {
			return false, apperr.InvalidState("start work", models.TaskStateAssigned, t.State)
		}
		t.State = models.TaskStateInProgress
		t.WorkStartedAt = models.TimePtr(now)
		return true, nil
	})
}

func (s *service) Complete(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error) {
	authorize, err := assignedTasker(actor)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, taskID, authorize, func(t *models.Task, now time.Time) (bool, error) {
		if t.State != models.TaskStateInProgress {
			return false, apperr.InvalidState("complete work", models.TaskStateInProgress, t.State)
		}
		t.State = models.TaskStateAwaitingPaymentConfirmation
		t.WorkCompletedAt = models.TimePtr(now)
		return true, nil
	})
}

// ConfirmPayment records the client's confirmation that they paid. The
// auto-confirmation rule runs first, so a stale task is corrected before the
// request is judged. Confirming again is a no-op.
func (s *service) ConfirmPayment(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error) {
	authorize, err := owningClient(actor)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, taskID, authorize, func(t *models.Task, now time.Time) (bool, error) {
		if auto, ok := TryAutoConfirm(t, now, s.autoConfirmAfter); ok {
			*t = *auto
			return true, nil
		}
		if t.ClientConfirmed() {
			return false, nil
		}
		if t.State != models.TaskStateAwaitingPaymentConfirmation {
			return false, apperr.InvalidState("confirm payment", models.TaskStateAwaitingPaymentConfirmation, t.State)
		}
		t.ClientPaymentConfirmedAt = models.TimePtr(now)
		t.AutoConfirmed = false
		promote(t)
		return true, nil
	})
}

// ConfirmReceived records the tasker's confirmation that the payment arrived.
// Repeating it, or calling it on a completed task, is a no-op.
func (s *service) ConfirmReceived(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error) {
	authorize, err := assignedTasker(actor)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, taskID, authorize, func(t *models.Task, now time.Time) (bool, error) {
		if t.TaskerPaymentReceived || t.State == models.TaskStateCompleted {
			return false, nil
		}
		if t.State != models.TaskStateAwaitingPaymentConfirmation {
			return false, apperr.InvalidState("confirm payment received", models.TaskStateAwaitingPaymentConfirmation, t.State)
		}
		t.TaskerPaymentReceived = true
		t.TaskerPaymentReceivedAt = models.TimePtr(now)
		promote(t)
		return true, nil
	})
}
