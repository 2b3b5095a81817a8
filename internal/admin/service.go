// Package admin is the moderation surface: tasker approval, task
// visibility, on-demand sweeps and platform revenue.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/ledger"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
	"github.com/mandadito/backend/internal/tasks"
)

// Sweeper runs the auto-confirmation sweep. tasks.Service implements it.
type Sweeper interface {
	Sweep(ctx context.Context, trigger string) (tasks.SweepResult, error)
}

type TaskList struct {
	Tasks []tasks.TaskView `json:"tasks"`
	store.PageInfo
}

type Service interface {
	ListTaskers(ctx context.Context, approved *bool) ([]models.TaskerProfile, error)
	SetTaskerApproval(ctx context.Context, taskerID int64, approved bool) (*models.TaskerProfile, error)
	ListTasks(ctx context.Context, states []models.TaskState, page store.Page) (*TaskList, error)
	ModerateTask(ctx context.Context, taskID int64, approved bool) (*models.Task, error)
	Sweep(ctx context.Context) (tasks.SweepResult, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	stores  store.Stores
	sweeper Sweeper
	ledger  ledger.Service
	log     *slog.Logger
	now     func() time.Time
}

func NewService(stores store.Stores, sweeper Sweeper, ledger ledger.Service, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{stores: stores, sweeper: sweeper, ledger: ledger, log: log, now: func() time.Time { return time.Now().UTC() }}
}

var _ Service = (*service)(nil)

func (s *service) ListTaskers(ctx context.Context, approved *bool) ([]models.TaskerProfile, error) {
	list, err := s.stores.Taskers.List(ctx, approved)
	if err != nil {
		return nil, err
	}
	out := make([]models.TaskerProfile, 0, len(list))
	for _, tk := range list {
		out = append(out, tk.Profile())
	}
	return out, nil
}

// SetTaskerApproval approves or revokes a tasker. Revoking does not touch
// tasks already assigned to them.
func (s *service) SetTaskerApproval(ctx context.Context, taskerID int64, approved bool) (*models.TaskerProfile, error) {
	tk, err := s.stores.Taskers.GetByID(ctx, taskerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("tasker %d not found", taskerID)
	}
	if err != nil {
		return nil, err
	}
	if tk.Approved != approved {
		tk.Approved = approved
		tk.ApprovedAt = nil
		if approved {
			tk.ApprovedAt = models.TimePtr(s.now())
		}
		if err := s.stores.Taskers.Update(ctx, tk); err != nil {
			return nil, err
		}
		s.log.Info("tasker approval changed", "tasker_id", taskerID, "approved", approved)
	}
	p := tk.Profile()
	return &p, nil
}

func (s *service) ListTasks(ctx context.Context, states []models.TaskState, page store.Page) (*TaskList, error) {
	page = page.Normalize()
	list, total, err := s.stores.Tasks.List(ctx, store.TaskFilter{States: states, Limit: page.PerPage, Offset: page.Offset()})
	if err != nil {
		return nil, err
	}
	views := make([]tasks.TaskView, 0, len(list))
	for _, t := range list {
		views = append(views, tasks.NewTaskView(t))
	}
	return &TaskList{Tasks: views, PageInfo: store.NewPageInfo(page, total)}, nil
}

// ModerateTask flips the admin_approved flag. Hidden tasks stay in their
// state but leave the available listing and accept no applications.
func (s *service) ModerateTask(ctx context.Context, taskID int64, approved bool) (*models.Task, error) {
	t, err := s.stores.Tasks.GetByID(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("task %d not found", taskID)
	}
	if err != nil {
		return nil, err
	}
	if t.AdminApproved == approved {
		return t, nil
	}
	t.AdminApproved = approved
	if err := s.stores.Tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("task moderated", "task_id", taskID, "admin_approved", approved)
	return t, nil
}

func (s *service) Sweep(ctx context.Context) (tasks.SweepResult, error) {
	return s.sweeper.Sweep(ctx, tasks.TriggerAdmin)
}

func (s *service) Revenue(ctx context.Context) (decimal.Decimal, error) {
	return s.ledger.PlatformRevenue(ctx)
}
