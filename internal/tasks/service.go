// Package tasks owns the task lifecycle: creation, applications and
// invitations, assignment, work progress, the two-sided payment confirmation
// and the auto-confirmation sweep.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/lock"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/services"
	"github.com/mandadito/backend/internal/store"
)

// DefaultAutoConfirmAfter is how long a client has to confirm payment before
// the platform confirms on their behalf.
const DefaultAutoConfirmAfter = 48 * time.Hour

// Observer receives lifecycle events. metrics.Recorder implements it.
type Observer interface {
	TaskTransition(to string)
	TaskRequest(kind, status string)
	SweepFinished(trigger string, confirmed, completed, failed int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) TaskTransition(string)                             {}
func (nopObserver) TaskRequest(string, string)                        {}
func (nopObserver) SweepFinished(string, int, int, int, time.Duration) {}

type Options struct {
	// FeeRate is fixed on each task at creation. Zero means models.DefaultPlatformFeeRate.
	FeeRate          decimal.Decimal
	AutoConfirmAfter time.Duration
	// Locker, when set, keeps concurrent sweeps from overlapping.
	Locker   lock.Locker
	Matcher  *services.Matcher
	Observer Observer
}

type CreateInput struct {
	ServiceType               models.ServiceType `json:"service_type"`
	Description               string             `json:"description"`
	Location                  models.Location    `json:"location"`
	RequestedAt               time.Time          `json:"requested_datetime"`
	RequiresLicense           bool               `json:"requires_license"`
	AgreedAmount              decimal.Decimal    `json:"agreed_amount"`
	ApplicationResponseWindow *time.Time         `json:"application_response_window"`
}

// AvailableQuery filters the tasks an approved tasker can apply to.
type AvailableQuery struct {
	ServiceType     models.ServiceType
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	DateFrom        *time.Time
	DateTo          *time.Time
	RequiresLicense *bool
	City            string
	Page            store.Page
}

type TaskPage struct {
	Tasks []TaskView `json:"tasks"`
	store.PageInfo
}

type Service interface {
	Create(ctx context.Context, actor models.Identity, in CreateInput) (*models.Task, error)
	Get(ctx context.Context, actor models.Identity, taskID int64) (*TaskView, error)
	ListMine(ctx context.Context, actor models.Identity, states []models.TaskState) ([]TaskView, error)
	ListAvailable(ctx context.Context, actor models.Identity, q AvailableQuery) (*TaskPage, error)
	ListAssigned(ctx context.Context, actor models.Identity, states []models.TaskState) ([]TaskView, error)

	Apply(ctx context.Context, actor models.Identity, taskID int64) (*models.TaskRequest, error)
	Invite(ctx context.Context, actor models.Identity, taskID, taskerID int64) (*models.TaskRequest, error)
	ListApplications(ctx context.Context, actor models.Identity, taskID int64) ([]RequestView, error)
	ListTaskerRequests(ctx context.Context, actor models.Identity, status models.RequestStatus) ([]RequestView, error)
	AcceptApplication(ctx context.Context, actor models.Identity, taskID, requestID int64) (*models.Task, error)
	RejectApplication(ctx context.Context, actor models.Identity, taskID, requestID int64) (*models.TaskRequest, error)
	RespondInvitation(ctx context.Context, actor models.Identity, requestID int64, accept bool) (*models.TaskRequest, *models.Task, error)
	Candidates(ctx context.Context, actor models.Identity, taskID int64, limit int) ([]services.Candidate, error)

	Start(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error)
	Complete(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error)
	ConfirmPayment(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error)
	ConfirmReceived(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error)

	Sweep(ctx context.Context, trigger string) (SweepResult, error)
}

type service struct {
	backend          store.Backend
	settlement       *services.SettlementService
	feeRate          decimal.Decimal
	autoConfirmAfter time.Duration
	locker           lock.Locker
	matcher          *services.Matcher
	obs              Observer
	log              *slog.Logger
	now              func() time.Time
}

func NewService(backend store.Backend, settlement *services.SettlementService, opts Options, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	if settlement == nil {
		settlement = services.NewSettlementService()
	}
	if opts.FeeRate.IsZero() {
		opts.FeeRate = models.DefaultPlatformFeeRate
	}
	if opts.AutoConfirmAfter <= 0 {
		opts.AutoConfirmAfter = DefaultAutoConfirmAfter
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &service{
		backend:          backend,
		settlement:       settlement,
		feeRate:          opts.FeeRate,
		autoConfirmAfter: opts.AutoConfirmAfter,
		locker:           opts.Locker,
		matcher:          opts.Matcher,
		obs:              opts.Observer,
		log:              log,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

var _ Service = (*service)(nil)

// actingAs returns the record id of role when it is the caller's active role.
func actingAs(actor models.Identity, role models.Role) (int64, error) {
	if actor.ActiveRole != role || !actor.Holds(role) {
		return 0, apperr.Permission("only a %s can do this", role)
	}
	return actor.ActiveID(), nil
}

func loadTask(ctx context.Context, st store.Stores, id int64) (*models.Task, error) {
	t, err := st.Tasks.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("task %d not found", id)
	}
	return t, err
}

func loadApprovedTasker(ctx context.Context, st store.Stores, id int64) (*models.Tasker, error) {
	tk, err := st.Taskers.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("tasker %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if !tk.Approved {
		return nil, apperr.Permission("tasker %d is not approved", id)
	}
	return tk, nil
}

func (s *service) Create(ctx context.Context, actor models.Identity, in CreateInput) (*models.Task, error) {
	clientID, err := actingAs(actor, models.RoleClient)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := validateCreate(&in, now); err != nil {
		return nil, err
	}
	t := &models.Task{
		ClientID:                  clientID,
		ServiceType:               in.ServiceType,
		Description:               in.Description,
		Location:                  in.Location,
		RequestedAt:               in.RequestedAt.UTC(),
		RequiresLicense:           in.RequiresLicense,
		AgreedAmount:              in.AgreedAmount,
		PlatformFeeRate:           s.feeRate,
		State:                     models.TaskStatePending,
		ApplicationResponseWindow: in.ApplicationResponseWindow,
		AdminApproved:             true,
	}
	if err := s.backend.Stores().Tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.obs.TaskTransition(string(t.State))
	s.log.Info("task created", "task_id", t.ID, "client_id", clientID, "service_type", t.ServiceType)
	return t, nil
}

func validateCreate(in *CreateInput, now time.Time) error {
	in.Description = strings.TrimSpace(in.Description)
	in.Location.Address = strings.TrimSpace(in.Location.Address)
	in.Location.City = strings.TrimSpace(in.Location.City)
	switch {
	case !in.ServiceType.Valid():
		return apperr.Validation("service_type must be %s or %s", models.ServiceTypeExpress, models.ServiceTypeSpecialist)
	case in.Description == "":
		return apperr.Validation("description is required")
	case in.Location.Address == "" || in.Location.City == "":
		return apperr.Validation("location address and city are required")
	case in.RequestedAt.IsZero():
		return apperr.Validation("requested_datetime is required")
	case in.RequestedAt.Before(now):
		return apperr.Validation("requested_datetime must not be in the past")
	case !in.AgreedAmount.IsPositive():
		return apperr.Validation("agreed_amount must be greater than zero")
	}
	if w := in.ApplicationResponseWindow; w != nil {
		if !w.After(now) {
			return apperr.Validation("application_response_window must be in the future")
		}
		utc := w.UTC()
		in.ApplicationResponseWindow = &utc
	}
	return nil
}

// Get returns a task to its participants, admins, taskers holding a request
// on it, and approved taskers while it is open.
func (s *service) Get(ctx context.Context, actor models.Identity, taskID int64) (*TaskView, error) {
	st := s.backend.Stores()
	t, err := loadTask(ctx, st, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, st, actor, t); err != nil {
		return nil, err
	}
	v := newEnricher(ctx, st, s.log).view(t)
	return &v, nil
}

func (s *service) canView(ctx context.Context, st store.Stores, actor models.Identity, t *models.Task) error {
	switch actor.ActiveRole {
	case models.RoleAdmin:
		if actor.Holds(models.RoleAdmin) {
			return nil
		}
	case models.RoleClient:
		if actor.ClientID != nil && *actor.ClientID == t.ClientID {
			return nil
		}
	case models.RoleTasker:
		if actor.TaskerID == nil {
			break
		}
		if t.IsAssignedTo(*actor.TaskerID) {
			return nil
		}
		reqs, err := st.Requests.Find(ctx, store.RequestFilter{TaskID: &t.ID, TaskerID: actor.TaskerID})
		if err != nil {
			return err
		}
		if len(reqs) > 0 {
			return nil
		}
		if t.State == models.TaskStatePending && t.AdminApproved {
			if _, err := loadApprovedTasker(ctx, st, *actor.TaskerID); err == nil {
				return nil
			}
		}
	}
	return apperr.Permission("not allowed to view task %d", t.ID)
}

func (s *service) ListMine(ctx context.Context, actor models.Identity, states []models.TaskState) ([]TaskView, error) {
	clientID, err := actingAs(actor, models.RoleClient)
	if err != nil {
		return nil, err
	}
	st := s.backend.Stores()
	list, _, err := st.Tasks.List(ctx, store.TaskFilter{ClientID: &clientID, States: states})
	if err != nil {
		return nil, err
	}
	return newEnricher(ctx, st, s.log).views(list), nil
}

func (s *service) ListAssigned(ctx context.Context, actor models.Identity, states []models.TaskState) ([]TaskView, error) {
	taskerID, err := actingAs(actor, models.RoleTasker)
	if err != nil {
		return nil, err
	}
	st := s.backend.Stores()
	list, _, err := st.Tasks.List(ctx, store.TaskFilter{TaskerID: &taskerID, States: states})
	if err != nil {
		return nil, err
	}
	return newEnricher(ctx, st, s.log).views(list), nil
}

// ListAvailable pages through open, moderated tasks the caller does not own.
func (s *service) ListAvailable(ctx context.Context, actor models.Identity, q AvailableQuery) (*TaskPage, error) {
	taskerID, err := actingAs(actor, models.RoleTasker)
	if err != nil {
		return nil, err
	}
	st := s.backend.Stores()
	if _, err := loadApprovedTasker(ctx, st, taskerID); err != nil {
		return nil, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, apperr.Validation("min_price must not exceed max_price")
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return nil, apperr.Validation("date_from must not be after date_to")
	}
	page := q.Page.Normalize()
	f := store.TaskFilter{
		ExcludeClientID:   actor.ClientID,
		States:            []models.TaskState{models.TaskStatePending},
		ServiceType:       q.ServiceType,
		MinAmount:         q.MinPrice,
		MaxAmount:         q.MaxPrice,
		RequestedFrom:     q.DateFrom,
		RequestedTo:       q.DateTo,
		RequiresLicense:   q.RequiresLicense,
		City:              strings.TrimSpace(q.City),
		AdminApprovedOnly: true,
		Limit:             page.PerPage,
		Offset:            page.Offset(),
	}
	list, total, err := st.Tasks.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: newEnricher(ctx, st, s.log).views(list), PageInfo: store.NewPageInfo(page, total)}, nil
}

func (s *service) Candidates(ctx context.Context, actor models.Identity, taskID int64, limit int) ([]services.Candidate, error) {
	clientID, err := actingAs(actor, models.RoleClient)
	if err != nil {
		return nil, err
	}
	st := s.backend.Stores()
	t, err := loadTask(ctx, st, taskID)
	if err != nil {
		return nil, err
	}
	if t.ClientID != clientID {
		return nil, apperr.Permission("task %d belongs to another client", taskID)
	}
	if t.State != models.TaskStatePending {
		return nil, apperr.InvalidState("suggest taskers", models.TaskStatePending, t.State)
	}
	if s.matcher == nil {
		return nil, errors.New("tasker matching is not configured")
	}
	reqs, err := st.Requests.Find(ctx, store.RequestFilter{TaskID: &t.ID})
	if err != nil {
		return nil, err
	}
	exclude := make(map[int64]bool, len(reqs)+1)
	for _, r := range reqs {
		exclude[r.TaskerID] = true
	}
	if actor.TaskerID != nil {
		exclude[*actor.TaskerID] = true
	}
	return s.matcher.SuggestTaskers(ctx, t, exclude, limit)
}
