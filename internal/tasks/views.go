package tasks

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// TaskView is a task as listed to users: the record, its derived amounts and
// best-effort summaries of both participants.
type TaskView struct {
	*models.Task
	TaskerNetAmount   decimal.Decimal     `json:"tasker_net_amount"`
	PlatformFeeAmount decimal.Decimal     `json:"platform_fee_amount"`
	Client            *models.UserSummary `json:"client"`
	Tasker            *models.UserSummary `json:"tasker"`
}

// NewTaskView derives the amounts without looking up participants.
func NewTaskView(t *models.Task) TaskView {
	return TaskView{Task: t, TaskerNetAmount: t.TaskerNetAmount(), PlatformFeeAmount: t.PlatformFeeAmount()}
}

type RequestTask struct {
	ID           int64              `json:"id"`
	Description  string             `json:"description"`
	ServiceType  models.ServiceType `json:"service_type"`
	State        models.TaskState   `json:"state"`
	AgreedAmount decimal.Decimal    `json:"agreed_amount"`
	City         string             `json:"city"`
}

type RequestView struct {
	*models.TaskRequest
	Tasker *models.UserSummary `json:"tasker"`
	Task   *RequestTask        `json:"task,omitempty"`
}

// enricher resolves participant summaries for one listing. Lookup failures
// degrade to nil so a missing profile never fails the whole request.
type enricher struct {
	ctx     context.Context
	st      store.Stores
	log     *slog.Logger
	clients map[int64]*models.UserSummary
	taskers map[int64]*models.UserSummary
}

func newEnricher(ctx context.Context, st store.Stores, log *slog.Logger) *enricher {
	return &enricher{
		ctx:     ctx,
		st:      st,
		log:     log,
		clients: make(map[int64]*models.UserSummary),
		taskers: make(map[int64]*models.UserSummary),
	}
}

func (e *enricher) client(id int64) *models.UserSummary {
	if s, ok := e.clients[id]; ok {
		return s
	}
	var s *models.UserSummary
	c, err := e.st.Clients.GetByID(e.ctx, id)
	if err != nil {
		e.log.Debug("client summary unavailable", "client_id", id, "error", err)
	} else {
		s = c.Summary()
	}
	e.clients[id] = s
	return s
}

func (e *enricher) tasker(id int64) *models.UserSummary {
	if s, ok := e.taskers[id]; ok {
		return s
	}
	var s *models.UserSummary
	tk, err := e.st.Taskers.GetByID(e.ctx, id)
	if err != nil {
		e.log.Debug("tasker summary unavailable", "tasker_id", id, "error", err)
	} else {
		s = tk.Summary()
	}
	e.taskers[id] = s
	return s
}

func (e *enricher) view(t *models.Task) TaskView {
	v := NewTaskView(t)
	v.Client = e.client(t.ClientID)
	if t.TaskerID != nil {
		v.Tasker = e.tasker(*t.TaskerID)
	}
	return v
}

func (e *enricher) views(list []*models.Task) []TaskView {
	out := make([]TaskView, 0, len(list))
	for _, t := range list {
		out = append(out, e.view(t))
	}
	return out
}

// requestViews attaches the tasker summary, and the task when withTask is set.
func (e *enricher) requestViews(reqs []*models.TaskRequest, withTask bool) []RequestView {
	out := make([]RequestView, 0, len(reqs))
	for _, r := range reqs {
		v := RequestView{TaskRequest: r, Tasker: e.tasker(r.TaskerID)}
		if withTask {
			if t, err := e.st.Tasks.GetByID(e.ctx, r.TaskID); err == nil {
				v.Task = &RequestTask{
					ID:           t.ID,
					Description:  t.Description,
					ServiceType:  t.ServiceType,
					State:        t.State,
					AgreedAmount: t.AgreedAmount,
					City:         t.Location.City,
				}
			} else {
				e.log.Debug("task summary unavailable", "task_id", r.TaskID, "error", err)
			}
		}
		out = append(out, v)
	}
	return out
}
