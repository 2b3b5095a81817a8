package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

func loadRequest(ctx context.Context, st store.Stores, id int64) (*models.TaskRequest, error) {
	r, err := st.Requests.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("request %d not found", id)
	}
	return r, err
}

// windowClosed reports whether applications are no longer accepted at now.
func windowClosed(t *models.Task, now time.Time) bool {
	return t.ApplicationResponseWindow != nil && now.After(*t.ApplicationResponseWindow)
}

func (s *service) Apply(ctx context.Context, actor models.Identity, taskID int64) (*models.TaskRequest, error) {
	taskerID, err := actingAs(actor, models.RoleTasker)
	if err != nil {
		return nil, err
	}
	var req *models.TaskRequest
	err = s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, err := loadTask(ctx, st, taskID)
		if err != nil {
			return err
		}
		if _, err := loadApprovedTasker(ctx, st, taskerID); err != nil {
			return err
		}
		if actor.ClientID != nil && *actor.ClientID == t.ClientID {
			return apperr.Permission("cannot apply to your own task")
		}
		if t.State != models.TaskStatePending || !t.AdminApproved {
			return apperr.Conflict("task %d is not open for applications", t.ID)
		}
		if windowClosed(t, s.now()) {
			return apperr.Conflict("applications for task %d are closed", t.ID)
		}
		existing, err := st.Requests.Find(ctx, store.RequestFilter{TaskID: &t.ID, TaskerID: &taskerID, Kind: models.RequestKindApplication})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return apperr.Conflict("already applied to task %d", t.ID)
		}
		req = &models.TaskRequest{
			TaskID:   t.ID,
			TaskerID: taskerID,
			ClientID: t.ClientID,
			Kind:     models.RequestKindApplication,
			Status:   models.RequestStatusPending,
		}
		return createRequest(ctx, st, req)
	})
	if err != nil {
		return nil, err
	}
	s.obs.TaskRequest(string(req.Kind), string(req.Status))
	s.log.Info("application created", "task_id", taskID, "tasker_id", taskerID, "request_id", req.ID)
	return req, nil
}

func createRequest(ctx context.Context, st store.Stores, req *models.TaskRequest) error {
	if err := st.Requests.Create(ctx, req); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Wrap(apperr.KindConflict, err, "tasker already has a request for this task")
		}
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// Invite lets the owning client ask a specific approved tasker to take an open task.
// A tasker can be invited to the same task once.
func (s *service) Invite(ctx context.Context, actor models.Identity, taskID, taskerID int64) (*models.TaskRequest, error) {
	clientID, err := actingAs(actor, models.RoleClient)
	if err != nil {
		return nil, err
	}
	var req *models.TaskRequest
	err = s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, err := loadTask(ctx, st, taskID)
		if err != nil {
			return err
		}
		if t.ClientID != clientID {
			return apperr.Permission("task %d belongs to another client", taskID)
		}
		if t.State != models.TaskStatePending {
			return apperr.InvalidState("invite a tasker", models.TaskStatePending, t.State)
		}
		if actor.TaskerID != nil && *actor.TaskerID == taskerID {
			return apperr.Validation("cannot invite yourself")
		}
		if _, err := loadApprovedTasker(ctx, st, taskerID); err != nil {
			if apperr.Is(err, apperr.KindPermission) {
				return apperr.Validation("tasker %d is not approved", taskerID)
			}
			return err
		}
		existing, err := st.Requests.Find(ctx, store.RequestFilter{TaskID: &t.ID, TaskerID: &taskerID})
		if err != nil {
			return err
		}
		for _, r := range existing {
			switch {
			case r.Kind == models.RequestKindInvitation:
				return apperr.Conflict("tasker %d was already invited to task %d", taskerID, t.ID)
			case r.IsPending():
				return apperr.Conflict("tasker %d already applied to task %d", taskerID, t.ID)
			}
		}
		req = &models.TaskRequest{
			TaskID:   t.ID,
			TaskerID: taskerID,
			ClientID: clientID,
			Kind:     models.RequestKindInvitation,
			Status:   models.RequestStatusPending,
		}
		return createRequest(ctx, st, req)
	})
	if err != nil {
		return nil, err
	}
	s.obs.TaskRequest(string(req.Kind), string(req.Status))
	s.log.Info("invitation created", "task_id", taskID, "tasker_id", taskerID, "request_id", req.ID)
	return req, nil
}

func (s *service) ListApplications(ctx context.Context, actor models.Identity, taskID int64) ([]RequestView, error) {
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
	reqs, err := st.Requests.Find(ctx, store.RequestFilter{TaskID: &t.ID})
	if err != nil {
		return nil, err
	}
	return newEnricher(ctx, st, s.log).requestViews(reqs, false), nil
}

func (s *service) ListTaskerRequests(ctx context.Context, actor models.Identity, status models.RequestStatus) ([]RequestView, error) {
	taskerID, err := actingAs(actor, models.RoleTasker)
	if err != nil {
		return nil, err
	}
	st := s.backend.Stores()
	reqs, err := st.Requests.Find(ctx, store.RequestFilter{TaskerID: &taskerID, Status: status})
	if err != nil {
		return nil, err
	}
	return newEnricher(ctx, st, s.log).requestViews(reqs, true), nil
}

// AcceptApplication assigns the applicant. Every other pending application on
// the task is rejected and every pending invitation expires in the same unit of work.
func (s *service) AcceptApplication(ctx context.Context, actor models.Identity, taskID, requestID int64) (*models.Task, error) {
	clientID, err := actingAs(actor, models.RoleClient)
	if err != nil {
		return nil, err
	}
	var out *models.Task
	var closed []*models.TaskRequest
	err = s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, req, err := loadTaskRequest(ctx, st, taskID, requestID, models.RequestKindApplication)
		if err != nil {
			return err
		}
		if t.ClientID != clientID {
			return apperr.Permission("task %d belongs to another client", taskID)
		}
		if t.State != models.TaskStatePending {
			return apperr.InvalidState("accept an application", models.TaskStatePending, t.State)
		}
		if !req.IsPending() {
			return apperr.Conflict("application %d was already %s", req.ID, req.Status)
		}
		if _, err := loadApprovedTasker(ctx, st, req.TaskerID); err != nil {
			if apperr.Is(err, apperr.KindPermission) {
				return apperr.Conflict("applicant %d is no longer approved", req.TaskerID)
			}
			return err
		}
		closed, err = assign(ctx, st, t, req)
		out = t
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterAssign(out, closed)
	return out, nil
}

func loadTaskRequest(ctx context.Context, st store.Stores, taskID, requestID int64, kind models.RequestKind) (*models.Task, *models.TaskRequest, error) {
	t, err := loadTask(ctx, st, taskID)
	if err != nil {
		return nil, nil, err
	}
	req, err := loadRequest(ctx, st, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.TaskID != t.ID || req.Kind != kind {
		return nil, nil, apperr.NotFound("%s %d not found on task %d", kind, requestID, taskID)
	}
	return t, req, nil
}

// assign accepts req, hands the task to its tasker and closes the remaining
// pending requests. It returns every request it changed.
func assign(ctx context.Context, st store.Stores, t *models.Task, req *models.TaskRequest) ([]*models.TaskRequest, error) {
	req.Status = models.RequestStatusAccepted
	if err := st.Requests.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("accept request %d: %w", req.ID, err)
	}
	t.TaskerID = models.Int64Ptr(req.TaskerID)
	t.State = models.TaskStateAssigned
	if err := st.Tasks.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("assign task %d: %w", t.ID, err)
	}

	changed := []*models.TaskRequest{req}
	siblings, err := st.Requests.Find(ctx, store.RequestFilter{TaskID: &t.ID, Status: models.RequestStatusPending})
	if err != nil {
		return nil, err
	}
	for _, other := range siblings {
		if other.ID == req.ID {
			continue
		}
		if other.Kind == models.RequestKindInvitation {
			other.Status = models.RequestStatusExpired
		} else {
			other.Status = models.RequestStatusRejected
		}
		if err := st.Requests.Update(ctx, other); err != nil {
			return nil, fmt.Errorf("close request %d: %w", other.ID, err)
		}
		changed = append(changed, other)
	}
	return changed, nil
}

func (s *service) afterAssign(t *models.Task, changed []*models.TaskRequest) {
	s.obs.TaskTransition(string(t.State))
	for _, r := range changed {
		s.obs.TaskRequest(string(r.Kind), string(r.Status))
	}
	s.log.Info("task assigned", "task_id", t.ID, "tasker_id", *t.TaskerID, "closed_requests", len(changed)-1)
}

func (s *service) RejectApplication(ctx context.Context, actor models.Identity, taskID, requestID int64) (*models.TaskRequest, error) {
	clientID, err := actingAs(actor, models.RoleClient)
	if err != nil {
		return nil, err
	}
	var out *models.TaskRequest
	err = s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, req, err := loadTaskRequest(ctx, st, taskID, requestID, models.RequestKindApplication)
		if err != nil {
			return err
		}
		if t.ClientID != clientID {
			return apperr.Permission("task %d belongs to another client", taskID)
		}
		if !req.IsPending() {
			return apperr.Conflict("application %d was already %s", req.ID, req.Status)
		}
		req.Status = models.RequestStatusRejected
		out = req
		return st.Requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.obs.TaskRequest(string(out.Kind), string(out.Status))
	return out, nil
}

// RespondInvitation lets the invited tasker accept (which assigns the task
// exactly like accepting an application) or reject the invitation.
func (s *service) RespondInvitation(ctx context.Context, actor models.Identity, requestID int64, accept bool) (*models.TaskRequest, *models.Task, error) {
	taskerID, err := actingAs(actor, models.RoleTasker)
	if err != nil {
		return nil, nil, err
	}
	var req *models.TaskRequest
	var task *models.Task
	var closed []*models.TaskRequest
	err = s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		if req, err = loadRequest(ctx, st, requestID); err != nil {
			return err
		}
		if req.Kind != models.RequestKindInvitation {
			return apperr.NotFound("invitation %d not found", requestID)
		}
		if req.TaskerID != taskerID {
			return apperr.Permission("invitation %d is addressed to another tasker", requestID)
		}
		if !req.IsPending() {
			return apperr.Conflict("invitation %d was already %s", req.ID, req.Status)
		}
		if !accept {
			req.Status = models.RequestStatusRejected
			return st.Requests.Update(ctx, req)
		}
		t, err := loadTask(ctx, st, req.TaskID)
		if err != nil {
			return err
		}
		if t.State != models.TaskStatePending {
			return apperr.InvalidState("accept an invitation", models.TaskStatePending, t.State)
		}
		if _, err := loadApprovedTasker(ctx, st, taskerID); err != nil {
			return err
		}
		closed, err = assign(ctx, st, t, req)
		task = t
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if task != nil {
		s.afterAssign(task, closed)
	} else {
		s.obs.TaskRequest(string(req.Kind), string(req.Status))
	}
	return req, task, nil
}
