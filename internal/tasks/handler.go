package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/handlers"
	"github.com/mandadito/backend/internal/middleware"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/services"
	"github.com/mandadito/backend/internal/store"
)

const defaultCandidateLimit = 10

type InviteRequest struct {
	TaskerID int64 `json:"tasker_id"`
}

type InvitationResponse struct {
	Request *models.TaskRequest `json:"request"`
	Task    *TaskView           `json:"task,omitempty"`
}

type Handler struct {
	svc       Service
	validator *services.Validator
	log       *slog.Logger
}

func NewHandler(svc Service, validator *services.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

// Register mounts the task routes. wrap is applied to every route and is
// expected to authenticate; role gates are applied here.
func (h *Handler) Register(mux *http.ServeMux, prefix string, wrap func(http.Handler) http.Handler) {
	client := middleware.RequireRole(h.log, models.RoleClient)
	tasker := middleware.RequireRole(h.log, models.RoleTasker)
	anyone := func(next http.Handler) http.Handler { return next }

	routes := []struct {
		pattern string
		gate    func(http.Handler) http.Handler
		fn      http.HandlerFunc
	}{
		{"POST /tasks", client, h.Create},
		{"GET /tasks/mine", client, h.ListMine},
		{"GET /tasks/available", tasker, h.ListAvailable},
		{"GET /tasks/{id}", anyone, h.Get},
		{"POST /tasks/{id}/applications", tasker, h.Apply},
		{"GET /tasks/{id}/applications", client, h.ListApplications},
		{"POST /tasks/{id}/applications/{requestID}/accept", client, h.AcceptApplication},
		{"POST /tasks/{id}/applications/{requestID}/reject", client, h.RejectApplication},
		{"POST /tasks/{id}/invitations", client, h.Invite},
		{"GET /tasks/{id}/candidates", client, h.Candidates},
		{"POST /tasks/{id}/start", tasker, h.Start},
		{"POST /tasks/{id}/complete", tasker, h.Complete},
		{"POST /tasks/{id}/confirm-payment", client, h.ConfirmPayment},
		{"POST /tasks/{id}/confirm-payment-received", tasker, h.ConfirmReceived},
		{"GET /taskers/me/tasks", tasker, h.ListAssigned},
		{"GET /taskers/me/requests", tasker, h.ListTaskerRequests},
		{"POST /requests/{requestID}/accept", tasker, h.AcceptInvitation},
		{"POST /requests/{requestID}/reject", tasker, h.RejectInvitation},
	}
	for _, rt := range routes {
		method, path, _ := strings.Cut(rt.pattern, " ")
		mux.Handle(method+" "+prefix+path, wrap(rt.gate(rt.fn)))
	}
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		handlers.WriteError(w, h.log, apperr.Unauthorized("authentication required"))
	}
	return id, ok
}

// taskID reads {id}; on failure the error is already written.
func (h *Handler) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := handlers.PathID(r, "id")
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := handlers.Decode(r, h.validator, services.SchemaTask, &in); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	t, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, NewTaskView(t))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	states, err := parseStates(r)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	list, err := h.svc.ListMine(r.Context(), actor, states)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	states, err := parseStates(r)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	list, err := h.svc.ListAssigned(r.Context(), actor, states)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	q, err := parseAvailableQuery(r)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	page, err := h.svc.ListAvailable(r.Context(), actor, q)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	req, err := h.svc.Apply(r.Context(), actor, id)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	var body InviteRequest
	if err := handlers.Decode(r, nil, "", &body); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	if body.TaskerID <= 0 {
		handlers.WriteError(w, h.log, apperr.Validation("tasker_id is required"))
		return
	}
	req, err := h.svc.Invite(r.Context(), actor, id, body.TaskerID)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListApplications(r.Context(), actor, id)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ListTaskerRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	status := models.RequestStatus(strings.ToUpper(r.URL.Query().Get("status")))
	list, err := h.svc.ListTaskerRequests(r.Context(), actor, status)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) AcceptApplication(w http.ResponseWriter, r *http.Request) {
	h.decideApplication(w, r, true)
}

func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	h.decideApplication(w, r, false)
}

func (h *Handler) decideApplication(w http.ResponseWriter, r *http.Request, accept bool) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	requestID, err := handlers.PathID(r, "requestID")
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	if !accept {
		req, err := h.svc.RejectApplication(r.Context(), actor, id, requestID)
		if err != nil {
			handlers.WriteError(w, h.log, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, req)
		return
	}
	t, err := h.svc.AcceptApplication(r.Context(), actor, id, requestID)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, NewTaskView(t))
}

func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.respondInvitation(w, r, true)
}

func (h *Handler) RejectInvitation(w http.ResponseWriter, r *http.Request) {
	h.respondInvitation(w, r, false)
}

func (h *Handler) respondInvitation(w http.ResponseWriter, r *http.Request, accept bool) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	requestID, err := handlers.PathID(r, "requestID")
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	req, t, err := h.svc.RespondInvitation(r.Context(), actor, requestID, accept)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	resp := InvitationResponse{Request: req}
	if t != nil {
		v := NewTaskView(t)
		resp.Task = &v
	}
	handlers.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	limit, err := handlers.QueryInt(r, "limit", defaultCandidateLimit)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	list, err := h.svc.Candidates(r.Context(), actor, id, limit)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.Start)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.Complete)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.ConfirmPayment)
}

func (h *Handler) ConfirmReceived(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.ConfirmReceived)
}

type stepFunc func(ctx context.Context, actor models.Identity, taskID int64) (*models.Task, error)

func (h *Handler) step(w http.ResponseWriter, r *http.Request, fn stepFunc) {
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	t, err := fn(r.Context(), actor, id)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, NewTaskView(t))
}

func parseStates(r *http.Request) ([]models.TaskState, error) {
	raw := r.URL.Query().Get("state")
	if raw == "" {
		return nil, nil
	}
	var states []models.TaskState
	for _, part := range strings.Split(raw, ",") {
		s := models.TaskState(strings.ToUpper(strings.TrimSpace(part)))
		if !s.Valid() {
			return nil, apperr.Validation("unknown state %q", part)
		}
		states = append(states, s)
	}
	return states, nil
}

func parseAvailableQuery(r *http.Request) (AvailableQuery, error) {
	q := r.URL.Query()
	var out AvailableQuery
	var err error

	if st := strings.ToUpper(q.Get("service_type")); st != "" {
		out.ServiceType = models.ServiceType(st)
		if !out.ServiceType.Valid() {
			return out, apperr.Validation("unknown service_type %q", st)
		}
	}
	if out.MinPrice, err = queryDecimal(q.Get("min_price"), "min_price"); err != nil {
		return out, err
	}
	if out.MaxPrice, err = queryDecimal(q.Get("max_price"), "max_price"); err != nil {
		return out, err
	}
	if out.DateFrom, err = queryTime(q.Get("date_from"), "date_from", false); err != nil {
		return out, err
	}
	if out.DateTo, err = queryTime(q.Get("date_to"), "date_to", true); err != nil {
		return out, err
	}
	if raw := q.Get("requires_license"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return out, apperr.Validation("invalid requires_license")
		}
		out.RequiresLicense = &b
	}
	out.City = q.Get("city")
	if out.Page.Page, err = handlers.QueryInt(r, "page", 1); err != nil {
		return out, err
	}
	if out.Page.PerPage, err = handlers.QueryInt(r, "per_page", store.DefaultPerPage); err != nil {
		return out, err
	}
	return out, nil
}

func queryDecimal(raw, name string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Validation("invalid %s", name)
	}
	return &d, nil
}

// queryTime accepts RFC 3339 or a plain date. A plain date_to covers the whole day.
func queryTime(raw, name string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Validation("invalid %s", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
