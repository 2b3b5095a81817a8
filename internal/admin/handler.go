package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/handlers"
	"github.com/mandadito/backend/internal/middleware"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

type ModerationRequest struct {
	AdminApproved *bool `json:"admin_approved"`
}

type RevenueResponse struct {
	PlatformFees decimal.Decimal `json:"platform_fees"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Register mounts the admin routes; every one requires the admin role.
func (h *Handler) Register(mux *http.ServeMux, prefix string, wrap func(http.Handler) http.Handler) {
	adminOnly := middleware.RequireRole(h.log, models.RoleAdmin)
	handle := func(pattern string, fn http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+prefix+path, wrap(adminOnly(fn)))
	}
	handle("GET /admin/taskers", h.ListTaskers)
	handle("POST /admin/taskers/{id}/approve", h.approval(true))
	handle("POST /admin/taskers/{id}/revoke", h.approval(false))
	handle("GET /admin/tasks", h.ListTasks)
	handle("POST /admin/tasks/{id}/moderation", h.ModerateTask)
	handle("POST /admin/sweeps/auto-confirm", h.Sweep)
	handle("GET /admin/revenue", h.Revenue)
}

// ListTaskers handles GET /api/v1/admin/taskers?approved=true|false.
func (h *Handler) ListTaskers(w http.ResponseWriter, r *http.Request) {
	var approved *bool
	if raw := r.URL.Query().Get("approved"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			handlers.WriteError(w, h.log, apperr.Validation("invalid approved"))
			return
		}
		approved = &b
	}
	list, err := h.svc.ListTaskers(r.Context(), approved)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) approval(approved bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r, "id")
		if err != nil {
			handlers.WriteError(w, h.log, err)
			return
		}
		p, err := h.svc.SetTaskerApproval(r.Context(), id, approved)
		if err != nil {
			handlers.WriteError(w, h.log, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, p)
	}
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var states []models.TaskState
	if raw := r.URL.Query().Get("state"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s := models.TaskState(strings.ToUpper(strings.TrimSpace(part)))
			if !s.Valid() {
				handlers.WriteError(w, h.log, apperr.Validation("unknown state %q", part))
				return
			}
			states = append(states, s)
		}
	}
	page, err := handlers.QueryInt(r, "page", 1)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	perPage, err := handlers.QueryInt(r, "per_page", store.DefaultPerPage)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	list, err := h.svc.ListTasks(r.Context(), states, store.Page{Page: page, PerPage: perPage})
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ModerateTask(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r, "id")
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	var body ModerationRequest
	if err := handlers.Decode(r, nil, "", &body); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	if body.AdminApproved == nil {
		handlers.WriteError(w, h.log, apperr.Validation("admin_approved is required"))
		return
	}
	t, err := h.svc.ModerateTask(r.Context(), id, *body.AdminApproved)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, t)
}

// Sweep handles POST /api/v1/admin/sweeps/auto-confirm.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Sweep(r.Context())
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.Revenue(r.Context())
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, RevenueResponse{PlatformFees: total})
}
