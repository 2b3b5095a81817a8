package profiles

import (
	"log/slog"
	"net/http"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/handlers"
	"github.com/mandadito/backend/internal/middleware"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/services"
)

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

func (h *Handler) Register(mux *http.ServeMux, prefix string, wrap func(http.Handler) http.Handler) {
	mux.Handle("GET "+prefix+"/me", wrap(http.HandlerFunc(h.GetMe)))
	mux.Handle("PATCH "+prefix+"/me/client", wrap(http.HandlerFunc(h.UpdateClient)))
	mux.Handle("PATCH "+prefix+"/me/tasker", wrap(http.HandlerFunc(h.UpdateTasker)))
	mux.Handle("GET "+prefix+"/me/earnings", wrap(middleware.RequireRole(h.log, models.RoleTasker)(http.HandlerFunc(h.Earnings))))
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		handlers.WriteError(w, h.log, apperr.Unauthorized("authentication required"))
	}
	return id, ok
}

// GetMe handles GET /api/v1/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	me, err := h.svc.Me(r.Context(), actor)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, me)
}

// UpdateClient handles PATCH /api/v1/me/client.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var u Update
	if err := handlers.Decode(r, h.validator, services.SchemaProfile, &u); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	p, err := h.svc.UpdateClient(r.Context(), actor, u)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, p)
}

// UpdateTasker handles PATCH /api/v1/me/tasker.
func (h *Handler) UpdateTasker(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var u Update
	if err := handlers.Decode(r, h.validator, services.SchemaProfile, &u); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	p, err := h.svc.UpdateTasker(r.Context(), actor, u)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, p)
}

// Earnings handles GET /api/v1/me/earnings.
func (h *Handler) Earnings(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Earnings(r.Context(), actor)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, e)
}
