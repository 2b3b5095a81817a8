package ratings

import (
	"log/slog"
	"net/http"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/handlers"
	"github.com/mandadito/backend/internal/middleware"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/services"
)

type ReceivedResponse struct {
	Summary models.RatingSummary `json:"summary"`
	Ratings []*models.Rating     `json:"ratings"`
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

// Register mounts the rating routes behind wrap, which must authenticate.
func (h *Handler) Register(mux *http.ServeMux, prefix string, wrap func(http.Handler) http.Handler) {
	participant := middleware.RequireRole(h.log, models.RoleClient, models.RoleTasker)
	mux.Handle("POST "+prefix+"/tasks/{id}/ratings", wrap(participant(http.HandlerFunc(h.Rate))))
	mux.Handle("GET "+prefix+"/tasks/{id}/ratings", wrap(http.HandlerFunc(h.ListForTask)))
	mux.Handle("GET "+prefix+"/taskers/{id}/ratings", wrap(h.received(models.RoleTasker)))
	mux.Handle("GET "+prefix+"/clients/{id}/ratings", wrap(h.received(models.RoleClient)))
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		handlers.WriteError(w, h.log, apperr.Unauthorized("authentication required"))
		return
	}
	taskID, err := handlers.PathID(r, "id")
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	var in Input
	if err := handlers.Decode(r, h.validator, services.SchemaRating, &in); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	rating, created, err := h.svc.Rate(r.Context(), actor, taskID, in)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	handlers.WriteJSON(w, status, rating)
}

func (h *Handler) ListForTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		handlers.WriteError(w, h.log, apperr.Unauthorized("authentication required"))
		return
	}
	taskID, err := handlers.PathID(r, "id")
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	list, err := h.svc.ListForTask(r.Context(), actor, taskID)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) received(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r, "id")
		if err != nil {
			handlers.WriteError(w, h.log, err)
			return
		}
		list, sum, err := h.svc.Received(r.Context(), id, role)
		if err != nil {
			handlers.WriteError(w, h.log, err)
			return
		}
		if list == nil {
			list = []*models.Rating{}
		}
		handlers.WriteJSON(w, http.StatusOK, ReceivedResponse{Summary: sum, Ratings: list})
	}
}
