package auth

import (
	"log/slog"
	"net/http"

	"github.com/mandadito/backend/internal/handlers"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string          `json:"token"`
	Identity models.Identity `json:"identity"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Identity models.Identity `json:"identity"`
	Profile  interface{}     `json:"profile"`
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

// RegisterClient handles POST /api/v1/auth/register/client.
func (h *Handler) RegisterClient(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := handlers.Decode(r, h.validator, services.SchemaRegistration, &req); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	client, id, err := h.svc.RegisterClient(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, RegisterResponse{Identity: id, Profile: client.Profile()})
}

// RegisterTasker handles POST /api/v1/auth/register/tasker.
func (h *Handler) RegisterTasker(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := handlers.Decode(r, h.validator, services.SchemaRegistration, &req); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	tasker, id, err := h.svc.RegisterTasker(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, RegisterResponse{Identity: id, Profile: tasker.Profile()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := handlers.Decode(r, nil, "", &req); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		handlers.WriteError(w, h.log, errMissing("email and password are required"))
		return
	}
	token, id, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, Identity: id})
}

// ForgotPassword always answers 202 so callers cannot probe for accounts.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := handlers.Decode(r, nil, "", &req); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	if req.Email == "" {
		handlers.WriteError(w, h.log, errMissing("email is required"))
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "if the email is registered, a reset token was issued"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := handlers.Decode(r, nil, "", &req); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	if req.Token == "" || req.Password == "" {
		handlers.WriteError(w, h.log, errMissing("token and password are required"))
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		handlers.WriteError(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
