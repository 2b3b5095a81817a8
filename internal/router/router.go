package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/mandadito/backend/internal/admin"
	"github.com/mandadito/backend/internal/auth"
	"github.com/mandadito/backend/internal/handlers"
	"github.com/mandadito/backend/internal/middleware"
	"github.com/mandadito/backend/internal/profiles"
	"github.com/mandadito/backend/internal/ratings"
	"github.com/mandadito/backend/internal/tasks"
)

const base = "/api/v1"

// Routes is everything the HTTP surface is assembled from.
type Routes struct {
	Auth     *auth.Handler
	Tasks    *tasks.Handler
	Ratings  *ratings.Handler
	Profiles *profiles.Handler
	Admin    *admin.Handler

	Tokens  middleware.TokenValidator
	Metrics http.Handler
	HTTPObs middleware.HTTPObserver

	AllowedOrigins []string
	RateLimit      int
}

// New returns an http.Handler that serves the API under /api/v1, plus
// /healthz and /metrics at the root.
func New(rt Routes, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+base+"/auth/register/client", rt.Auth.RegisterClient)
	mux.HandleFunc("POST "+base+"/auth/register/tasker", rt.Auth.RegisterTasker)
	mux.HandleFunc("POST "+base+"/auth/login", rt.Auth.Login)
	mux.HandleFunc("POST "+base+"/auth/forgot-password", rt.Auth.ForgotPassword)
	mux.HandleFunc("POST "+base+"/auth/reset-password", rt.Auth.ResetPassword)

	authed := middleware.Authenticate(rt.Tokens, log)
	rt.Tasks.Register(mux, base, authed)
	rt.Ratings.Register(mux, base, authed)
	rt.Profiles.Register(mux, base, authed)
	rt.Admin.Register(mux, base, authed)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	var h http.Handler = mux
	if rt.RateLimit > 0 {
		h = middleware.RateLimiter(rt.RateLimit, time.Minute, log)(h)
	}
	h = middleware.RequestLogger(log, rt.HTTPObs)(h)

	return cors.New(cors.Options{
		AllowedOrigins:   rt.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.ActiveRoleHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(h)
}
