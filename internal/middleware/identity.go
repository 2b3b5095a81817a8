package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/handlers"
	"github.com/mandadito/backend/internal/models"
)

type contextKey string

const ctxIdentityKey contextKey = "identity"

// ActiveRoleHeader lets a dual user pick which of their roles acts on a request.
const ActiveRoleHeader = "X-Active-Role"

// TokenValidator resolves a bearer token to the identity it was issued for.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (models.Identity, error)
}

// Authenticate resolves the Bearer token to a models.Identity and stores it in
// the request context. X-Active-Role switches the active role to another role
// the identity holds; asking for a role that is not held is refused.
func Authenticate(tokens TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				handlers.WriteError(w, log, apperr.Unauthorized("missing or malformed Authorization header"))
				return
			}
			id, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				handlers.WriteError(w, log, err)
				return
			}
			if h := strings.ToLower(strings.TrimSpace(r.Header.Get(ActiveRoleHeader))); h != "" {
				role := models.Role(h)
				if !role.Valid() || !id.Holds(role) {
					handlers.WriteError(w, log, apperr.Permission("active role %q is not held by this account", h))
					return
				}
				id = id.As(role)
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole refuses requests whose active role is not one of roles.
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromCtx(r.Context())
			if !ok {
				handlers.WriteError(w, log, apperr.Unauthorized("authentication required"))
				return
			}
			for _, role := range roles {
				if id.ActiveRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			handlers.WriteError(w, log, apperr.Permission("this action requires the %s role", joinRoles(roles)))
		})
	}
}

func joinRoles(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}

// IdentityFromCtx returns the authenticated identity.
func IdentityFromCtx(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(models.Identity)
	return id, ok
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
