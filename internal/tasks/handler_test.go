package tasks

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandadito/backend/internal/middleware"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/services"
)

type apiFixture struct {
	*fixture
	mux *http.ServeMux
	as  models.Identity
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	v, err := services.NewValidator()
	require.NoError(t, err)
	a := &apiFixture{fixture: newFixture(t), mux: http.NewServeMux()}
	asCurrent := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), a.as)))
		})
	}
	NewHandler(a.svc, v, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(a.mux, "/api/v1", asCurrent)
	return a
}

func (a *apiFixture) do(t *testing.T, as models.Identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	a.as = as
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, httptest.NewRequest(method, "/api/v1"+path, &buf))
	return rec
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Kind
}

func TestHandlerLifecycle(t *testing.T) {
	a := newAPIFixture(t)

	rec := a.do(t, a.client, http.MethodPost, "/tasks", map[string]any{
		"service_type":       "EXPRESS",
		"description":        "Deliver a parcel",
		"location":           map[string]any{"address": "Jr. Union 500", "city": "Lima"},
		"requested_datetime": a.now.Add(3 * time.Hour).Format(time.RFC3339),
		"agreed_amount":      "150.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID              int64  `json:"id"`
		State           string `json:"state"`
		TaskerNetAmount string `json:"tasker_net_amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "PENDING", created.State)
	assert.Equal(t, "142.5", created.TaskerNetAmount)
	taskPath := "/tasks/" + strconv.FormatInt(created.ID, 10)

	rec = a.do(t, a.taskerA, http.MethodPost, taskPath+"/applications", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app models.TaskRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))

	rec = a.do(t, a.taskerA, http.MethodPost, taskPath+"/applications", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorKind(t, rec))

	rec = a.do(t, a.client, http.MethodGet, taskPath+"/applications", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, a.client, http.MethodPost, taskPath+"/applications/"+strconv.FormatInt(app.ID, 10)+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, a.taskerA, http.MethodPost, taskPath+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", errorKind(t, rec))

	for _, step := range []string{"/start", "/complete", "/confirm-payment-received"} {
		rec = a.do(t, a.taskerA, http.MethodPost, taskPath+step, nil)
		require.Equal(t, http.StatusOK, rec.Code, step+": "+rec.Body.String())
	}
	rec = a.do(t, a.client, http.MethodPost, taskPath+"/confirm-payment", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, "COMPLETED", done.State)
}

func TestHandlerRoleGates(t *testing.T) {
	a := newAPIFixture(t)

	rec := a.do(t, a.taskerA, http.MethodPost, "/tasks", map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, a.client, http.MethodGet, "/tasks/available", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, a.client, http.MethodPost, "/tasks", map[string]any{"service_type": "EXPRESS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorKind(t, rec))

	rec = a.do(t, a.client, http.MethodGet, "/tasks/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, a.client, http.MethodGet, "/tasks/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerAvailableQuery(t *testing.T) {
	a := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		a.createTask(t, "40")
	}

	rec := a.do(t, a.taskerA, http.MethodGet, "/tasks/available?per_page=2&page=2&service_type=express", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Tasks      []json.RawMessage `json:"tasks"`
		Page       int               `json:"page"`
		TotalPages int               `json:"total_pages"`
		Total      int               `json:"total"`
		HasNext    bool              `json:"has_next"`
		HasPrev    bool              `json:"has_prev"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Tasks, 1)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 3, page.Total)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)

	rec = a.do(t, a.taskerA, http.MethodGet, "/tasks/available?min_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, a.taskerA, http.MethodGet, "/tasks/available?date_from=2026-03-05&date_to=2026-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
