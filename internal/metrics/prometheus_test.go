package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	before := testutil.ToFloat64(TaskTransitionsTotal.WithLabelValues("COMPLETED"))
	r.TaskTransition("COMPLETED")
	if got := testutil.ToFloat64(TaskTransitionsTotal.WithLabelValues("COMPLETED")); got != before+1 {
		t.Errorf("transitions: got %v, want %v", got, before+1)
	}

	beforeConfirmed := testutil.ToFloat64(SweepTasksTotal.WithLabelValues("confirmed"))
	r.SweepFinished("admin", 3, 1, 0, 10*time.Millisecond)
	if got := testutil.ToFloat64(SweepTasksTotal.WithLabelValues("confirmed")); got != beforeConfirmed+3 {
		t.Errorf("sweep confirmed: got %v, want %v", got, beforeConfirmed+3)
	}

	r.ObserveHTTP(http.MethodGet, "GET /healthz", http.StatusOK, time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /healthz", "200")); got < 1 {
		t.Errorf("http requests: got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	NewRecorder().RatingSaved(true, "client")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "mandadito_ratings_saved_total") {
		t.Error("ratings counter not exposed")
	}
}
