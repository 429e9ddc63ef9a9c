package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cadastre/internal/cadastre/cadastretest"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Reload("source", nil)
	m.FetchDuration(time.Second)
	m.Snapshot(cadastretest.Data())
	m.Login("ok")
	m.Draw()
	if m.Registry() != nil {
		t.Fatalf("nil metrics returned a registry")
	}
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Reload("archive", nil)
	m.Reload("archive", errors.New("boom"))
	m.Snapshot(cadastretest.Data())
	m.Draw()

	if got := testutil.ToFloat64(m.reloads.WithLabelValues("archive", "error")); got != 1 {
		t.Fatalf("error reloads=%v", got)
	}
	if got := testutil.ToFloat64(m.entities.WithLabelValues("plots")); got != 4 {
		t.Fatalf("plots gauge=%v", got)
	}
	if got := testutil.ToFloat64(m.draws); got != 1 {
		t.Fatalf("draws=%v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/plots/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, name := range []string{"P1", "P2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/plots/"+name, nil))
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/v1/plots/{name}", http.MethodGet, "404")); got != 2 {
		t.Fatalf("requests=%v", got)
	}
}
