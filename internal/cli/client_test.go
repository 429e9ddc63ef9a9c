package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientSendsFiltersAndHeaders(t *testing.T) {
	var gotQuery, gotAuth, gotIdem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/plots":
			gotQuery = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode(map[string]any{"plots": []map[string]any{{"name": "P1"}}})
		case "/v1/lottery/draw":
			gotAuth = r.Header.Get("Authorization")
			gotIdem = r.Header.Get("Idempotency-Key")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "staff only"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	plots, err := c.ListPlots(context.Background(), PlotFilter{District: "Centrum", Owner: "Jan"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plots) != 1 || plots[0].Name != "P1" {
		t.Fatalf("plots=%+v", plots)
	}
	if gotQuery != "district=Centrum&owner=Jan" {
		t.Fatalf("query=%q", gotQuery)
	}

	_, err = c.DrawLottery(context.Background(), "tok", "key-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden || apiErr.Message != "staff only" {
		t.Fatalf("err=%v", err)
	}
	if gotAuth != "Bearer tok" || gotIdem != "key-1" {
		t.Fatalf("auth=%q idem=%q", gotAuth, gotIdem)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("CADASTRE_HOME", t.TempDir())

	if _, err := LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err=%v want ErrNoSession", err)
	}
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := SaveSession(Session{Token: "t", Owner: "Jan", Staff: true, ExpiresAt: exp}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, err := LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Owner != "Jan" || !s.Staff || s.Expired(exp.Add(-time.Second)) || !s.Expired(exp) {
		t.Fatalf("session=%+v", s)
	}
	if err := ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("after clear err=%v", err)
	}
}
