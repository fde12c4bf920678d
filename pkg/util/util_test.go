package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  Piz \n\t Bernina  "); got != "Piz Bernina" {
		t.Fatalf("CollapseSpaces = %q", got)
	}
}

func TestCors(t *testing.T) {
	called := false
	h := Cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/tours", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight: code %d, handler called %v", rec.Code, called)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tours", nil))
	if !called {
		t.Fatal("handler not called for GET")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
