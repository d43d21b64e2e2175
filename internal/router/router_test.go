package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter_MethodAndPathValue(t *testing.T) {
	r := New()

	var gotID string
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, req *http.Request) {
		gotID = req.PathValue("id")
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/order-42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if gotID != "order-42" {
		t.Errorf("expected path value order-42, got %q", gotID)
	}

	// Same path, wrong method.
	req = httptest.NewRequest(http.MethodDelete, "/api/orders/order-42", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string

	named := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "before "+name)
				next.ServeHTTP(w, r)
				order = append(order, "after "+name)
			})
		}
	}

	r := New(named("global"))
	r.Post("/checkout", func(w http.ResponseWriter, req *http.Request) {
		order = append(order, "handler")
	}, named("route"))

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	expected := []string{"before global", "before route", "handler", "after route", "after global"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d entries, got %d: %v", len(expected), len(order), order)
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("position %d: expected %s, got %s", i, v, order[i])
		}
	}
}

func TestRouter_GroupMiddlewareDoesNotLeak(t *testing.T) {
	var sawGroup bool
	marker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawGroup = true
			next.ServeHTTP(w, r)
		})
	}

	r := New()
	admin := r.Group(marker)
	admin.Get("/admin/ping", func(w http.ResponseWriter, req *http.Request) {})
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	if sawGroup {
		t.Error("group middleware ran on a route outside the group")
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if !sawGroup {
		t.Error("group middleware did not run on a group route")
	}
}
