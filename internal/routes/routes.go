// Package routes binds handlers to URL patterns with the right middleware
// groups.
package routes

import (
	"net/http"

	"github.com/thokbazaar/server/internal/handler"
	"github.com/thokbazaar/server/internal/middleware"
	"github.com/thokbazaar/server/internal/router"
)

// Deps contains the handlers and shared middleware the API routes need.
type Deps struct {
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrdersHandler

	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler
}

// Register wires the full API surface onto the router. The router is
// expected to already carry the global chain (request id, auth, logging,
// metrics).
func Register(r *router.Router, deps Deps) {
	// Liveness, no auth.
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if deps.MetricsHandler != nil {
		r.HandleFunc("GET /metrics", deps.MetricsHandler)
	}

	// Storefront surface, any authenticated user.
	user := r.Group(middleware.RequireAuth)
	user.Post("/api/checkout/calculate", deps.Checkout.Calculate)
	user.Post("/api/checkout/place", deps.Checkout.Place)
	user.Post("/api/checkout/confirm", deps.Checkout.Confirm)
	user.Get("/api/orders", deps.Orders.List)
	user.Get("/api/orders/{id}", deps.Orders.Get)

	// Admin surface.
	admin := r.Group(middleware.RequireAdmin)
	admin.Patch("/api/admin/orders/{id}/status", deps.Orders.UpdateStatus)
	admin.Post("/api/admin/orders/{id}/discount", deps.Orders.ApplyDiscount)
}
