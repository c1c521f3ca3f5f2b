package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/protomem/credit-bank/internal/metrics"
)

func (app *application) routes() http.Handler {
	mux := chi.NewRouter()

	mux.NotFound(app.notFound)
	mux.MethodNotAllowed(app.methodNotAllowed)

	mux.Use(app.traceID)
	mux.Use(app.logAccess)
	mux.Use(app.recoverPanic)
	mux.Use(app.instrument)

	mux.Use(app.CORS)

	mux.Method(http.MethodGet, "/metrics", metrics.Handler())

	mux.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", app.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(app.rateLimit)

			r.Post("/auth/register", app.handleRegister)
			r.Post("/auth/jwt/login", app.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(app.authenticate)
			r.Use(app.requireAuth)

			r.Post("/auth/jwt/logout", app.handleLogout)
			r.Get("/check", app.handleCheck)
			r.Get("/users/me", app.handleGetMe)

			r.Post("/orders", app.handleCreateOrder)
			r.Get("/orders", app.handleListOrders)
			r.Get("/orders/{orderId}", app.handleGetOrder)

			r.Get("/responses", app.handleListResponses)
			r.Get("/responses/{responseId}", app.handleGetResponse)

			r.Post("/credits", app.handleCreateCredit)
			r.Get("/credits", app.handleListCredits)
			r.Get("/credits/{creditId}", app.handleGetCredit)
		})

		r.Group(func(r chi.Router) {
			r.Use(app.authenticate)
			r.Use(app.requirePrivileged)

			r.Get("/check-spec", app.handleCheck)
			r.Delete("/users/{userId}", app.handleDeleteUser)
			r.Patch("/orders/{orderId}", app.handlePatchOrder)
			r.Post("/responses", app.handleCreateResponse)
		})
	})

	app.logger.Debug("routes configured", "routes", chiRoutesToStrings(mux.Routes()))

	return mux
}

func chiRoutesToStrings(routes []chi.Route) []string {
	parsedRoutes := make([]string, 0, len(routes))
	for _, route := range routes {
		parsedRoutes = append(parsedRoutes, route.Pattern)
		if route.SubRoutes != nil {
			parsedRoutes = append(parsedRoutes, chiRoutesToStrings(route.SubRoutes.Routes())...)
		}
	}
	return parsedRoutes
}
