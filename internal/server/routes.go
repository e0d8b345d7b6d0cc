package server

import (
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/ctx"
	"github.com/shashiranjanraj/platter/pkg/graphql"
	"github.com/shashiranjanraj/platter/pkg/metrics"
	"github.com/shashiranjanraj/platter/pkg/middleware"
	"github.com/shashiranjanraj/platter/pkg/rbac"
	"github.com/shashiranjanraj/platter/pkg/reqid"
	"github.com/shashiranjanraj/platter/pkg/router"
)

func (s *Server) routes() *router.Router {
	r := router.New()

	// Outermost first: metrics see total latency, recovery catches panics
	// before they reach net/http, the request id exists before anything
	// logs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	cors := middleware.DefaultCORSOptions()
	cors.AllowedOrigins = s.origins
	r.Use(middleware.CORS(cors))

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", "health", ctx.Wrap(s.health))

	signedIn := middleware.Authenticate(s.resolveRole, false)
	maybe := middleware.Authenticate(s.resolveRole, true)

	// Shell pages. The composer handles signed-out visitors itself.
	for _, p := range []struct{ path, name string }{
		{"/", "home"},
		{"/login", "login"},
		{"/register", "register"},
		{"/dashboard", "dashboard"},
		{"/dashboard/*", "dashboard.page"},
	} {
		r.Get(p.path, p.name, ctx.Wrap(s.page), maybe)
	}

	auth := r.Group("/api/auth", maybe)
	auth.Post("/login", "auth.login", ctx.Wrap(s.login), rbac.Guest)
	auth.Post("/logout", "auth.logout", ctx.Wrap(s.logout), signedIn)

	api := r.Group("/api", signedIn)
	api.Get("/orders", "orders.index", ctx.Wrap(s.orders))
	api.Post("/orders/refresh", "orders.refresh", ctx.Wrap(s.refresh))
	api.Get("/events", "orders.events", ctx.Wrap(s.events))

	restaurant := api.Group("/orders/{id}", rbac.HasRole(string(role.Restaurant)))
	restaurant.Post("/confirm", "orders.confirm", ctx.Wrap(s.act(rbac.Confirm)))
	restaurant.Post("/cancel", "orders.cancel", ctx.Wrap(s.act(rbac.Cancel)))
	restaurant.Put("/status", "orders.status", ctx.Wrap(s.updateStatus))

	courier := api.Group("/orders/{id}", rbac.HasRole(string(role.Delivery)))
	courier.Post("/accept", "orders.accept", ctx.Wrap(s.act(rbac.Accept)))
	courier.Post("/deliver", "orders.deliver", ctx.Wrap(s.act(rbac.Deliver)))
	courier.Post("/release", "orders.release", ctx.Wrap(s.act(rbac.Release)))
	api.Get("/earnings", "earnings", ctx.Wrap(s.earnings), rbac.HasRole(string(role.Delivery)))
	api.Get("/profile/delivery", "profile.delivery", ctx.Wrap(s.deliveryProfile), rbac.HasRole(string(role.Delivery)))

	customer := api.Group("/orders/{id}", rbac.HasRole(string(role.Customer)))
	customer.Get("/review", "orders.review", ctx.Wrap(s.review))
	customer.Post("/review", "orders.review.submit", ctx.Wrap(s.submitReview))

	api.Post("/exports", "exports.create", ctx.Wrap(s.createExport))
	api.Get("/exports", "exports.index", ctx.Wrap(s.listExports))

	api.Get("/graphql", "graphql.get", graphql.Handler(s.schema))
	api.Post("/graphql", "graphql", graphql.Handler(s.schema))
	api.Get("/ws", "ws", s.hub.Handler(s.greet))

	r.NotFound(ctx.Wrap(func(c *ctx.Context) { c.NotFound() }))
	return r
}
