package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/pkg/router"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func serve(r *router.Router, method, path string) int {
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec.Code
}

func TestGroupRoutesAndURL(t *testing.T) {
	r := router.New()
	api := r.Group("/api/")
	api.Get("/orders", "orders.index", ok)
	api.Put("/orders/{id}/{action}", "orders.act", ok)
	api.Delete("/session", "session.clear", ok)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/orders"))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPut, "/api/orders/3/accept"))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/api/session"))
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodPost, "/api/orders"))

	u, err := r.URL("orders.act", map[string]string{"id": "3", "action": "accept"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/3/accept", u)

	_, err = r.URL("orders.act", map[string]string{"id": "3"})
	assert.Error(t, err)
	_, err = r.URL("nope", nil)
	assert.Error(t, err)
}

func TestMiddlewareOrder(t *testing.T) {
	var trail []string
	mark := func(name string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trail = append(trail, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := router.New()
	r.Use(mark("global"))
	g := r.Group("/dashboard", mark("group"))
	g.Get("/", "dashboard", func(w http.ResponseWriter, r *http.Request) { trail = append(trail, "handler") }, mark("route"))

	serve(r, http.MethodGet, "/dashboard")
	assert.Equal(t, []string{"global", "group", "route", "handler"}, trail)
}

func TestHandleAndNotFound(t *testing.T) {
	r := router.New()
	r.Handle("/metrics", http.HandlerFunc(ok))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/metrics"))
	assert.Equal(t, http.StatusTeapot, serve(r, http.MethodGet, "/missing"))
}

func TestRoutesSorted(t *testing.T) {
	r := router.New()
	r.Post("/api/orders/{id}/accept", "orders.accept", ok)
	r.Get("/api/orders", "orders.index", ok)
	r.Get("/dashboard", "", ok)

	assert.Equal(t, []router.RouteInfo{
		{Method: "GET", Path: "/api/orders", Name: "orders.index"},
		{Method: "POST", Path: "/api/orders/{id}/accept", Name: "orders.accept"},
	}, r.Routes())
}
