package ctx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	appctx "github.com/shashiranjanraj/platter/pkg/ctx"
	"github.com/shashiranjanraj/platter/pkg/middleware"
)

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	var status int
	appctx.Wrap(func(c *appctx.Context) {
		c.Success(map[string]any{"id": 1})
		status = c.WrittenStatus()
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":200,"data":{"id":1}}`, rec.Body.String())
}

func TestParamInt(t *testing.T) {
	r := chi.NewRouter()
	var got int
	var ok bool
	r.Get("/orders/{id}", appctx.Wrap(func(c *appctx.Context) {
		got, ok = c.ParamInt("id")
	}))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/42", nil))
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/abc", nil))
	assert.False(t, ok)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/0", nil))
	assert.False(t, ok)
}

func TestBindJSON(t *testing.T) {
	type input struct {
		Rating int `json:"rating" validate:"required,min=1,max=5"`
	}
	run := func(body string) (*httptest.ResponseRecorder, bool) {
		rec := httptest.NewRecorder()
		var ok bool
		appctx.Wrap(func(c *appctx.Context) {
			var in input
			ok = c.BindJSON(&in)
		})(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return rec, ok
	}

	_, ok := run(`{"rating":4}`)
	assert.True(t, ok)

	rec, ok := run(`{"rating":9}`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rating"`)

	rec, ok = run(``)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is required")

	rec, _ = run(`{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleFromAuthenticate(t *testing.T) {
	var role string
	h := middleware.Authenticate(func(*http.Request) (string, bool) { return "delivery", true }, false)(
		appctx.Wrap(func(c *appctx.Context) { role = c.Role() }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	assert.Equal(t, "delivery", role)
}

func TestErrorHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) { c.NotFound("Order not found") })(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":404,"message":"Order not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) { c.Redirect(http.StatusFound, "/login") })(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
