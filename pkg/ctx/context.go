// Package ctx gives dashboard handlers a single request context instead of
// the (http.ResponseWriter, *http.Request) pair:
//
//	router.Post("/api/orders/{id}/accept", "orders.accept", ctx.Wrap(func(c *ctx.Context) {
//	    id, ok := c.ParamInt("id")
//	    ...
//	    c.Success(snapshot)
//	}))
package ctx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/platter/pkg/bind"
	"github.com/shashiranjanraj/platter/pkg/middleware"
	"github.com/shashiranjanraj/platter/pkg/response"
	"github.com/shashiranjanraj/platter/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc for the router.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

type Context struct {
	W http.ResponseWriter
	R *http.Request

	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W, c.R, c.status = w, r, 0
	return c
}

func release(c *Context) {
	c.W, c.R = nil, nil
	pool.Put(c)
}

// Param returns a chi path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ParamInt parses a positive integer path parameter.
func (c *Context) ParamInt(key string) (int, bool) {
	n, err := strconv.Atoi(c.Param(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

func (c *Context) Path() string { return c.R.URL.Path }

func (c *Context) Context() context.Context { return c.R.Context() }

// Role is the role stored by middleware.Authenticate, "" when signed out.
func (c *Context) Role() string {
	r, _ := middleware.RoleFromCtx(c.R)
	return r
}

// BindJSON decodes and validates the body into dest. On failure it has
// already answered 400 or 422 and returns false.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// JSON writes v as is, without the envelope.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	c.status = code
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

func (c *Context) Success(data any) {
	c.status = http.StatusOK
	response.Success(c.W, data)
}

func (c *Context) Accepted(data any) {
	c.status = http.StatusAccepted
	response.Accepted(c.W, data)
}

func (c *Context) Error(code int, message string) {
	c.status = code
	response.Error(c.W, code, message)
}

func (c *Context) ValidationError(errs map[string]string) {
	c.status = http.StatusUnprocessableEntity
	response.ValidationError(c.W, errs)
}

func (c *Context) Forbidden(message ...string) {
	msg := "Forbidden"
	if len(message) > 0 {
		msg = message[0]
	}
	c.Error(http.StatusForbidden, msg)
}

func (c *Context) NotFound(message ...string) {
	msg := "Not found"
	if len(message) > 0 {
		msg = message[0]
	}
	c.Error(http.StatusNotFound, msg)
}

func (c *Context) Redirect(code int, url string) {
	c.status = code
	http.Redirect(c.W, c.R, url, code)
}

// WrittenStatus is the status sent so far, 0 before any write.
func (c *Context) WrittenStatus() int { return c.status }
