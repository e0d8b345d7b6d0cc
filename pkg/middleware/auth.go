package middleware

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/platter/pkg/response"
)

type roleKey struct{}

// RoleFunc resolves the caller's role. ok is false when nobody is signed in.
type RoleFunc func(r *http.Request) (role string, ok bool)

// Authenticate stores the resolved role in the request context. Requests
// with no role are rejected unless optional is true.
func Authenticate(resolve RoleFunc, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := resolve(r)
			if !ok {
				if !optional {
					response.Unauthorized(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, role)))
		})
	}
}

// RoleFromCtx returns the role stored by Authenticate.
func RoleFromCtx(r *http.Request) (string, bool) {
	role, ok := r.Context().Value(roleKey{}).(string)
	return role, ok && role != ""
}
