// Package rbac holds the order transition table shared by every view and
// the dashboard route guards.
//
// The table answers two questions from the same data: which actions to
// offer for an order, and whether a write is allowed before it is sent.
//
//	to, err := rbac.Check("restaurant", rbac.Confirm, "pending") // "preparing"
//	rbac.Actions("delivery", "ready")                             // [accept]
package rbac

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shashiranjanraj/platter/pkg/middleware"
	"github.com/shashiranjanraj/platter/pkg/response"
)

// Action names a user-facing order operation.
type Action string

const (
	Confirm Action = "confirm"
	Cancel  Action = "cancel"
	Accept  Action = "accept"
	Deliver Action = "deliver"
	Release Action = "release"
)

// Rule is one allowed (role, action, from) → to tuple.
type Rule struct {
	Role   string
	Action Action
	From   string
	To     string
}

// ErrNotAllowed is returned for writes outside the table.
var ErrNotAllowed = errors.New("rbac: transition not allowed")

var rules = []Rule{
	{"restaurant", Confirm, "pending", "preparing"},
	{"restaurant", Cancel, "pending", "cancelled"},
	{"restaurant", Cancel, "preparing", "cancelled"},

	{"delivery", Accept, "pending", "delivering"},
	{"delivery", Accept, "ready", "delivering"},
	{"delivery", Deliver, "delivering", "delivered"},
	{"delivery", Deliver, "out_for_delivery", "delivered"},
	{"delivery", Release, "delivering", "pending"},
	{"delivery", Release, "out_for_delivery", "pending"},
}

// Rules returns a copy of the table.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// Check returns the target status of action, or ErrNotAllowed.
func Check(role string, action Action, from string) (string, error) {
	for _, r := range rules {
		if r.Role == role && r.Action == action && r.From == from {
			return r.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s cannot %s an order that is %s", ErrNotAllowed, role, action, from)
}

// CanWrite reports whether role may move an order from one status to another.
func CanWrite(role, from, to string) bool {
	for _, r := range rules {
		if r.Role == role && r.From == from && r.To == to {
			return true
		}
	}
	return false
}

// Actions lists what role may do with an order in status from, in table order.
func Actions(role, from string) []Action {
	var out []Action
	for _, r := range rules {
		if r.Role == role && r.From == from {
			out = append(out, r.Action)
		}
	}
	return out
}

// Targets lists the statuses role may write for an order in status from.
func Targets(role, from string) []string {
	var out []string
	for _, r := range rules {
		if r.Role == role && r.From == from {
			out = append(out, r.To)
		}
	}
	return out
}

// HasRole allows only requests whose resolved role is one of roles.
// middleware.Authenticate must run first.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok || !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guest blocks signed-in users, for the login and register pages.
func Guest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.RoleFromCtx(r); ok {
			response.Error(w, http.StatusConflict, "Already signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
