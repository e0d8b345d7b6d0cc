// Package role works out which dashboard the signed-in user should see.
//
// The bearer token is decoded without verifying its signature. The result
// only selects views; the backend authorizes every write on its own.
package role

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	None       Role = ""
	Customer   Role = "customer"
	Restaurant Role = "restaurant"
	Delivery   Role = "delivery"
)

// All lists the known roles.
var All = []Role{Customer, Restaurant, Delivery}

func (r Role) Valid() bool {
	return r == Customer || r == Restaurant || r == Delivery
}

// Source is what Resolve reads; *session.Session satisfies it.
type Source interface {
	Token() string
	User() map[string]interface{}
}

// Parse lower-cases s and returns the matching Role, or None.
func Parse(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r
	}
	return None
}

// Resolve returns the token's role claim if it has a usable one, else the
// cached user's role, else its userType. Any decode failure yields None.
func Resolve(src Source) Role {
	if src == nil {
		return None
	}
	if claims := claimsOf(src.Token()); claims != nil {
		if r := Parse(stringField(claims, "role")); r != None {
			return r
		}
	}
	user := src.User()
	if user == nil {
		return None
	}
	if r := Parse(stringField(user, "role")); r != None {
		return r
	}
	return Parse(stringField(user, "userType"))
}

// StorageID derives the key suffix for per-user preferences such as
// paymentMethod_<id>: user_<custid|id>, staff_<staffId>, rest_<restid>,
// falling back to the token subject. Empty when nothing identifies the user.
func StorageID(src Source) string {
	if src == nil {
		return ""
	}
	if user := src.User(); user != nil {
		for _, k := range []struct{ field, prefix string }{
			{"custid", "user_"},
			{"id", "user_"},
			{"staffId", "staff_"},
			{"restid", "rest_"},
		} {
			if v := stringField(user, k.field); v != "" {
				return k.prefix + v
			}
		}
	}
	if claims := claimsOf(src.Token()); claims != nil {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			return "user_" + sub
		}
	}
	return ""
}

// Claims decodes the token payload without verification. Nil on failure.
func Claims(token string) map[string]interface{} {
	c := claimsOf(token)
	if c == nil {
		return nil
	}
	return map[string]interface{}(c)
}

func claimsOf(token string) jwt.MapClaims {
	if token == "" {
		return nil
	}
	// Only the payload matters; the header and signature are not checked.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	raw, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return nil
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil
	}
	return claims
}

// stringField renders strings and whole JSON numbers; anything else is "".
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprint(v)
	case int:
		return fmt.Sprint(v)
	case int64:
		return fmt.Sprint(v)
	}
	return ""
}
