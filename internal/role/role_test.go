package role_test

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/internal/role"
)

type fakeSource struct {
	token string
	user  map[string]interface{}
}

func (f fakeSource) Token() string                { return f.token }
func (f fakeSource) User() map[string]interface{} { return f.user }

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("whatever"))
	require.NoError(t, err)
	return s
}

func TestResolveFromTokenClaim(t *testing.T) {
	tok := sign(t, jwt.MapClaims{"role": "delivery", "sub": "9"})
	assert.Equal(t, role.Delivery, role.Resolve(fakeSource{token: tok}))

	// The claim wins over the cached user.
	assert.Equal(t, role.Delivery, role.Resolve(fakeSource{token: tok, user: map[string]interface{}{"role": "customer"}}))
}

func TestResolveNormalisesCase(t *testing.T) {
	tok := sign(t, jwt.MapClaims{"role": "RESTAURANT"})
	assert.Equal(t, role.Restaurant, role.Resolve(fakeSource{token: tok}))
}

func TestResolveFallsBackToUser(t *testing.T) {
	tok := sign(t, jwt.MapClaims{"sub": "9"})
	assert.Equal(t, role.Customer, role.Resolve(fakeSource{token: tok, user: map[string]interface{}{"role": "customer"}}))
	assert.Equal(t, role.Restaurant, role.Resolve(fakeSource{user: map[string]interface{}{"userType": "restaurant"}}))
	assert.Equal(t, role.Delivery, role.Resolve(fakeSource{token: "garbage", user: map[string]interface{}{"userType": "delivery"}}))
}

func TestResolveReadsOnlyThePayload(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	payload := enc([]byte(`{"role":"delivery"}`))

	unknownAlg := enc([]byte(`{"alg":"XX999"}`)) + "." + payload + ".sig"
	assert.Equal(t, role.Delivery, role.Resolve(fakeSource{token: unknownAlg}))

	badHeader := "notbase64!!." + payload + ".sig"
	assert.Equal(t, role.Delivery, role.Resolve(fakeSource{token: badHeader}))

	padded := enc([]byte(`{"alg":"HS256"}`)) + "." + base64.URLEncoding.EncodeToString([]byte(`{"role":"delivery"}`)) + ".sig"
	assert.Equal(t, role.Delivery, role.Resolve(fakeSource{token: padded}))
}

func TestResolveNone(t *testing.T) {
	assert.Equal(t, role.None, role.Resolve(fakeSource{token: "not.a.jwt"}))
	assert.Equal(t, role.None, role.Resolve(fakeSource{}))
	assert.Equal(t, role.None, role.Resolve(nil))
	assert.Equal(t, role.None, role.Resolve(fakeSource{user: map[string]interface{}{"userType": "admin"}}))
}

func TestStorageID(t *testing.T) {
	cases := []struct {
		name string
		src  fakeSource
		want string
	}{
		{"customer", fakeSource{user: map[string]interface{}{"custid": float64(12), "staffId": float64(3)}}, "user_12"},
		{"generic id", fakeSource{user: map[string]interface{}{"id": "u-1"}}, "user_u-1"},
		{"staff", fakeSource{user: map[string]interface{}{"staffId": float64(3)}}, "staff_3"},
		{"restaurant", fakeSource{user: map[string]interface{}{"restid": float64(7)}}, "rest_7"},
		{"token subject", fakeSource{token: sign(t, jwt.MapClaims{"sub": "44"})}, "user_44"},
		{"nothing", fakeSource{}, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, role.StorageID(c.src))
		})
	}
}
