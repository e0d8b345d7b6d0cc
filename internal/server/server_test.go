package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/internal/server"
	"github.com/shashiranjanraj/platter/pkg/session"
	"github.com/shashiranjanraj/platter/pkg/storage"
	"github.com/shashiranjanraj/platter/pkg/testkit"
)

var now = time.Date(2024, 5, 10, 15, 0, 0, 0, time.Local)

type fixture struct {
	srv  *server.Server
	mt   *testkit.MockTransport
	sess *session.Session
	disk storage.Disk
}

func setup(t *testing.T, r role.Role) *fixture {
	t.Helper()
	ctx := context.Background()
	sess, err := session.New(ctx, session.NewMemoryStore(), nil)
	require.NoError(t, err)
	if r != role.None {
		require.NoError(t, sess.SignIn(ctx, "tok", map[string]any{"userType": string(r)}))
	}
	mt := testkit.NewMockTransport("/api")
	t.Cleanup(mt.Install())

	disk := storage.NewLocal(t.TempDir(), "http://files.test")
	client := api.New(sess, api.WithBaseURL("http://backend.test/api"))
	srv, err := server.New(client,
		server.WithDisk(disk),
		server.WithClock(func() time.Time { return now }),
		server.WithOrigins([]string{"http://localhost:3000"}),
	)
	require.NoError(t, err)
	return &fixture{srv: srv, mt: mt, sess: sess, disk: disk}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestPagesRedirect(t *testing.T) {
	f := setup(t, role.Delivery)
	rec, _ := f.do(t, "GET", "/dashboard", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/orders", rec.Header().Get("Location"))

	guest := setup(t, role.None)
	rec, _ = guest.do(t, "GET", "/dashboard/orders", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestOrdersPageCarriesLists(t *testing.T) {
	f := setup(t, role.Customer)
	f.mt.On("GET", "/orders/customer").Reply(200, []map[string]any{
		{"orderid": 1, "status": "pending", "totalAmount": 12.5},
		{"orderid": 2, "status": "delivered"},
	})

	rec, env := f.do(t, "GET", "/dashboard/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Role  string `json:"role"`
		Lists struct {
			Orders []struct {
				ID          string `json:"id"`
				StatusLabel string `json:"statusLabel"`
			} `json:"orders"`
			History []struct {
				ID string `json:"id"`
			} `json:"history"`
		} `json:"lists"`
		Navigation []any `json:"navigation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "customer", page.Role)
	require.Len(t, page.Lists.Orders, 1)
	assert.Equal(t, "ORDER-1", page.Lists.Orders[0].ID)
	assert.Equal(t, "Pending", page.Lists.Orders[0].StatusLabel)
	require.Len(t, page.Lists.History, 1)
	assert.NotEmpty(t, page.Navigation)
}

func TestOrdersNeedSession(t *testing.T) {
	f := setup(t, role.None)
	rec, _ := f.do(t, "GET", "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRestaurantConfirm(t *testing.T) {
	f := setup(t, role.Restaurant)
	f.mt.On("GET", "/restaurant/orders").Reply(200, []map[string]any{
		{"orderid": 7, "status": "pending"},
		{"orderid": 8, "status": "delivered"},
	})
	f.mt.On("PUT", "/restaurant/orders/7/status").Reply(200, map[string]any{"success": true})

	rec, _ := f.do(t, "POST", "/api/orders/7/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testkit.AssertCalled(t, f.mt, "PUT", "/restaurant/orders/7/status", 1)

	rec, env := f.do(t, "POST", "/api/orders/8/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, env.Message)
	testkit.AssertCalled(t, f.mt, "PUT", "/restaurant/orders/8/status", 0)

	rec, env = f.do(t, "POST", "/api/orders/99/confirm", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", env.Message)
}

func TestActionsAreRoleScoped(t *testing.T) {
	f := setup(t, role.Customer)
	rec, _ := f.do(t, "POST", "/api/orders/7/accept", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, "GET", "/api/earnings", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.mt.History())
}

func TestUpdateStatusValidated(t *testing.T) {
	f := setup(t, role.Restaurant)
	rec, _ := f.do(t, "PUT", "/api/orders/7/status", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogin(t *testing.T) {
	f := setup(t, role.None)
	f.mt.On("POST", "/auth/login").Reply(200, map[string]any{
		"success": true,
		"token":   "abc",
		"user":    map[string]any{"userType": "delivery"},
	})

	rec, env := f.do(t, "POST", "/api/auth/login", map[string]string{
		"email": "c@example.com", "password": "secret", "userType": "delivery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "delivery", out.Role)
	assert.Equal(t, "abc", f.sess.Token())

	rec, _ = f.do(t, "POST", "/api/auth/login", map[string]string{
		"email": "c@example.com", "password": "secret", "userType": "delivery",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	f := setup(t, role.Customer)
	rec, _ := f.do(t, "POST", "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.sess.Authenticated())
}

func TestExport(t *testing.T) {
	f := setup(t, role.Delivery)
	f.mt.On("GET", "/orders/pending").Reply(200, []map[string]any{{"orderid": 3, "status": "pending"}})
	f.mt.On("GET", "/orders/delivery-staff").Reply(200, "[]")

	rec, env := f.do(t, "POST", "/api/exports?format=csv", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var out struct {
		Path string `json:"path"`
		URL  string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "exports/delivery/20240510-150000.csv", out.Path)
	assert.Equal(t, "http://files.test/exports/delivery/20240510-150000.csv", out.URL)

	assert.Eventually(t, func() bool {
		return f.disk.Exists(context.Background(), out.Path)
	}, 2*time.Second, 10*time.Millisecond)

	rec, _ = f.do(t, "POST", "/api/exports?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphQL(t *testing.T) {
	f := setup(t, role.Customer)
	f.mt.On("GET", "/orders/customer").Reply(200, []map[string]any{
		{"orderid": 5, "status": "preparing", "totalAmount": 20, "restaurantName": "Noodle Bar"},
	})

	q := url.Values{"query": {`{ role orders { id restaurant statusLabel total } page(path: "/dashboard") { kind } }`}}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/graphql?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Data struct {
			Role   string `json:"role"`
			Orders []struct {
				ID          string `json:"id"`
				Restaurant  string `json:"restaurant"`
				StatusLabel string `json:"statusLabel"`
				Total       string `json:"total"`
			} `json:"orders"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Errors)
	assert.Equal(t, "customer", res.Data.Role)
	require.Len(t, res.Data.Orders, 1)
	assert.Equal(t, "ORDER-5", res.Data.Orders[0].ID)
	assert.Equal(t, "Noodle Bar", res.Data.Orders[0].Restaurant)
	assert.Equal(t, "20.00", res.Data.Orders[0].Total)
}

func TestHealthz(t *testing.T) {
	f := setup(t, role.None)
	f.mt.On("GET", "/health").Reply(200, map[string]any{"ok": true})

	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reachable":true`)
}

func TestRoutesListed(t *testing.T) {
	f := setup(t, role.None)
	names := map[string]bool{}
	for _, r := range f.srv.Routes() {
		names[r.Name] = true
	}
	for _, n := range []string{"orders.index", "orders.accept", "exports.create", "graphql", "ws"} {
		assert.True(t, names[n], n)
	}
}

func TestUnknownPath(t *testing.T) {
	f := setup(t, role.None)
	rec, _ := f.do(t, "GET", "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
