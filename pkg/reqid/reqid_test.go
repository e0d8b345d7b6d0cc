package reqid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/platter/pkg/reqid"
)

func TestEnsureKeepsExistingID(t *testing.T) {
	ctx := reqid.WithValue(context.Background(), "fixed")
	got, id := reqid.Ensure(ctx)
	assert.Equal(t, "fixed", id)
	assert.Equal(t, ctx, got)

	_, fresh := reqid.Ensure(context.Background())
	_, err := uuid.Parse(fresh)
	assert.NoError(t, err)
}

func TestMiddlewareReplacesMalformedHeader(t *testing.T) {
	var seen string
	h := reqid.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = reqid.FromCtx(r.Context())
	}))

	good := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(reqid.Header, good)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, good, seen)
	assert.Equal(t, good, rec.Header().Get(reqid.Header))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(reqid.Header, "not a uuid")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "not a uuid", seen)
	assert.NotEmpty(t, seen)
}
