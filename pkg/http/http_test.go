package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platterhttp "github.com/shashiranjanraj/platter/pkg/http"
	"github.com/shashiranjanraj/platter/pkg/reqid"
	"github.com/shashiranjanraj/platter/pkg/testkit"
)

func TestSendPropagatesRequestIDAndQuery(t *testing.T) {
	mt := testkit.NewMockTransport("")
	mt.On("GET", "/orders").ReplyFunc(func(r *http.Request) (int, interface{}) {
		return 200, map[string]string{"q": r.URL.Query().Get("status")}
	})
	defer mt.Install()()

	ctx := reqid.WithValue(context.Background(), "rid-1")
	resp, err := platterhttp.Get("http://x/orders").Query("status", "pending").WithContext(ctx).Send()
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "pending", out["q"])

	call, _ := mt.Last("GET", "/orders")
	assert.Equal(t, "rid-1", call.Header.Get(reqid.Header))
}

func TestRetryOnlyOnTransportFailure(t *testing.T) {
	mt := testkit.NewMockTransport("")
	mt.On("GET", "/flaky").Fail(errors.New("reset"))
	mt.On("GET", "/bad").Reply(500, `{"message":"boom"}`)
	defer mt.Install()()

	_, err := platterhttp.Get("http://x/flaky").Retry(3, time.Millisecond).Send()
	assert.Error(t, err)
	assert.Equal(t, 3, mt.Calls("GET", "/flaky"))

	resp, err := platterhttp.Get("http://x/bad").Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, 1, mt.Calls("GET", "/bad"))
	assert.ErrorContains(t, resp.Throw(), "boom")
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	mt := testkit.NewMockTransport("")
	mt.On("GET", "/flaky").Fail(errors.New("reset"))
	defer mt.Install()()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := platterhttp.Get("http://x/flaky").Retry(5, time.Hour).WithContext(ctx).Send()
	assert.Error(t, err)
	assert.LessOrEqual(t, mt.Calls("GET", "/flaky"), 1)
}

func TestJSONEmptyBodyIsNoop(t *testing.T) {
	resp := &platterhttp.Response{StatusCode: 204}
	var v map[string]any
	assert.NoError(t, resp.JSON(&v))
	assert.Nil(t, v)
}
