package sse_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/pkg/sse"
)

func TestPumpWritesEventsUntilClosed(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := sse.New(rec)
	require.NoError(t, err)

	events := make(chan sse.Event, 2)
	events <- sse.Event{Name: "orders.delivery", ID: "3", Data: map[string]int{"seq": 3}}
	close(events)

	require.NoError(t, s.Pump(context.Background(), events, time.Hour))
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id: 3\nevent: orders.delivery\ndata: {\"seq\":3}\n\n", rec.Body.String())
}

func TestPumpKeepalive(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := sse.New(rec)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Pump(ctx, make(chan sse.Event), 10*time.Millisecond))
	assert.Contains(t, rec.Body.String(), ": keepalive\n\n")
}
