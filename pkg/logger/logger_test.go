package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCtxReturnsInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	tagged := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "abc")
	ctx := InjectLogger(context.Background(), tagged)

	WithCtx(ctx).Info("hello")

	assert.Contains(t, buf.String(), "request_id=abc")
	assert.Same(t, L, WithCtx(context.Background()))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("order_id", 7)

	log.Info("info line")
	log.Warn("warn line")

	assert.Contains(t, a.String(), "info line")
	assert.Contains(t, a.String(), "warn line")
	assert.NotContains(t, b.String(), "info line")
	assert.Contains(t, b.String(), `"order_id":7`)
}

func TestProductionUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, "production")).Info("x", "k", "v")
	assert.Contains(t, buf.String(), `"k":"v"`)
}
