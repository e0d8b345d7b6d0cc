// Package logger provides the structured, levelled logger used across platter.
//
// Log lines go to stderr so command output on stdout stays pipeable. WithCtx
// returns a logger already tagged with the request id of the current call:
//
//	log := logger.WithCtx(ctx)
//	log.Info("order accepted", "order_id", 42)
//	// → time=... level=INFO msg="order accepted" request_id=5f0c... order_id=42
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/platter/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newHandler(os.Stderr, config.AppEnv()))
	slog.SetDefault(L)
}

func newHandler(w io.Writer, env string) slog.Handler {
	switch env {
	case "production", "prod":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case "test", "quiet":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelError})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// SetOutput rebuilds the base logger writing to w. The CLI uses it for --quiet.
func SetOutput(w io.Writer, env string) {
	L = slog.New(newHandler(w, env))
	slog.SetDefault(L)
}

// AttachMongo fans every record out to a MongoDB collection as well as the
// current handler. The returned func flushes and disconnects.
func AttachMongo(uri, db string) (func(), error) {
	mh, err := NewMongoHandler(uri, db, "client_logs")
	if err != nil {
		return func() {}, err
	}
	L = slog.New(NewMultiHandler(L.Handler(), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

type ctxKey struct{}

// WithCtx returns the logger stored in ctx, or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a pre-tagged logger into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
