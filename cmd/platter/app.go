package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/cache"
	"github.com/shashiranjanraj/platter/pkg/event"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/session"
)

const retryBackoff = 500 * time.Millisecond

// app is what every command needs: the stored session and a client bound
// to it.
type app struct {
	sess   *session.Session
	client *api.Client
	out    io.Writer
	closer []func()
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	a := &app{out: cmd.OutOrStdout()}

	if uri := config.LogMongoURI(); uri != "" {
		closeLog, err := logger.AttachMongo(uri, config.LogMongoDB())
		if err != nil {
			logger.Warn("cli: mongo log sink unavailable", "error", err)
		}
		a.closer = append(a.closer, closeLog)
	}

	sess, err := session.Open(ctx, event.New())
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	a.sess = sess

	opts := []api.Option{api.WithCache(cache.Open(ctx))}
	if retryFlag > 0 {
		opts = append(opts, api.WithRetry(retryFlag, retryBackoff))
	}
	a.client = api.New(sess, opts...)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		a.closer[i]()
	}
}

func (a *app) role() role.Role { return role.Resolve(a.sess) }

// controller builds the order list for the signed-in role.
func (a *app) controller(opts ...controller.Option) (*controller.Controller, error) {
	r := a.role()
	if !r.Valid() {
		return nil, errNotSignedIn
	}
	return controller.New(a.client, r, opts...)
}

// run opens the app for one command, cancelled on SIGINT/SIGTERM.
func run(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, cmd, args)
	}
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
