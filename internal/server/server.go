// Package server is the local dashboard: the authenticated shell served
// over HTTP for the signed-in session, with live order updates on a
// websocket or an event stream, a GraphQL read API, Prometheus metrics and
// a gRPC health service that tracks the backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	gql "github.com/graphql-go/graphql"
	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/grpc"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/middleware"
	"github.com/shashiranjanraj/platter/pkg/router"
	"github.com/shashiranjanraj/platter/pkg/session"
	"github.com/shashiranjanraj/platter/pkg/sse"
	"github.com/shashiranjanraj/platter/pkg/storage"
	"github.com/shashiranjanraj/platter/pkg/workerpool"
	"github.com/shashiranjanraj/platter/pkg/ws"
)

const (
	shutdownGrace = 10 * time.Second
	exportWorkers = 2
	exportQueue   = 8
)

// Server owns one controller at a time: the one for the session's
// current role. It is replaced when the role changes and halted on logout.
type Server struct {
	client   *api.Client
	sess     *session.Session
	disk     storage.Disk
	hub      *ws.Hub
	exports  *workerpool.Pool
	schema   gql.Schema
	router   *router.Router
	origins  []string
	ctrlOpts []controller.Option
	now      func() time.Time

	mu      sync.Mutex
	ctrl    *controller.Controller
	offCtrl func()
	runCtx  context.Context
	polling bool

	streamMu sync.Mutex
	streams  map[chan sse.Event]struct{}
}

type Option func(*Server)

// WithDisk sets where exports go. Without it the export routes answer 503.
func WithDisk(d storage.Disk) Option { return func(s *Server) { s.disk = d } }

// WithControllerOptions is passed to every controller the server builds.
func WithControllerOptions(opts ...controller.Option) Option {
	return func(s *Server) { s.ctrlOpts = append(s.ctrlOpts, opts...) }
}

func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithOrigins overrides DASHBOARD_ORIGINS.
func WithOrigins(origins []string) Option { return func(s *Server) { s.origins = origins } }

func New(client *api.Client, opts ...Option) (*Server, error) {
	s := &Server{
		client:  client,
		sess:    client.Session(),
		exports: workerpool.New(exportWorkers, exportQueue),
		origins: middleware.ParseOrigins(config.DashboardOrigins()),
		now:     time.Now,
		runCtx:  context.Background(),
		streams: map[chan sse.Event]struct{}{},
	}
	for _, o := range opts {
		o(s)
	}
	s.hub = ws.NewHub(ws.WithCheckOrigin(ws.AllowOrigins(s.origins)))
	s.hub.OnMessage = s.onSocketMessage

	schema, err := s.buildSchema()
	if err != nil {
		return nil, fmt.Errorf("server: graphql schema: %w", err)
	}
	s.schema = schema

	s.sess.OnClear(func(reason string) {
		s.broadcast(sse.Event{Name: "logout", Data: map[string]string{"reason": reason}})
	})

	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router.Handler() }

// Routes lists the named routes, for `platter serve --routes`.
func (s *Server) Routes() []router.RouteInfo { return s.router.Routes() }

// resolveRole is the RoleFunc behind middleware.Authenticate.
func (s *Server) resolveRole(*http.Request) (string, bool) {
	r := role.Resolve(s.sess)
	return string(r), r.Valid()
}

// controller returns the controller for the session's role, replacing the
// previous one when the role changed.
func (s *Server) controller() (*controller.Controller, error) {
	r := role.Resolve(s.sess)
	if !r.Valid() {
		return nil, controller.ErrUnknownRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil && s.ctrl.Role() == r {
		if s.polling {
			s.ctrl.Start(s.runCtx)
		}
		return s.ctrl, nil
	}
	if s.ctrl != nil {
		s.offCtrl()
		s.ctrl.Stop()
	}

	c, err := controller.New(s.client, r, s.ctrlOpts...)
	if err != nil {
		return nil, err
	}
	s.offCtrl = c.Subscribe(func(snap controller.Snapshot) {
		s.broadcast(sse.Event{Name: controller.EventName(snap.Role), ID: fmt.Sprint(snap.Seq), Data: s.ordersModel(snap)})
	})
	s.ctrl = c
	if s.polling {
		c.Start(s.runCtx)
	}
	logger.Info("server: order list ready", "role", r)
	return c, nil
}

// snapshot returns the current list, fetching once if nothing has been
// applied yet for this session.
func (s *Server) snapshot(ctx context.Context, c *controller.Controller) (controller.Snapshot, error) {
	if snap := c.Snapshot(); snap.Seq > 0 {
		return snap, nil
	}
	return c.Refresh(ctx)
}

// broadcast sends e to websocket clients and every open event stream.
func (s *Server) broadcast(e sse.Event) {
	_ = s.hub.Publish(map[string]interface{}{"type": e.Name, "data": e.Data})

	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for ch := range s.streams {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Server) subscribeStream() (<-chan sse.Event, func()) {
	ch := make(chan sse.Event, 16)
	s.streamMu.Lock()
	s.streams[ch] = struct{}{}
	s.streamMu.Unlock()
	return ch, func() {
		s.streamMu.Lock()
		delete(s.streams, ch)
		s.streamMu.Unlock()
	}
}

// onSocketMessage treats any frame from a browser as a refresh request.
func (s *Server) onSocketMessage(msg ws.Message) {
	go func() {
		c, err := s.controller()
		if err != nil {
			_ = msg.Client.SendJSON(map[string]string{"type": "error", "message": err.Error()})
			return
		}
		_, _ = c.Refresh(s.runCtx)
	}()
}

// Run serves HTTP on addr and, when grpcPort is set, the health service,
// until ctx is done. The order list polls for as long as it runs.
func (s *Server) Run(ctx context.Context, addr, grpcPort string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, lis, grpcPort)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener, grpcPort string) error {
	var health *grpc.Server
	if grpcPort != "" {
		var err error
		if health, err = grpc.Start(grpcPort, s.client.Reachable); err != nil {
			lis.Close()
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.runCtx, s.polling = ctx, true
	s.mu.Unlock()
	if role.Resolve(s.sess).Valid() {
		if _, err := s.controller(); err != nil {
			logger.Warn("server: order list unavailable", "error", err)
		}
	}

	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with the server rather than holding Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		logger.Info("server: dashboard listening", "addr", lis.Addr().String(), "backend", s.client.BaseURL())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		s.mu.Lock()
		if s.ctrl != nil {
			s.ctrl.Stop()
		}
		s.mu.Unlock()

		health.Stop()
		err := srv.Shutdown(shutdownCtx)
		if perr := s.exports.Shutdown(shutdownCtx); perr != nil {
			logger.Warn("server: exports still running at shutdown", "error", perr)
		}
		logger.Info("server: stopped")
		return err
	})

	return g.Wait()
}
