// Package grpc runs the dashboard's gRPC endpoint: the standard
// grpc.health.v1.Health service, answering SERVING only while the backend
// REST API is reachable, plus server reflection for grpcurl.
//
//	srv, err := grpc.Start(config.GRPCPort(), client.Reachable)
//	// ...run until signal...
//	srv.Stop()
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/metrics"
)

// BackendService is the health service name reporting backend reachability.
// The empty name reports the same status.
const BackendService = "platter.backend"

const stopGrace = 5 * time.Second

var (
	grpcRequestsTotal = promauto.With(metrics.DefaultRegistry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "platter",
		Subsystem: "grpc",
		Name:      "handled_total",
		Help:      "Total gRPC calls completed by method and code.",
	}, []string{"grpc_method", "grpc_code"})

	grpcRequestDuration = promauto.With(metrics.DefaultRegistry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "platter",
		Subsystem: "grpc",
		Name:      "handling_seconds",
		Help:      "gRPC response latency in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"grpc_method"})

	backendUp = promauto.With(metrics.DefaultRegistry).NewGauge(prometheus.GaugeOpts{
		Namespace: "platter",
		Subsystem: "backend",
		Name:      "up",
		Help:      "1 when the last health probe reached the backend API.",
	})
)

func recoveryInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("grpc: panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// observeInterceptor logs each unary call and records its metrics.
func observeInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	dur := time.Since(start)

	code := status.Code(err)
	logger.WithCtx(ctx).Debug("grpc: request",
		"method", info.FullMethod,
		"duration_ms", dur.Milliseconds(),
		"code", code.String(),
	)
	grpcRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
	grpcRequestDuration.WithLabelValues(info.FullMethod).Observe(dur.Seconds())
	return resp, err
}

// Prober reports whether the backend answered. It should honour ctx.
type Prober func(ctx context.Context) bool

// Health implements grpc_health_v1.HealthServer on top of a Prober.
type Health struct {
	grpc_health_v1.UnimplementedHealthServer

	probe   Prober
	timeout time.Duration
	every   time.Duration
}

func NewHealth(probe Prober) *Health {
	return &Health{probe: probe, timeout: 5 * time.Second, every: 10 * time.Second}
}

func (h *Health) status(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if h.probe(ctx) {
		backendUp.Set(1)
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	backendUp.Set(0)
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}

func known(service string) bool { return service == "" || service == BackendService }

func (h *Health) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if !known(req.GetService()) {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	return &grpc_health_v1.HealthCheckResponse{Status: h.status(ctx)}, nil
}

// Watch probes periodically and sends a response whenever the status
// changes, starting with the current one.
func (h *Health) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	if !known(req.GetService()) {
		return stream.Send(&grpc_health_v1.HealthCheckResponse{
			Status: grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN,
		})
	}

	ctx := stream.Context()
	t := time.NewTicker(h.every)
	defer t.Stop()

	last := grpc_health_v1.HealthCheckResponse_UNKNOWN
	for {
		if cur := h.status(ctx); cur != last {
			if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: cur}); err != nil {
				return err
			}
			last = cur
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

type Server struct {
	srv *grpc.Server
	lis net.Listener
}

// New builds the server without listening, for tests that supply their own
// listener.
func New(probe Prober) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, observeInterceptor),
		grpc.MaxRecvMsgSize(1024*1024),
	)
	grpc_health_v1.RegisterHealthServer(srv, NewHealth(probe))
	reflection.Register(srv)
	return srv
}

// Start listens on port and serves in the background.
func Start(port string, probe Prober) (*Server, error) {
	addr := ":" + port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}

	s := &Server{srv: New(probe), lis: lis}
	logger.Info("grpc: health service listening", "addr", lis.Addr().String())
	go func() {
		if err := s.srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			logger.Error("grpc: serve error", "error", err)
		}
	}()
	return s, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

// Stop waits up to stopGrace for in-flight RPCs, then closes whatever is
// left, which includes open Watch streams.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	logger.Info("grpc: shutting down")
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		s.srv.Stop()
	}
}
