package grpc_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/platter/pkg/grpc"
)

func healthClient(t *testing.T, up *atomic.Bool) grpc_health_v1.HealthClient {
	t.Helper()
	srv, err := grpc.Start("0", func(context.Context) bool { return up.Load() })
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	conn, err := grpclib.NewClient("127.0.0.1:"+port, grpclib.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func TestCheckFollowsProbe(t *testing.T) {
	var up atomic.Bool
	hc := healthClient(t, &up)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := hc.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: grpc.BackendService})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.Status)

	up.Store(true)
	resp, err = hc.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}

func TestCheckUnknownService(t *testing.T) {
	var up atomic.Bool
	hc := healthClient(t, &up)

	_, err := hc.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: "orders"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestWatchSendsCurrentStatus(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	hc := healthClient(t, &up)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := hc.Watch(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	resp, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
