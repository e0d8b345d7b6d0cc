package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/server"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/storage"
)

var (
	servePort     string
	serveGRPCPort string
	serveRoutes   bool
	serveNoGRPC   bool
)

// platter serve: the local dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard for the stored session on localhost",
	Long: `Serves the signed-in dashboard as JSON pages under /dashboard, live
order updates on /api/ws and /api/events, GraphQL on /api/graphql, metrics
on /metrics, and a gRPC health service that follows the backend.`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		var opts []server.Option
		if driver := config.Get("STORAGE_DISK", "local"); driver != "" {
			disk, err := storage.Open(ctx, driver)
			if err != nil {
				logger.Warn("serve: exports disabled", "disk", driver, "error", err)
			} else {
				opts = append(opts, server.WithDisk(disk))
			}
		}
		opts = append(opts, server.WithControllerOptions(controller.WithInterval(config.PollInterval())))

		srv, err := server.New(a.client, opts...)
		if err != nil {
			return err
		}

		if serveRoutes {
			return printRoutes(a, srv)
		}

		port := servePort
		if port == "" {
			port = config.DashboardPort()
		}
		grpcPort := serveGRPCPort
		if grpcPort == "" {
			grpcPort = config.GRPCPort()
		}
		if serveNoGRPC {
			grpcPort = ""
		}

		addr := net.JoinHostPort("localhost", port)
		a.printf("🚀 Dashboard on http://%s%s (Ctrl+C to stop)\n", addr, "/dashboard")
		return srv.Run(ctx, addr, grpcPort)
	}),
}

func printRoutes(a *app, srv *server.Server) error {
	infos := srv.Routes()
	if jsonFlag {
		return a.printJSON(infos)
	}
	w := a.table()
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&servePort, "port", "", "dashboard port (default DASHBOARD_PORT)")
	f.StringVar(&serveGRPCPort, "grpc-port", "", "health service port (default GRPC_PORT)")
	f.BoolVar(&serveNoGRPC, "no-grpc", false, "do not start the gRPC health service")
	f.BoolVar(&serveRoutes, "routes", false, "list the dashboard routes and exit")
}
