package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth serves the standard gRPC health protocol, for orchestrators
// that probe over gRPC instead of HTTP.
type GRPCHealth struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// NewGRPCHealth creates a gRPC health server on the given port.
func NewGRPCHealth(port int) *GRPCHealth {
	return &GRPCHealth{port: port, health: health.NewServer()}
}

// SetServing flips the reported status of the daemon as a whole.
func (g *GRPCHealth) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
}

// ListenAndServe starts the gRPC health listener.
// It blocks until the context is cancelled.
func (g *GRPCHealth) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("grpc health listen: %w", err)
	}
	return g.serve(ctx, lis)
}

func (g *GRPCHealth) serve(ctx context.Context, lis net.Listener) error {
	g.server = grpc.NewServer()
	healthpb.RegisterHealthServer(g.server, g.health)

	slog.Info("grpc health listening", "addr", lis.Addr())

	go func() {
		<-ctx.Done()
		g.server.GracefulStop()
	}()

	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health serve: %w", err)
	}
	return nil
}
