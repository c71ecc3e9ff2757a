package bootstrap

import (
	"context"
	"log/slog"
	"net"

	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/eleven-am/interview-coach/internal/interview"
)

// interviewService is the name reported by the gRPC health service.
const interviewService = "interview"

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer()
}

func ProvideHealthServer() *health.Server {
	return health.NewServer()
}

func RegisterHealthService(server *grpc.Server, hs *health.Server, manager *interview.Manager) {
	healthpb.RegisterHealthServer(server, hs)
	hs.SetServingStatus(interviewService, servingStatus(manager.CredentialConfigured()))
}

func servingStatus(configured bool) healthpb.HealthCheckResponse_ServingStatus {
	if configured {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

func StartGRPCServer(lc fx.Lifecycle, server *grpc.Server, hs *health.Server, cfg *Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			go func() {
				logger.Info("gRPC server starting", "addr", cfg.GRPCAddr)
				if err := server.Serve(lis); err != nil {
					logger.Error("gRPC server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			hs.Shutdown()
			server.GracefulStop()
			return nil
		},
	})
}

var GRPCModule = fx.Options(
	fx.Provide(NewGRPCServer, ProvideHealthServer),
	fx.Invoke(RegisterHealthService),
	fx.Invoke(StartGRPCServer),
)
