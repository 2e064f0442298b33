package server

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// RegistrationFunc registers a grpc service with the server.
type RegistrationFunc func(*grpc.Server)

// GRPCOptions configures NewGRPCServer.
type GRPCOptions struct {
	Reflection bool
	Tracing    bool
	// Timeout bounds every unary call; zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewGRPCServer creates a gRPC server with the standard health service, optional reflection,
// OTel instrumentation and the given service registrations.
// The returned health server starts in SERVING state for the empty service name.
func NewGRPCServer(opts GRPCOptions, registerFunc ...RegistrationFunc) (*grpc.Server, *health.Server) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interceptors := []grpc.UnaryServerInterceptor{UnaryServerLogger(logger)}
	if opts.Timeout > 0 {
		interceptors = append(interceptors, UnaryServerTimeoutInterceptor(opts.Timeout))
	}
	serverOpts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}
	if opts.Tracing {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	grpcServer := grpc.NewServer(serverOpts...)

	if opts.Reflection {
		reflection.Register(grpcServer)
	}

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	for _, regFunc := range registerFunc {
		regFunc(grpcServer)
	}

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return grpcServer, healthServer
}
