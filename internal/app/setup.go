// Package app contains the application setup for the catalog service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/dongyi/catalog/internal/cache"
	"github.com/dongyi/catalog/internal/config"
	"github.com/dongyi/catalog/internal/images"
	"github.com/dongyi/catalog/internal/service"
	"github.com/dongyi/catalog/internal/store"
	grpcImpl "github.com/dongyi/catalog/internal/transport/grpc"
	"github.com/dongyi/catalog/internal/transport/rest"
	"github.com/dongyi/catalog/pkg/messaging"
	"github.com/dongyi/catalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Infrastructure holds the connections built in main. Redis is nil when the cache is disabled.
type Infrastructure struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Objects   images.ObjectStore
	Publisher messaging.Publisher
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type Dependencies struct {
	ProductService service.ProductService
	Metrics        http.Handler
	Logger         *slog.Logger
}

func SetupDependencies(infra Infrastructure, cfg *config.Config, logger *slog.Logger) *Dependencies {
	var repo store.ProductStore = store.NewPgStore(infra.DB)
	if infra.Redis != nil {
		repo = store.NewCachedStore(repo, cache.NewRedisCache(infra.Redis), cfg.Cache.TTL, logger)
	}
	pService := service.NewService(repo, infra.Objects, infra.Publisher, logger)

	return &Dependencies{
		ProductService: pService,
		Metrics:        infra.Metrics,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the routes, middleware and tracing of the catalog service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return server.WithTracing(mux, "catalog-http")
}

// wireRoutes sets up the HTTP routes for the catalog service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the catalog service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}

// SetupGrpcServer initializes the gRPC server for the catalog service.
func SetupGrpcServer(deps *Dependencies, cfg *config.Config) (*grpc.Server, *health.Server) {
	// Service registration function for gRPC server
	productRegisterFunc := func(s *grpc.Server) {
		productGRPCServer := grpcImpl.NewServer(deps.ProductService, deps.Logger)
		grpcImpl.RegisterProductServiceServer(s, productGRPCServer)
	}
	return server.NewGRPCServer(server.GRPCOptions{
		Reflection: cfg.GRPC.ReflectionEnabled,
		Tracing:    cfg.Telemetry.Enabled,
		Timeout:    cfg.GRPC.Timeout,
		Logger:     deps.Logger,
	}, productRegisterFunc)
}
