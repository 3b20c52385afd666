package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check sonde une dépendance (Postgres, NATS, Redis, Neo4j).
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Server expose le service de santé gRPC standard (probes K8s, grpc-health-probe).
// Le statut global "" est SERVING seulement si toutes les dépendances répondent.
type Server struct {
	grpcServer  *grpc.Server
	health      *health.Server
	serviceName string
	checks      []Check
	interval    time.Duration
}

func NewServer(serviceName string, enableReflection bool, checks ...Check) *Server {
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()), // Auto-tracing des requêtes
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	// Reflection (Pour tester avec grpcurl en dev)
	if enableReflection {
		reflection.Register(grpcServer)
		slog.Info("🔍 gRPC Reflection enabled")
	}

	return &Server{
		grpcServer:  grpcServer,
		health:      healthServer,
		serviceName: serviceName,
		checks:      checks,
		interval:    10 * time.Second,
	}
}

// Serve bloque jusqu'à l'annulation de ctx, puis arrête le serveur proprement.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.probe(ctx)
	go s.watch(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🚀 gRPC Server listening", "address", lis.Addr())
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.health.Shutdown() // tout passe NOT_SERVING
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("✅ gRPC Server stopped gracefully")
	case <-time.After(10 * time.Second):
		slog.Warn("⏳ Timeout reached, forcing server stop")
		s.grpcServer.Stop()
	}
	return nil
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe met à jour un statut par dépendance ("<service>.<dep>") et le statut agrégé.
func (s *Server) probe(ctx context.Context) {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for _, c := range s.checks {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Ping(pingCtx)
		cancel()

		st := grpc_health_v1.HealthCheckResponse_SERVING
		if err != nil {
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = st
			slog.Warn("dependency unhealthy", "dependency", c.Name, "error", err)
		}
		s.health.SetServingStatus(s.serviceName+"."+c.Name, st)
	}
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(s.serviceName, overall)
}

// Ready agrège les sondes pour le /healthz HTTP.
func (s *Server) Ready(ctx context.Context) error {
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
