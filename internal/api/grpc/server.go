package grpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"autograde-backend/internal/api/grpc/interceptor"
	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/security"
)

// ServiceName is the health service name of the appraisal API as a whole.
const ServiceName = "autograde.Appraisal"

// Server exposes grpc.health.v1 and reflection next to the REST API.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

func NewServer(tokens security.TokenManager) *Server {
	auth := interceptor.NewAuthInterceptor(tokens)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.LoggingUnary(), auth.Unary()),
		grpc.ChainStreamInterceptor(auth.Stream()),
	)

	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)

	// Register reflection service for grpcurl
	reflection.Register(srv)

	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{srv: srv, health: h}
}

// SetServing flips the overall and API status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// SetProviderAvailable reports whether an enrichment kind has a provider,
// under the service name "autograde.Enrichment/<kind>".
func (s *Server) SetProviderAvailable(kind domain.EnrichmentKind, available bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if available {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ProviderServiceName(kind), st)
}

// ProviderServiceName is the health service name of an enrichment kind.
func ProviderServiceName(kind domain.EnrichmentKind) string {
	return "autograde.Enrichment/" + string(kind)
}

func (s *Server) Serve(lis net.Listener) error {
	logger.Info("gRPC server listening", "address", lis.Addr().String())
	return s.srv.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains open RPCs.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
