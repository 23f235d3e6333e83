package transport

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	grpc   *grpc.Server
	lis    net.Listener
	health *health.Server
}

// StartServer listens on addr ("host:port", port 0 picks one) and registers
// the event sink plus the standard health service. Call Serve to accept.
func StartServer(addr string, impl EventSinkServer, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		grpc:   grpc.NewServer(opts...),
		lis:    lis,
		health: health.NewServer(),
	}
	RegisterEventSinkServer(s.grpc, impl)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
