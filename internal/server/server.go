// Package server exposes the daemon's gRPC health endpoint.
package server

import (
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Services reported besides the overall ("") status.
const (
	ServiceLedger   = "orderbridge.ledger"
	ServicePipeline = "orderbridge.pipeline"
)

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{grpc: gs, health: hs, logger: logger}
	s.SetServing("", true)
	return s
}

// SetServing updates one service's status; "" is the whole server.
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
	s.logger.Debug("server.health.set", "service", service, "status", status.String())
}

// Serve blocks until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("server.listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		s.logger.Error("server.serve.error", "error", err)
		return err
	}
	return nil
}

// Stop marks every service NOT_SERVING and drains open calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Info("server.stopped")
}
