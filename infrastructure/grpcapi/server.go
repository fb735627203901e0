package grpcapi

import (
	"log/slog"
	"messenger/auth"
	"messenger/contract"
	"messenger/errors"
	"messenger/runtime"
	"net"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes the health service and the Events service on one listener.
type Server struct {
	log    *slog.Logger
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(log *slog.Logger, issuer *auth.TokenIssuer, sessions contract.ISessionRegistry,
	dispatcher runtime.IDispatcher, connectionBufferSize int) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(log),
			auth.UnaryInterceptor(issuer),
		),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(issuer)),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	s.RegisterService(&eventsServiceDesc, NewEventsServer(log, sessions, dispatcher, connectionBufferSize))
	healthServer.SetServingStatus(EventsServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return &Server{log: log, grpc: s, health: healthServer}
}

// Serve blocks until Stop. A stopped server is not an error.
func (s *Server) Serve(listener net.Listener) error {
	s.log.Info("Starting gRPC server", "address", listener.Addr().String())
	for serviceName := range s.grpc.GetServiceInfo() {
		s.log.Debug("gRPC exposed services", "name", serviceName)
	}
	if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop flips health to NOT_SERVING and drains calls. Push streams only end
// when their client leaves, so after timeout the remaining ones are cut.
func (s *Server) Stop(timeout time.Duration) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("gRPC graceful stop timed out, closing remaining streams")
		s.grpc.Stop()
		<-done
	}
}
