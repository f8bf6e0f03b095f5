package api

import (
	"net"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/state"
)

// UpdaterService is the health service name that tracks whether the updater is idle
const UpdaterService = "nextui.updater"

// GRPCServer exposes the standard gRPC health and reflection services. The overall status is
// always SERVING; UpdaterService is NOT_SERVING while a task is running.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
}

// NewGRPCServer creates a health server that follows st's busy flag
func NewGRPCServer(st *state.Manager) *GRPCServer {
	s := &GRPCServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.setBusy(st.Busy())
	st.OnBusyChange(s.setBusy)
	return s
}

func (s *GRPCServer) setBusy(busy bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if busy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(UpdaterService, status)
}

// Serve accepts connections on lis until Stop is called
func (s *GRPCServer) Serve(lis net.Listener) error {
	log.Infof("gRPC health server listening on %s", lis.Addr())
	return s.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the server gracefully
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
