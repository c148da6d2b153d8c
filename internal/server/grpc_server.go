package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// HealthRegistrar serves grpc.health.v1 and keeps the overall status in
// sync with the given checks.
type HealthRegistrar struct {
	srv      *health.Server
	checks   map[string]Checker
	interval time.Duration
	log      *slog.Logger
}

func NewHealthRegistrar(log *slog.Logger, checks map[string]Checker) *HealthRegistrar {
	return &HealthRegistrar{
		srv:      health.NewServer(),
		checks:   checks,
		interval: 10 * time.Second,
		log:      log,
	}
}

func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Probe runs every check once and publishes the result.
func (h *HealthRegistrar) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(cctx)
		cancel()
		if err != nil {
			h.log.Warn("health check failed", "dependency", name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.srv.SetServingStatus("", status)
	return status
}

// Watch probes until ctx is done, then marks the server as shutting down.
func (h *HealthRegistrar) Watch(ctx context.Context) {
	h.Probe(ctx)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-t.C:
			h.Probe(ctx)
		}
	}
}

// StartGRPCServer boots a gRPC server, registers all provided services and
// serves until ctx is canceled.
func StartGRPCServer(ctx context.Context, addr string, registrars ...GRPCRegistrar) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}
