// Package grpcapi exposes the standard gRPC health service so readers
// and load balancers can probe the tap server.
package grpcapi

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/BrandonDHaskell/tagbook/internal/platform/logger"
)

// TapService is the health service name readers probe before tapping.
const TapService = "tagbook.v1.Taps"

type Dependencies struct {
	Logger *logger.Logger
	Addr   string
	// Ping checks storage; a failing ping flips status to NOT_SERVING.
	Ping          func(ctx context.Context) error
	CheckInterval time.Duration
}

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	log      *logger.Logger
	addr     string
	ping     func(ctx context.Context) error
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.CheckInterval <= 0 {
		d.CheckInterval = 10 * time.Second
	}
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		log:      d.Logger.With("service", "GRPCServer"),
		addr:     d.Addr,
		ping:     d.Ping,
		interval: d.CheckInterval,
		done:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(true)
	return s
}

// SetServing updates both the overall and the tap service status.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(TapService, status)
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis and, when a ping is configured, keeps the health
// status in step with it.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	if s.ping != nil {
		s.mu.Lock()
		if s.cancel == nil {
			ctx, s.cancel = context.WithCancel(ctx)
			go s.watch(ctx)
		}
		s.mu.Unlock()
	}
	s.log.Info("grpc health listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-s.done
	}
	s.grpc.GracefulStop()
}

func (s *Server) watch(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, s.interval)
			err := s.ping(pctx)
			cancel()
			if ok := err == nil; ok != healthy {
				healthy = ok
				s.SetServing(ok)
				if ok {
					s.log.Info("storage healthy again")
				} else {
					s.log.Warn("storage ping failed", "err", err)
				}
			}
		}
	}
}
