package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// LedgerServiceName is the health service name reporting ledger reachability.
const LedgerServiceName = "contracts.Ledger"

// Pinger is satisfied by repository.Ledger.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService publishes gRPC health for the daemon. The overall status and the
// ledger service follow the result of a periodic ledger ping.
type HealthService struct {
	hs       *health.Server
	ledger   Pinger
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewHealthService(ledger Pinger, logger *slog.Logger, interval time.Duration) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthService{
		hs:       health.NewServer(),
		ledger:   ledger,
		logger:   logger,
		interval: interval,
		timeout:  3 * time.Second,
	}
}

func (s *HealthService) Register(g *grpc.Server) {
	healthpb.RegisterHealthServer(g, s.hs)
}

// Check pings the ledger once and updates the published status.
func (s *HealthService) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.ledger.Ping(pctx); err != nil {
		s.logger.Warn("health.ledger.unreachable", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(LedgerServiceName, st)
	return st
}

// Run checks immediately and then every interval until ctx is done.
func (s *HealthService) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	last := s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if st := s.Check(ctx); st != last {
				s.logger.Info("health.status.changed", "from", last.String(), "to", st.String())
				last = st
			}
		}
	}
}

// Shutdown reports NOT_SERVING to every watcher ahead of GracefulStop.
func (s *HealthService) Shutdown() {
	s.hs.Shutdown()
}
