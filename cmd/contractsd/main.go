// Command contractsd watches a directory for parsed documents and extracts each one
// as it lands, serving gRPC health while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/contract-extractor/internal/async"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/ingest"
	repo "github.com/joseph-ayodele/contract-extractor/internal/repository"
	svc "github.com/joseph-ayodele/contract-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $CONTRACTS_CONFIG)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)

	if err := cfg.Validate(true); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}
	if cfg.Watch.Dir == "" {
		logger.Error("watch.dir (WATCH_DIR) is required")
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, ledger, err := svc.ConnectLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		os.Exit(1)
	}
	defer svc.CloseLedger(db, logger)

	store, err := repo.OpenRecordStore(cfg.Store.Path, logger)
	if err != nil {
		logger.Error("failed to open record store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close record store", "error", err)
		}
	}()

	processor, err := svc.NewProcessor(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build processor", "error", err)
		os.Exit(1)
	}
	runner := svc.NewRunner(cfg, processor, store, ledger, logger)

	// one job may sleep through every backoff before it finishes
	jobTimeout := time.Duration(cfg.Batch.MaxAttempts)*cfg.Batch.DocumentTimeout + time.Duration(cfg.Batch.MaxAttempts-1)*cfg.Batch.MaxBackoff
	queue := async.NewProcessorQueue(runner, logger,
		async.WithWorkers(cfg.Watch.Workers),
		async.WithQueueSize(cfg.Watch.QueueSize),
		async.WithProcessTimeout(jobTimeout),
	)

	paths, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Watch.Dir},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    cfg.Watch.Debounce,
	}, logger)
	if err != nil {
		os.Exit(1)
	}
	go func() {
		for p := range paths {
			if err := queue.Enqueue(ctx, async.Job{Path: p}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("failed to enqueue document", "path", p, "error", err)
			}
		}
	}()
	go func() {
		for err := range watchErrs {
			logger.Warn("watch error", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	health := svc.NewHealthService(ledger, logger, 15*time.Second)
	health.Register(grpcServer)
	reflection.Register(grpcServer)
	go health.Run(ctx)

	logger.Info("contractsd listening", "addr", addr, "watch_dir", cfg.Watch.Dir, "store", cfg.Store.Path)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	health.Shutdown()

	// jobs still running after the grace period are cancelled and recorded as interrupted
	// before the deferred store and ledger closes run
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
	grpcServer.GracefulStop()
}
