package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/sbi-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sbi-core/internal/simd"
	"github.com/GoSim-25-26J-441/sbi-core/internal/store"
	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/config"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
)

func main() {
	var (
		configPath string
		envFile    string
		grpcAddr   string
		httpAddr   string
		logLevel   string
		runSetup   bool
	)

	flag.StringVar(&configPath, "config", "", "path to YAML config (defaults built in)")
	flag.StringVar(&envFile, "env-file", ".env", "optional .env file with SBI_* overrides")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides config)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.BoolVar(&runSetup, "setup", false, "generate and store observations before serving")
	flag.Parse()

	cfg, err := loadConfig(configPath, envFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if grpcAddr != "" {
		cfg.Server.GRPCAddr = grpcAddr
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.SetDefault(logger.NewWithFormat(cfg.LogFormat, cfg.LogLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runSetup); err != nil {
		logger.Error("simd exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(path, envFile string) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Storage.SQLitePath == "" {
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(ctx, cfg.Storage.SQLitePath)
}

func newTask(cfg *config.Config, src task.ObservationSource, c *metrics.Collector) (*task.Task, error) {
	opts := []task.Option{
		task.WithDim(cfg.Task.Dim),
		task.WithPriorBound(cfg.Task.PriorBound),
		task.WithObservationSource(src),
		task.WithMetrics(c),
	}
	if m := cfg.Task.Mixture; m != nil {
		opts = append(opts, task.WithMixture(m.LocsFactor, m.Scales, m.Weights))
	}
	if cfg.Sampling.Seed != 0 {
		opts = append(opts, task.WithObservationSeed(cfg.Sampling.Seed))
	}
	return task.New(opts...)
}

func run(ctx context.Context, cfg *config.Config, runSetup bool) error {
	timeout, err := cfg.Sampling.GetTimeout()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	collector := metrics.NewCollector()
	tk, err := newTask(cfg, st, collector)
	if err != nil {
		return err
	}

	if runSetup {
		results, err := tk.Setup(ctx, st, task.SetupOptions{
			MaxAttempts: cfg.Sampling.MaxAttempts,
			Workers:     cfg.Sampling.Workers,
		})
		if err != nil {
			return err
		}
		logger.Info("observations ready", "count", len(results))
	}

	service := simd.NewService(tk, simd.ServiceOptions{
		Store:             st,
		Metrics:           collector,
		MaxSimulatorCalls: cfg.Sampling.MaxSimulatorCalls,
		MaxAttempts:       cfg.Sampling.MaxAttempts,
		MaxSamples:        cfg.Sampling.MaxSamples,
		Timeout:           timeout,
	})
	jobs := simd.NewJobStore(collector)
	executor := simd.NewJobExecutor(jobs, service)
	executor.SetNotifier(simd.NewNotifier())

	// TODO: Configure gRPC server security (e.g., TLS, authentication)
	// before exposing this service outside a trusted network.
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(simd.RecoveryUnaryInterceptor))
	simd.RegisterTaskServiceServer(grpcServer, simd.NewTaskGRPCServer(service))

	errCh := make(chan error, 2)

	if cfg.Server.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				errCh <- err
			}
		}()
	}

	var httpSrv *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           simd.NewHTTPServer(service, jobs, executor).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-errCh:
		logger.Error("server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	executor.StopAll()
	grpcServer.GracefulStop()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", "error", err)
		}
	}
	return serveErr
}
