package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/api"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/clock/system"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/config"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/pubmed-pdf-resolver/internal/fetcher/colly"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/fetcher/static"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/id/uuid"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/jobs"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/logging"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/metrics"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/pubmed-pdf-resolver/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/pubmed-pdf-resolver/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/pubmed-pdf-resolver/internal/queue/memory"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/resolver"
	memoryStorage "github.com/JakeFAU/pubmed-pdf-resolver/internal/storage/memory"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/telemetry"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/worker"
)

type closingPublisher interface {
	jobs.Publisher
	io.Closer
}

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, "pubmed-pdf-resolver")
	if err != nil {
		logger.Warn("tracer provider init failed", zap.Error(err))
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("tracer provider shutdown failed", zap.Error(err))
			}
		}()
	}

	if err := run(ctx, stop, cfg, logger); err != nil {
		logger.Error("resolver service failed", zap.Error(err))
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg config.Config, logger *zap.Logger) error {
	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}
	manager := resolver.NewManager(fetcher, resolver.WithLogger(logger.Named("resolver")))
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn("fetcher close failed", zap.Error(err))
		}
	}()

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("publisher close failed", zap.Error(err))
		}
	}()

	clock := system.New()
	jobStore := memoryStorage.NewJobStore(uuid.New(), clock)
	queue := queueMemory.NewQueue(cfg.Runner.QueueDepth)

	workerCfg := worker.Config{
		ItemConcurrency: cfg.Runner.ItemConcurrency,
		Topic:           cfg.PubSub.TopicName,
	}
	runners := make([]dispatcher.Runner, 0, cfg.Runner.Concurrency)
	for i := range cfg.Runner.Concurrency {
		runners = append(runners, worker.New(
			queue,
			jobStore,
			manager,
			publisher,
			clock,
			workerCfg,
			logger.With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, runners, clock)

	apiServer := api.NewServer(jobStore, dispatch, manager, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		logger.Info("dispatcher started", zap.Int("workers", len(runners)))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.Bool("mock_mode", cfg.Resolver.MockMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")
	apiServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	<-dispatchDone
	logger.Info("shutdown complete")
	return nil
}

func newFetcher(cfg config.Config, logger *zap.Logger) (resolver.Fetcher, error) {
	if cfg.Resolver.MockMode {
		if cfg.Resolver.MockPagesFile == "" {
			logger.Info("using built-in canned article pages")
			return static.NewDemo(), nil
		}
		f, err := static.LoadFile(cfg.Resolver.MockPagesFile)
		if err != nil {
			return nil, fmt.Errorf("init mock fetcher: %w", err)
		}
		logger.Info("using canned article pages", zap.String("path", cfg.Resolver.MockPagesFile))
		return f, nil
	}
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Resolver.UserAgent,
		Timeout:       cfg.FetchTimeout(),
		Retries:       cfg.Resolver.Retries,
		Backoff:       cfg.FetchBackoff(),
		RespectRobots: cfg.Resolver.RespectRobots,
		Limiter: ratelimit.New(ratelimit.Config{
			RPS:   cfg.Resolver.HostRPS,
			Burst: cfg.Resolver.HostBurst,
		}),
	}, logger.Named("fetcher")), nil
}

func newPublisher(ctx context.Context, cfg config.Config) (closingPublisher, error) {
	if !cfg.PubSub.Enabled() {
		return memorypublisher.New(), nil
	}
	pub, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	return pub, nil
}
