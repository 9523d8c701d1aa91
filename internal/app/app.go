package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/report-collector/internal/collector"
	"github.com/godilite/report-collector/internal/config"
	"github.com/godilite/report-collector/internal/fetchcache"
	handler "github.com/godilite/report-collector/internal/grpc"
	"github.com/godilite/report-collector/internal/metrics"
	"github.com/godilite/report-collector/internal/repository"
	"github.com/godilite/report-collector/pkg/cache"
	dbbuilder "github.com/godilite/report-collector/pkg/database"
	grpcsrv "github.com/godilite/report-collector/pkg/grpc/server"
	"github.com/godilite/report-collector/pkg/reportapi"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	api       *reportapi.Client
	cache     fetchcache.Cacher
	collector *collector.Collector
	dbPool    *sql.DB
	snapshots *repository.SnapshotRepository
}

// Option customises NewApp, mostly for tests.
type Option func(*appOptions)

type appOptions struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the HTTP client used against the reporting API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *appOptions) { o.httpClient = c }
}

// NewApp wires the reporting client, fetch cache, collector and snapshot store.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	apiOpts := []reportapi.Option{
		reportapi.WithBaseURL(cfg.ReportAPIBaseURL),
		reportapi.WithToken(cfg.ReportAPIToken),
		reportapi.WithTimeout(cfg.HTTPTimeout),
		reportapi.WithRateLimit(cfg.RequestRateLimit, 1),
		reportapi.WithStrictStatus(cfg.StrictStatus),
		reportapi.WithLogger(logger),
		reportapi.WithObserver(a.metrics.ObserveRequest),
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, reportapi.WithHTTPClient(o.httpClient))
	}
	a.api, err = reportapi.New(apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("report API client init failed: %w", err)
	}
	logger.Info("Report API client initialized", zap.String("base_url", a.api.BaseURL()))

	var fetcher collector.Fetcher = a.api
	switch cfg.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedis(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		a.cache = rc
		logger.Info("Redis fetch cache initialized", zap.String("addr", cfg.RedisAddr))
	case config.CacheMemory:
		a.cache = cache.NewMemory()
		logger.Info("In-memory fetch cache initialized")
	}
	if a.cache != nil {
		fetcher = fetchcache.New(a.api, a.cache,
			fetchcache.WithTTL(cfg.CacheTTL),
			fetchcache.WithLogger(logger),
			fetchcache.WithObserver(a.metrics.ObserveCache),
		)
	}

	a.collector = collector.NewCollector(fetcher, logger)

	if cfg.SnapshotsEnabled {
		a.dbPool, err = dbbuilder.Open(ctx,
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
		)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		a.snapshots = repository.NewSnapshotRepository(a.dbPool)
		if err = a.snapshots.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Info("Snapshot store initialized", zap.String("path", cfg.DBPath))
	}

	return a, nil
}

// Collector exposes the wired collector.
func (a *App) Collector() *collector.Collector { return a.collector }

// Metrics exposes the application registry.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// RunOnce performs one collection and stores it when snapshots are enabled.
func (a *App) RunOnce(ctx context.Context, opts collector.RunOptions) (collector.Result[*collector.Dataset], error) {
	if opts.BaseURL == "" {
		opts.BaseURL = a.api.BaseURL()
	}

	res, err := a.collector.Run(ctx, opts)
	if err != nil {
		a.metrics.ObserveRun("error")
		return res, err
	}
	a.metrics.ObserveRun(res.Status.String())

	ds, ok := res.Get()
	if !ok || a.snapshots == nil {
		return res, nil
	}
	if err := a.snapshots.SaveSnapshot(ctx, ds); err != nil {
		return res, fmt.Errorf("save snapshot: %w", err)
	}
	a.logger.Info("snapshot saved", zap.String("run_id", ds.RunID))
	return res, nil
}

// Serve starts the gRPC and metrics servers and blocks until ctx is done.
// lis may be nil, in which case GRPC_PORT is used.
func (a *App) Serve(ctx context.Context, lis net.Listener) error {
	serverOpts := []grpcsrv.Option{
		grpcsrv.WithPort(a.cfg.GRPCPort),
		grpcsrv.WithLogger(a.logger),
		grpcsrv.WithReflection(a.cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
	}
	if lis != nil {
		serverOpts = append(serverOpts, grpcsrv.WithListener(lis))
	}
	grpcServer, err := grpcsrv.New(serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	var snapshots handler.SnapshotStore
	if a.snapshots != nil {
		snapshots = a.snapshots
	}
	grpcHandlers := handler.NewGRPCHandlers(a.collector, snapshots, a.logger, a.cfg.RunTimeout)
	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterReportServiceServer(s, grpcHandlers)
	})

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.MetricsPort),
		Handler:           a.metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics server starting", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	grpcServer.Start()

	<-ctx.Done()
	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return multierr.Combine(
		grpcServer.Shutdown(shutdownCtx),
		metricsServer.Shutdown(shutdownCtx),
	)
}

func (a *App) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}

// Run serves until SIGINT or SIGTERM, then releases every resource.
func (a *App) Run() error {
	a.logger.Info("application starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := a.Serve(ctx, nil)
	err = multierr.Append(err, a.Close())
	if err != nil {
		a.logger.Error("shutdown completed with errors", zap.Error(err))
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return err
}

// Close releases the cache and database pool.
func (a *App) Close() error {
	var err error
	if a.cache != nil {
		err = multierr.Append(err, a.cache.Close())
		a.cache = nil
	}
	if a.dbPool != nil {
		err = multierr.Append(err, a.dbPool.Close())
		a.dbPool = nil
	}
	return err
}
