package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/internal/config"
	"github.com/sigi-k/vogdbAPI/logger"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/handler"
	"github.com/sigi-k/vogdbAPI/pkg/middle"
	"github.com/sigi-k/vogdbAPI/pkg/taxonomy"
)

const VERSION = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Establish logger
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	if err := logger.InitLogger(level, cfg.LogFormat == "json"); err != nil {
		panic(err)
	}
	defer logger.Sync() // Make sure that the buffered is flushed.

	if err := run(cfg); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Start:", zap.String("Version", VERSION))

	// Connect to db
	vdb, err := mydb.Open(ctx, cfg.DBDriver, cfg.DBDSN, mydb.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		QueryTimeout:    cfg.QueryTimeout,
	})
	if err != nil {
		return err
	}
	defer vdb.Close()
	logger.Info("Open database on", zap.String("driver", cfg.DBDriver))

	if cfg.DBInitSchema {
		if err := vdb.ApplySchema(ctx); err != nil {
			return err
		}
	}

	src, closeSrc, err := openTaxonomy(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	cache := taxonomy.NewCache(src, cfg.TaxonomyCacheSize, cfg.TaxonomyCacheTTL)
	refresher, err := taxonomy.NewRefresher(cache, src, cfg.TaxonomyRefreshCron)
	if err != nil {
		return err
	}
	refresher.Start()
	defer refresher.Stop()
	if cfg.TaxonomyWatch {
		if err := refresher.Watch(ctx, cfg.TaxonomyPath); err != nil {
			return err
		}
	}

	profiles, err := openProfiles(ctx, cfg)
	if err != nil {
		return err
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	registry := prometheus.NewRegistry()
	metrics := middle.NewMetrics()
	registry.MustRegister(metrics.Collectors()...)
	registry.MustRegister(cache.Collectors()...)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(vdb.SQL(), "vogdb"),
	)

	dbctx := &handler.DBContext{
		DB:       vdb,
		Taxonomy: cache,
		Profiles: profiles,
	}
	router := handler.NewRouter(dbctx, handler.RouterOptions{
		Logger:   logger.L(),
		Limiter:  limiter,
		Metrics:  metrics,
		Registry: registry,

		TrustProxy: cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openTaxonomy(ctx context.Context, cfg *config.Config) (taxonomy.Source, func(), error) {
	logger.Info("Open taxonomy", zap.String("source", cfg.TaxonomySource), zap.String("path", cfg.TaxonomyPath))
	switch cfg.TaxonomySource {
	case "nodes":
		fs, err := taxonomy.OpenNodesFile(cfg.TaxonomyPath)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		s, err := taxonomy.OpenSQLite(ctx, cfg.TaxonomyPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

func openProfiles(ctx context.Context, cfg *config.Config) (mydb.ProfileStore, error) {
	if cfg.ProfileBackend == "s3" {
		logger.Info("Profiles from s3", zap.String("bucket", cfg.S3Bucket), zap.String("prefix", cfg.S3Prefix))
		return mydb.NewS3ProfileStore(ctx, mydb.S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	logger.Info("Profiles from", zap.String("dir", cfg.DataDir))
	return mydb.NewFileProfileStore(cfg.DataDir)
}

// newLimiter shares limits through redis when an address is configured.
func newLimiter(ctx context.Context, cfg *config.Config) (middle.Limiter, func()) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not reachable, limiter fails open until it is", zap.Error(err))
		}
		return middle.NewRedisLimiter(client, cfg.RateLimitBurst, ""), func() { client.Close() }
	}
	local := middle.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	local.StartCleanup(ctx, time.Minute)
	return local, func() {}
}
