package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"max_normalized_distance", cfg.Search.MaxNormalizedDistance,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdown := metrics.StartServer(cfg.Metrics.Port, m.Handler())
		defer shutdown(context.Background())
	}

	checker := health.NewChecker(0)

	var pg *postgres.Client
	if cfg.Corpus.Source == corpus.SourcePostgres || cfg.Analytics.Persist {
		var err error
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		checker.Register("postgres", health.FromError(cfg.Corpus.Source != corpus.SourcePostgres, pg.Ping))
	}

	var db corpus.Querier
	if pg != nil {
		db = pg.DB
	}
	engine, err := indexer.Load(ctx, cfg, db, m)
	if err != nil {
		return err
	}
	exec, err := engine.Executor(cfg.Search, cfg.Tracing.Enabled)
	if err != nil {
		return err
	}
	checker.Register("index", func(context.Context) health.ComponentHealth {
		st := engine.Stats()
		if st.Documents == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents, %d terms", st.Documents, st.Terms)}
	})

	opts := []handler.Option{
		handler.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxResults),
	}
	if m != nil {
		opts = append(opts, handler.WithMetrics(m))
	}

	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, _, to resilience.State) {
					if m != nil {
						m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
					}
				},
			})
			queryCache := cache.New(cache.NewRedisStore(redisClient), cfg.Redis.CacheTTL, breaker)
			opts = append(opts, handler.WithCache(queryCache))
			checker.Register("redis", health.FromError(true, redisClient.Ping))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	trackers := []analytics.Tracker{aggregator}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.SearchTopic)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{
			BufferSize:    cfg.Kafka.BufferEvents,
			BatchSize:     cfg.Kafka.BatchSize,
			FlushInterval: cfg.Kafka.FlushInterval,
		})
		collector.Start(ctx)
		defer collector.Close()
		trackers = append(trackers, collector)
	}
	if cfg.Analytics.Persist && pg != nil {
		store := analytics.NewStore(pg, cfg.Analytics.SnapshotKeep)
		snapshotDone := make(chan struct{})
		go func() {
			defer close(snapshotDone)
			store.RunPeriodic(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		}()
		defer func() { <-snapshotDone }()
	}
	opts = append(opts, handler.WithTracker(analytics.Multi(trackers...)))

	mux := http.NewServeMux()
	handler.New(exec, engine.Index(), opts...).Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if m != nil {
		mws = append(mws, middleware.Metrics(m))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Server.CORSOrigins))
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		go limiter.RunCleanup(ctx, 5*time.Minute)
		mws = append(mws, middleware.RateLimit(limiter))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}
