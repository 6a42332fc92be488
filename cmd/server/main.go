package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"memoria/internal/audit"
	"memoria/internal/classify"
	"memoria/internal/curator"
	curatorworker "memoria/internal/curator/worker"
	jwttoken "memoria/internal/jwt_token"
	"memoria/internal/match"
	"memoria/internal/platform/config"
	"memoria/internal/platform/httpserver"
	"memoria/internal/platform/logger"
	"memoria/internal/platform/metrics"
	"memoria/internal/platform/postgres"
	"memoria/internal/platform/redis"
	reviewhandler "memoria/internal/review/handler"
	reviewservice "memoria/internal/review/service"
	reviewstore "memoria/internal/review/store"
	httptransport "memoria/internal/transport/http"
	watchlisthandler "memoria/internal/watchlist/handler"
	watchlistservice "memoria/internal/watchlist/service"
	watchliststore "memoria/internal/watchlist/store"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	checks := map[string]httptransport.HealthCheck{}

	// Stores fall back to memory when no DSN is configured, which keeps local
	// runs dependency-free.
	var (
		watchlist  watchliststore.Store = watchliststore.NewInMemory()
		queue      reviewstore.Queue    = reviewstore.NewInMemory()
		auditStore audit.Store          = audit.NewInMemoryStore()
		locker     reviewstore.Locker   = reviewstore.NewMemoryLocker()
	)
	if cfg.DatabaseDSN != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}

		watchlist = watchliststore.NewPostgres(db)
		queue = reviewstore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	}

	if cfg.RedisURL != "" {
		redisClient, err := redis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		locker = reviewstore.NewRedisLocker(redisClient.Client)
		checks["redis"] = redisClient.Health
	}

	var sinks []audit.Sink
	if cfg.KafkaBrokers != "" {
		kafkaSink, err := audit.NewKafkaSink(strings.Split(cfg.KafkaBrokers, ","), audit.DefaultTopic)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	// Services emit through the async worker so audit writes stay off the
	// request path; the synchronous publisher underneath owns persistence.
	publisher := audit.NewPublisher(auditStore, log, sinks...)
	auditor := audit.NewWorker(publisher, log, 256)

	classifier, err := classify.New(classify.Thresholds{
		AutoApprove:   cfg.Matching.AutoApprove,
		CuratorReview: cfg.Matching.CuratorReview,
		Floor:         cfg.Matching.Floor,
	})
	if err != nil {
		log.Error("invalid matching thresholds", "error", err)
		os.Exit(1)
	}

	var reviewCurator curator.Curator = curator.NewStub()
	if cfg.Curator.Endpoint != "" {
		reviewCurator = curator.NewHTTP(cfg.Curator)
	}

	reviewSvc := reviewservice.New(
		watchlist,
		queue,
		match.New(cfg.Matching.Floor),
		classifier,
		nil,
		auditor,
		m,
		log,
	)
	worker := curatorworker.New(reviewSvc, reviewCurator, locker, auditor, m, log, curatorworker.Config{
		CallTimeout: cfg.Curator.Timeout,
		MaxAttempts: cfg.Curator.MaxAttempts,
	})
	reviewSvc.SetScheduler(worker)

	watchlistSvc := watchlistservice.New(watchlist, log, m, auditor)
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "memoria", "memoria-review")

	router := httptransport.NewRouter(checks,
		reviewhandler.New(reviewSvc, log, m, jwtService),
		watchlisthandler.New(watchlistSvc, log, m, jwtService),
	)
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting memoria", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := worker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		err := auditor.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	log.Info("memoria stopped")
}
