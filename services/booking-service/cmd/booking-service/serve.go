package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/agendasalon/agenda/libs/config"
	"github.com/agendasalon/agenda/libs/db"
	"github.com/agendasalon/agenda/libs/grpcx"
	"github.com/agendasalon/agenda/libs/httpx"
	"github.com/agendasalon/agenda/libs/kafkax"
	otelx "github.com/agendasalon/agenda/libs/otel"
	"github.com/agendasalon/agenda/libs/runtime"
	"github.com/agendasalon/agenda/services/booking-service/internal/booking"
	"github.com/agendasalon/agenda/services/booking-service/internal/handlers"
	"github.com/agendasalon/agenda/services/booking-service/internal/metrics"
	"github.com/agendasalon/agenda/services/booking-service/internal/outbox"
	"github.com/agendasalon/agenda/services/booking-service/internal/storage"
	"github.com/agendasalon/agenda/services/booking-service/migrations"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type settings struct {
	service         string
	port            string
	grpcPort        string
	databaseURL     string
	dbMaxConns      int
	defaultTimezone string
	txTimeout       time.Duration
	lockTimeout     time.Duration
	kafkaBrokers    string
	redisAddr       string
	rateLimit       int
	corsOrigins     []string
	migrateOnStart  bool
}

func loadSettings() (settings, error) {
	var s settings
	var err error
	s.service = config.String("SERVICE_NAME", "booking-service")
	if s.port, err = config.Port("PORT", "8083"); err != nil {
		return s, err
	}
	if s.grpcPort, err = config.Port("GRPC_PORT", "9083"); err != nil {
		return s, err
	}
	if s.databaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return s, err
	}
	if s.dbMaxConns, err = config.Int("DB_MAX_CONNS", 10); err != nil {
		return s, err
	}
	if s.txTimeout, err = config.Duration("BOOKING_TX_TIMEOUT", 5*time.Second); err != nil {
		return s, err
	}
	if s.lockTimeout, err = config.Duration("BOOKING_LOCK_TIMEOUT", 2*time.Second); err != nil {
		return s, err
	}
	if s.rateLimit, err = config.Int("RATE_LIMIT_PER_MIN", 120); err != nil {
		return s, err
	}
	s.defaultTimezone = config.String("DEFAULT_TIMEZONE", "America/Sao_Paulo")
	s.kafkaBrokers = config.String("KAFKA_BROKERS", "")
	s.redisAddr = config.String("REDIS_ADDR", "")
	s.corsOrigins = config.List("CORS_ORIGINS")
	s.migrateOnStart = config.Bool("MIGRATE_ON_START", false)
	return s, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg settings) error {
	logger := runtime.NewLogger(cfg.service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := time.LoadLocation(cfg.defaultTimezone)
	if err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}

	pool, err := db.Open(ctx, cfg.databaseURL, db.Options{MaxConns: int32(cfg.dbMaxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	if cfg.migrateOnStart {
		n, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "count", n)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	outboxRepo := outbox.NewRepository()
	store := storage.NewStore(pool, outboxRepo, cfg.lockTimeout)
	svc := booking.NewService(store, logger, m, booking.Config{
		TxTimeout: cfg.txTimeout,
		Location:  loc,
	})

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:     cfg.kafkaBrokers,
		PollEvery:   2 * time.Second,
		BatchSize:   50,
		OnPublished: m.OutboxPublished,
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if cfg.kafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.kafkaBrokers)})
	}

	var limiter httpx.Limiter = httpx.NewMemoryRateLimiter(cfg.rateLimit, time.Minute)
	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.rateLimit, time.Minute, "booking:ratelimit:")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	r := chi.NewRouter()
	r.Get("/healthz", runtime.HealthHandler())
	r.Get("/readyz", runtime.ReadyHandler(checks...))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handlers.NewAppointmentHandler(svc, logger).Mount(r, httpx.RateLimit(limiter, logger, true))

	httpHandler := httpx.Chain(r,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.corsOrigins)),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcx.NewServer(logger)
	grpcSrv.SetServing("", true)
	grpcSrv.SetServing(cfg.service, true)
	lis, err := net.Listen("tcp", ":"+cfg.grpcPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("server failed", "err", err)
	}

	shutdown(logger, srv, grpcSrv)
	return err
}

func shutdown(logger *slog.Logger, srv *http.Server, grpcSrv *grpcx.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	grpcSrv.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("servers stopped")
}
