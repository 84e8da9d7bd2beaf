package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	requesthandler "bloodlink/internal/bloodrequest/handler"
	requestservice "bloodlink/internal/bloodrequest/service"
	donorhandler "bloodlink/internal/donor/handler"
	donorservice "bloodlink/internal/donor/service"
	jwttoken "bloodlink/internal/jwt_token"
	matchinghandler "bloodlink/internal/matching/handler"
	matchingmetrics "bloodlink/internal/matching/metrics"
	matchingservice "bloodlink/internal/matching/service"
	"bloodlink/internal/matching/store/statscache"
	notificationhandler "bloodlink/internal/notification/handler"
	notificationmetrics "bloodlink/internal/notification/metrics"
	notificationservice "bloodlink/internal/notification/service"
	kafkasink "bloodlink/internal/notification/sink/kafka"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/httpserver"
	"bloodlink/internal/platform/kafka"
	"bloodlink/internal/platform/logger"
	"bloodlink/internal/platform/metrics"
	"bloodlink/internal/platform/postgres"
	"bloodlink/internal/platform/redis"
	ratelimitmetrics "bloodlink/internal/ratelimit/metrics"
	ratelimitmw "bloodlink/internal/ratelimit/middleware"
	ratelimitmodels "bloodlink/internal/ratelimit/models"
	"bloodlink/internal/ratelimit/store/bucket"
	httptransport "bloodlink/internal/transport/http"
	"bloodlink/pkg/platform/audit/publisher"
	"bloodlink/pkg/platform/httputil"
)

const auditBufferSize = 1024

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}
	stores := buildStorage(db, log)

	auditPublisher := publisher.NewPublisher(stores.audit,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)
	defer auditPublisher.Close()

	notifications, closeNotifications, err := buildNotificationService(ctx, cfg, db, log)
	if err != nil {
		log.Error("failed to initialise notifications", "error", err)
		os.Exit(1)
	}
	defer closeNotifications()

	matchingOpts := []matchingservice.Option{
		matchingservice.WithNotifier(notifications),
		matchingservice.WithAuditPublisher(auditPublisher),
		matchingservice.WithLogger(log),
		matchingservice.WithMetrics(matchingmetrics.New()),
	}
	if stores.txRunner != nil {
		matchingOpts = append(matchingOpts, matchingservice.WithTxRunner(stores.txRunner))
	}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		matchingOpts = append(matchingOpts, matchingservice.WithStatsCache(
			statscache.New(redisClient.Client, statscache.WithTTL(cfg.StatsCacheTTL)),
		))
	} else {
		log.Info("REDIS_URL not set, match statistics are computed per request")
	}

	matching := matchingservice.New(matchingservice.Stores{
		Matches:  stores.matches,
		Requests: stores.requests,
		Donors:   stores.donors,
		History:  stores.history,
	}, stores.finder, matchingOpts...)
	requests := requestservice.New(stores.requests,
		requestservice.WithLogger(log),
		requestservice.WithAuditPublisher(auditPublisher),
	)
	donors := donorservice.New(stores.donors, log)

	validator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience),
	)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:    log,
		Validator: validator,
		Metrics:   metrics.New(),
		RateLimit: buildRateLimiter(cfg.RateLimit, redisClient, log).PerUser,
		Health:    healthHandler(db, redisClient),
	},
		requesthandler.New(requests, log),
		donorhandler.New(donors, log),
		matchinghandler.New(matching, log),
		notificationhandler.New(notifications, log),
	)

	srv := httpserver.New(cfg.Addr, router, cfg.CORSAllowedOrigins)
	go func() {
		log.Info("starting bloodlink", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildNotificationService wires the notification store and, when brokers are
// configured, the Kafka fan-out.
func buildNotificationService(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger) (*notificationservice.Service, func(), error) {
	store, err := buildNotificationStore(ctx, cfg.Notifications, db)
	if err != nil {
		return nil, nil, err
	}
	opts := []notificationservice.Option{
		notificationservice.WithLogger(log),
		notificationservice.WithMetrics(notificationmetrics.New()),
	}
	closeFn := func() {}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		if err != nil {
			return nil, nil, err
		}
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
			log.Warn("could not ensure notification topic", "topic", producer.Topic(), "error", err)
		}
		opts = append(opts, notificationservice.WithPublisher(kafkasink.New(producer, kafkasink.WithLogger(log))))
		closeFn = producer.Close
	} else {
		log.Info("KAFKA_BROKERS not set, notifications are stored only")
	}
	return notificationservice.New(store, opts...), closeFn, nil
}

func buildRateLimiter(cfg config.RateLimitConfig, redisClient *redis.Client, log *slog.Logger) *ratelimitmw.Middleware {
	var store ratelimitmw.BucketStore = bucket.NewInMemoryBucketStore()
	if redisClient != nil {
		store = bucket.NewRedisBucketStore(redisClient.Client)
	}
	limits := map[ratelimitmodels.Class]ratelimitmodels.Limit{
		ratelimitmodels.ClassMatchSearch: {Requests: cfg.MatchSearchPerMinute, Window: time.Minute},
		ratelimitmodels.ClassWrite:       {Requests: cfg.WritePerMinute, Window: time.Minute},
		ratelimitmodels.ClassRead:        {Requests: cfg.ReadPerMinute, Window: time.Minute},
	}
	return ratelimitmw.New(store, limits, log,
		ratelimitmw.WithDisabled(cfg.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New()),
	)
}

func healthHandler(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["postgres"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				status["redis"] = "unavailable"
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		httputil.WriteJSON(w, code, status)
	}
}
