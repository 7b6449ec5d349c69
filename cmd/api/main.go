package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/azizikri/coupon-registry/internal/config"
	httphandler "github.com/azizikri/coupon-registry/internal/delivery/http"
	"github.com/azizikri/coupon-registry/internal/delivery/kafka"
	"github.com/azizikri/coupon-registry/internal/logging"
	"github.com/azizikri/coupon-registry/internal/metrics"
	"github.com/azizikri/coupon-registry/internal/repository"
	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

func main() {
	cfg := config.Load()
	if err := logging.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Driver(), err)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	service := usecase.NewCouponService(repo)
	direct := kafka.NewDirectGateway(service, recorder)

	var gateway usecase.CouponGateway
	var clients []*kgo.Client

	if cfg.EventDriven() {
		brokers := cfg.Brokers()
		kafkaClient, err := newConsumerClient(brokers, cfg.KafkaClientID, cfg.KafkaGroupID, kafka.RequestTopics()...)
		if err != nil {
			log.Fatalf("Failed to create kafka client: %v", err)
		}
		clients = append(clients, kafkaClient)

		if err := kafka.EnsureTopics(ctx, kafkaClient, cfg); err != nil {
			log.WithError(err).Warn("failed to ensure topics")
		}

		kgateway := kafka.NewGateway(cfg, kafkaClient)
		gateway = kgateway

		consumer := kafka.NewConsumer(cfg, kafkaClient, direct)
		go consumer.Start(ctx)

		retryClient, err := newConsumerClient(brokers, cfg.KafkaClientID+"-retry", cfg.KafkaRetryGroupID, kafka.RetryTopics()...)
		if err != nil {
			log.Fatalf("Failed to create retry kafka client: %v", err)
		}
		clients = append(clients, retryClient)
		retryConsumer := kafka.NewConsumer(cfg, retryClient, direct)
		go retryConsumer.StartRetry(ctx)

		replyClient, err := newReplyClient(brokers, cfg.KafkaClientID+"-reply", kafka.ReplyTopic(cfg.KafkaInstanceID))
		if err != nil {
			log.Fatalf("Failed to create reply kafka client: %v", err)
		}
		clients = append(clients, replyClient)
		startReplyPoller(ctx, replyClient, kgateway)

		log.WithField("instance", cfg.KafkaInstanceID).Info("event-driven mode enabled")
	} else {
		gateway = direct
	}

	handler := httphandler.NewHandler(gateway)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(log.StandardLogger()))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if cfg.Metrics() {
		r.Handle("/metrics", recorder.Handler())
	}

	handler.Routes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Starting server on port %s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP shutdown error")
	}

	for _, client := range clients {
		client.Close()
	}

	wg.Wait()
	log.Info("Shutdown complete")
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.CouponRepository, func(), error) {
	switch cfg.Driver() {
	case config.StorageDriverSQLite:
		conn, err := repository.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := conn.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if err := repository.Migrate(conn); err != nil {
			closeFn()
			return nil, nil, err
		}
		log.WithField("dsn", cfg.SQLiteDSN).Info("using sqlite storage")
		return repository.NewGorm(conn), closeFn, nil

	default:
		pool, err := initDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		log.WithField("host", cfg.DBHost).Info("using postgres storage")
		return repository.New(pool), pool.Close, nil
	}
}

func initDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

func newConsumerClient(brokers []string, clientID, groupID string, topics ...string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
}

func newReplyClient(brokers []string, clientID, topic string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumeTopics(topic),
	)
}

func startReplyPoller(ctx context.Context, client *kgo.Client, gateway *kafka.Gateway) {
	go func() {
		for {
			fetches := client.PollFetches(ctx)
			if fetches.IsClientClosed() || ctx.Err() != nil {
				return
			}
			iter := fetches.RecordIter()
			for !iter.Done() {
				record := iter.Next()
				gateway.HandleResponse(record.Value)
			}
		}
	}()
}
