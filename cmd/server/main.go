package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"verification-service/config"
	"verification-service/internal/api"
	"verification-service/internal/broker"
	"verification-service/internal/models"
	"verification-service/internal/push"
	"verification-service/internal/redisclient"
	"verification-service/internal/service"
	"verification-service/internal/store"
	"verification-service/internal/util"
	"verification-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting verification service")

	tp, err := util.InitTracer("verification-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	notifier := broker.NewNotificationPublisher(producer)

	st := &cachedStore{Store: db, redis: redisClient}

	ttl := time.Duration(cfg.Business.TransactionTTLHours) * time.Hour
	ledger := service.NewLedgerService(st, notifier, ttl)
	verifier := service.NewVerificationService(st, notifier, cfg.Business.RejectReasonMinLen)
	fulfillment := service.NewFulfillmentService(st, notifier)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	pusher := push.NewClient(cfg.Push.GatewayURL, cfg.Push.APIKey)
	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(consumer, pusher, redisClient)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	expiryWorker := worker.NewExpiryWorker(db, time.Duration(cfg.Business.ExpirySweepSeconds)*time.Second)
	go func() {
		if err := expiryWorker.Start(workerCtx); err != nil {
			log.Printf("Expiry worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(ledger, verifier, fulfillment, redisClient)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()

	log.Println("Server exited")
}

// cachedStore layers the short-lived Redis tenant cache over the Postgres
// store. The gate check loads the tenant on every tenant-scoped request, so
// this is the hot lookup.
type cachedStore struct {
	*store.Store
	redis *redisclient.Client
}

func (s *cachedStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	if tenant, err := s.redis.GetCachedTenant(ctx, id); err == nil && tenant != nil {
		return tenant, nil
	}
	tenant, err := s.Store.GetTenant(ctx, id)
	if err != nil || tenant == nil {
		return tenant, err
	}
	_ = s.redis.CacheTenant(ctx, tenant)
	return tenant, nil
}
