package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/designify-catalog/internal/cache"
	"github.com/prudhivi99/designify-catalog/internal/catalog"
	"github.com/prudhivi99/designify-catalog/internal/client"
	"github.com/prudhivi99/designify-catalog/internal/config"
	"github.com/prudhivi99/designify-catalog/internal/consumer"
	"github.com/prudhivi99/designify-catalog/internal/db"
	"github.com/prudhivi99/designify-catalog/internal/discovery"
	"github.com/prudhivi99/designify-catalog/internal/handlers"
	"github.com/prudhivi99/designify-catalog/internal/logger"
	"github.com/prudhivi99/designify-catalog/internal/messaging"
	"github.com/prudhivi99/designify-catalog/internal/publisher"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.App.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseURL := cfg.Upstream.BaseURL

	// Connect to Consul
	var consul *discovery.ConsulClient
	if cfg.Consul.Enabled() {
		var err error
		consul, err = discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port, log)
		if err != nil {
			log.Fatal("Failed to connect to Consul", zap.Error(err))
		}

		if cfg.Upstream.ServiceName != "" {
			url, err := consul.GetServiceURL(cfg.Upstream.ServiceName, cfg.Upstream.BasePath)
			if err != nil {
				log.Warn("⚠️ Upstream not found in Consul, using configured URL",
					zap.String("service", cfg.Upstream.ServiceName),
					zap.Error(err),
				)
			} else {
				baseURL = url
			}
		}
	}

	clientOpts := []client.Option{
		client.WithTimeout(cfg.Upstream.Timeout),
		client.WithLogger(log),
	}

	// Connect to Redis
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled() {
		var err error
		redisCache, err = cache.NewRedisCache(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.TTL, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		clientOpts = append(clientOpts, client.WithCache(redisCache))
	}

	// Connect to PostgreSQL
	var audit *db.AuditRepository
	if cfg.Database.Enabled() {
		database, err := db.NewPostgresDB(ctx, cfg.Database.URL, log)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close()

		audit = db.NewAuditRepository(database.Conn, log)
		if err := audit.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to prepare audit table", zap.Error(err))
		}
		clientOpts = append(clientOpts, client.WithObserver(audit))
	}

	api := client.NewAPIClient(baseURL, clientOpts...)
	svc := catalog.NewService(api,
		catalog.WithLogger(log),
		catalog.WithMaxConcurrentDetails(cfg.Upstream.MaxConcurrentDetails),
	)

	handlerOpts := []handlers.HandlerOption{handlers.WithLogger(log)}
	if audit != nil {
		handlerOpts = append(handlerOpts, handlers.WithRequestLog(audit))
	}

	// Connect to RabbitMQ
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitMQ.Close()

		catalogPublisher, err := publisher.NewCatalogPublisher(rabbitMQ, cfg.App.ServiceID)
		if err != nil {
			log.Fatal("Failed to create publisher", zap.Error(err))
		}
		handlerOpts = append(handlerOpts, handlers.WithInvalidate(catalogPublisher.PublishCatalogUpdated))

		if redisCache != nil {
			go startCacheInvalidator(ctx, rabbitMQ, redisCache, log)
		}
	} else if redisCache != nil {
		handlerOpts = append(handlerOpts, handlers.WithInvalidate(func(ctx context.Context, _ string) error {
			return redisCache.InvalidateUpstream(ctx)
		}))
	}

	if consul != nil {
		err := consul.Register(discovery.ServiceConfig{
			Name: cfg.App.ServiceName,
			ID:   cfg.App.ServiceID,
			Port: cfg.App.Port,
			Tags: []string{"api", "catalog"},
		})
		if err != nil {
			log.Fatal("Failed to register service", zap.Error(err))
		}
		defer func() {
			if err := consul.Deregister(cfg.App.ServiceID); err != nil {
				log.Warn("⚠️ Failed to deregister service", zap.Error(err))
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	productHandler := handlers.NewProductHandler(cfg.App.ServiceName, svc, api, handlerOpts...)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           handlers.NewRouter(productHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(fmt.Sprintf("🚀 %s starting on http://localhost:%d", cfg.App.ServiceName, cfg.App.Port),
			zap.String("upstream", api.BaseURL()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func startCacheInvalidator(ctx context.Context, mq *messaging.RabbitMQ, redisCache *cache.RedisCache, log *zap.Logger) {
	queue, err := mq.BindExclusiveQueue(publisher.CatalogUpdatedExchange)
	if err != nil {
		log.Error("Failed to bind invalidation queue", zap.Error(err))
		return
	}

	messages, err := mq.Consume(queue)
	if err != nil {
		log.Error("Failed to consume messages", zap.Error(err))
		return
	}

	invalidator := consumer.NewCacheInvalidator(redisCache, log)
	invalidator.ProcessCatalogUpdated(ctx, messages)
}
