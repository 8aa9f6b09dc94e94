package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/interfaces"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/stream"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger("storefront-service")
	if err := logging.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		logger.Fatal("Invalid logging configuration", logging.Fields{"error": err.Error()})
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open data backend", logging.Fields{
			"driver": cfg.Backend.Driver,
			"error":  err.Error(),
		})
	}
	defer store.Close()

	// A nil interface disables caching; never pass a typed nil.
	var catalogCache repository.CatalogCache
	if cfg.Features.EnableCatalogCaching {
		redisCache := repository.NewRedisCatalogCache(cfg.Redis)
		defer redisCache.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Warn("Redis unavailable, catalog reads will miss", logging.Fields{"error": err.Error()})
		}
		cancel()
		catalogCache = redisCache
	}

	var eventPublisher interfaces.OrderEventPublisher
	if cfg.Features.EnableOrderEvents {
		eventPublisher, err = events.NewPublisher(cfg)
		if err != nil {
			logger.Fatal("Failed to create event publisher", logging.Fields{
				"driver": cfg.Events.Driver,
				"error":  err.Error(),
			})
		}
		defer eventPublisher.Close()
	}

	var notificationClient interfaces.NotificationSender
	if cfg.Features.EnableNotifications {
		notificationClient = clients.NewHTTPNotificationClient(cfg.NotificationService)
	}
	paymentClient := clients.NewHTTPPaymentClient(cfg.PaymentService)

	hub := stream.NewHub(cfg.CORS.AllowedOrigins)

	catalogService := service.NewCatalogService(store, catalogCache, cfg)
	orderService := service.NewOrderService(store, paymentClient, notificationClient, eventPublisher, hub, cfg)
	profileService := service.NewProfileService(store)
	sessions := service.NewSessionRegistry(store)
	evictCtx, stopEviction := context.WithCancel(context.Background())
	defer stopEviction()
	go sessions.StartEviction(evictCtx, cfg.Auth.SessionIdle, time.Minute)

	h := handlers.NewHandlers(handlers.Deps{
		Catalog:  catalogService,
		Orders:   orderService,
		Profiles: profileService,
		Sessions: sessions,
		Hub:      hub,
		Store:    store,
	}, cfg)

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	srv := server.New(h, auth, cfg)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":            cfg.Server.Port,
			"backend":         cfg.Backend.Driver,
			"events":          cfg.Events.Driver,
			"catalog_cache":   cfg.Features.EnableCatalogCaching,
			"payment_capture": cfg.Features.EnablePaymentCapture,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	var statusConsumer *events.KafkaConsumer
	if cfg.Features.EnableStatusConsumer && cfg.Events.Driver == config.EventsKafka {
		statusConsumer = events.NewKafkaConsumer(cfg.Kafka, orderService)
		go func() {
			if err := statusConsumer.Start(context.Background()); err != nil {
				logger.Error("Status consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if statusConsumer != nil {
		statusConsumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	orderService.Wait()
	logger.Info("Server exited")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Backend.Driver {
	case config.DriverSQLite:
		return repository.OpenSQLite(cfg.Backend.SQLitePath)
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return repository.OpenPostgres(ctx, cfg.Database)
	}
}
