package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/infrastructure/events"
	"storefront/internal/repo"
	"storefront/internal/service"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.WithError(err).Fatal("run migrations")
		}
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect database")
	}
	dbService := database.New(db)
	defer dbService.Close()

	publisher, closeBroker := newPublisher(cfg, logger)
	defer closeBroker()

	orderRepo := repo.NewOrderRepo(db)
	cartRepo := repo.NewCartRepo(db)
	productRepo := repo.NewProductRepo(db)
	outboxRepo := repo.NewOutboxRepo(db)

	orderService := service.NewOrderService(db, orderRepo, cartRepo, productRepo, outboxRepo, logger)
	cartService := service.NewCartService(db, cartRepo, productRepo, logger)
	catalogService := service.NewCatalogService(productRepo)

	relay := worker.NewOutboxRelay(outboxRepo, publisher, cfg.OutboxInterval, cfg.OutboxBatchSize, logger.WithField("component", "outbox"))
	relayDone := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(relayDone)
	}()

	router := handler.NewRouter(handler.RouterConfig{
		Orders:             orderService,
		Carts:              cartService,
		Catalog:            catalogService,
		DB:                 dbService,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, "storefront"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http server shutdown")
	}
	<-relayDone
	if err := relay.Drain(shutdownCtx); err != nil {
		logger.WithError(err).Warn("outbox drain incomplete")
	}
}

// newPublisher dials RabbitMQ when configured and falls back to a logging
// publisher otherwise.
func newPublisher(cfg *config.Config, logger *logrus.Logger) (events.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		logger.Warn("RABBITMQ_URL not set, order events are marked published without delivery")
		return events.NewNoopPublisher(logger), func() {}
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("connect rabbitmq")
	}
	pub, err := events.NewRabbitPublisher(conn, logger)
	if err != nil {
		_ = conn.Close()
		logger.WithError(err).Fatal("create rabbitmq publisher")
	}
	return pub, func() {
		_ = pub.Close()
		_ = conn.Close()
	}
}
