package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/threadline-shop/api/internal/di"
	"github.com/threadline-shop/api/internal/handlers"
	"github.com/threadline-shop/api/internal/payments"
	"github.com/threadline-shop/api/internal/platform/config"
	"github.com/threadline-shop/api/internal/platform/events"
	pfirestore "github.com/threadline-shop/api/internal/platform/firestore"
	"github.com/threadline-shop/api/internal/platform/observability"
	"github.com/threadline-shop/api/internal/platform/secrets"
	firestoreRepo "github.com/threadline-shop/api/internal/repositories/firestore"
	"github.com/threadline-shop/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := loadConfig(ctx, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.Stripe.APIKey,
		Logger: observability.EventLogger(logger.Named("payments")),
		Clock:  time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe provider", zap.Error(err))
	}

	var publisher services.OrderEventPublisher
	var pubsubClient *pubsub.Client
	if strings.TrimSpace(cfg.Events.TopicID) != "" {
		projectID := strings.TrimSpace(cfg.Events.ProjectID)
		if projectID == "" {
			projectID = cfg.Firestore.ProjectID
		}
		pubsubClient, err = pubsub.NewClient(ctx, projectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		publisher, err = events.NewPubSubOrderPublisher(pubsubClient.Topic(cfg.Events.TopicID))
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
	}
	defer func() {
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	container, err := di.NewContainer(cfg, di.ContainerDeps{
		Repositories: registry,
		Gateway:      stripeProvider,
		Events:       publisher,
		Logger:       observability.EventLogger(logger.Named("services")),
	})
	if err != nil {
		logger.Fatal("failed to wire services", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := firestoreProvider.Client(ctx)
			return err
		}),
	)

	checkoutHandlers := handlers.NewCheckoutHandlers(container.Services.Checkout, container.Services.Confirmation)
	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders)

	router := handlers.NewRouter(
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("threadline api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

// loadConfig wires a Secret Manager fetcher when the Stripe key is supplied as
// a secret:// reference, so plain-env deployments skip the dependency.
func loadConfig(ctx context.Context, logger *zap.Logger) (config.Config, error) {
	if !strings.HasPrefix(strings.TrimSpace(os.Getenv("API_STRIPE_API_KEY")), "secret://") {
		return config.Load(ctx)
	}

	projectID := strings.TrimSpace(os.Getenv("API_FIRESTORE_PROJECT_ID"))
	fetcher, err := secrets.NewFetcher(ctx, projectID, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		return config.Config{}, fmt.Errorf("initialise secret fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	return config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
}
