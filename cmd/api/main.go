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

	"cloud.google.com/go/pubsub"
	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/swiftbasket/api/internal/di"
	"github.com/swiftbasket/api/internal/handlers"
	"github.com/swiftbasket/api/internal/payments"
	"github.com/swiftbasket/api/internal/platform/auth"
	"github.com/swiftbasket/api/internal/platform/config"
	"github.com/swiftbasket/api/internal/platform/events"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
	"github.com/swiftbasket/api/internal/platform/notify"
	"github.com/swiftbasket/api/internal/platform/observability"
	"github.com/swiftbasket/api/internal/platform/routing"
	"github.com/swiftbasket/api/internal/platform/secrets"
	firestoreRepo "github.com/swiftbasket/api/internal/repositories/firestore"
	"github.com/swiftbasket/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("configuration incomplete", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithFallbackRole(auth.RoleCustomer))

	gateway := newStripeGateway(logger, cfg)

	publisher, cleanupPublisher, err := newOrderPublisher(ctx, cfg)
	if err != nil {
		logger.Warn("order events disabled", zap.Error(err))
	}
	if cleanupPublisher != nil {
		defer cleanupPublisher()
	}

	notifier, err := newOrderNotifier(ctx, cfg, firestoreProvider)
	if err != nil {
		logger.Warn("order notifications disabled", zap.Error(err))
	}

	distance, err := newDistanceClient(cfg)
	if err != nil {
		logger.Warn("delivery distance lookups disabled", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Infrastructure{
		Gateway:   gateway,
		Publisher: publisher,
		Notifier:  notifier,
		Distance:  distance,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	svc := container.Services
	catalogHandlers := handlers.NewCatalogHandlers(svc.Catalog)
	cartHandlers := handlers.NewCartHandlers(svc.Cart)
	negotiationHandlers := handlers.NewNegotiationHandlers(svc.Negotiations)
	orderHandlers := handlers.NewOrderHandlers(svc.Orders)
	addressHandlers := handlers.NewAddressHandlers(svc.Addresses)
	staffOrderHandlers := handlers.NewStaffOrderHandlers(svc.Orders)
	adminCatalogHandlers := handlers.NewAdminCatalogHandlers(svc.Catalog)
	adminOfferHandlers := handlers.NewAdminOfferHandlers(svc.Promotions)
	healthHandlers := handlers.NewHealthHandlers(svc.System)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithNegotiationRoutes(negotiationHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithMeRoutes(addressHandlers.Routes),
		handlers.WithStaffRoutes(staffOrderHandlers.Routes),
		handlers.WithAdminRoutes(func(r chi.Router) {
			adminCatalogHandlers.Routes(r)
			adminOfferHandlers.Routes(r)
		}),
		handlers.WithCustomerMiddlewares(authenticator.RequireFirebaseAuth(auth.RoleCustomer, auth.RoleStaff, auth.RoleAdmin)),
		handlers.WithStaffMiddlewares(staffMiddleware(logger, cfg, authenticator)),
		handlers.WithAdminMiddlewares(adminMiddleware(logger, cfg, authenticator)),
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
		serverLogger.Info("swiftbasket api listening")
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
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if project := strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT")); project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if credentials := strings.TrimSpace(os.Getenv("FIREBASE_CREDENTIALS_FILE")); credentials != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentials)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func newStripeGateway(logger *zap.Logger, cfg config.Config) payments.Gateway {
	if strings.TrimSpace(cfg.Stripe.APIKey) == "" {
		logger.Warn("stripe api key not configured; online payments disabled")
		return nil
	}

	stripeLogger := logger.Named("stripe")
	gateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
		APIKey:    cfg.Stripe.APIKey,
		AccountID: cfg.Stripe.AccountID,
		Logger: func(_ context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			stripeLogger.Debug("stripe log", zFields...)
		},
		Clock: time.Now,
	})
	if err != nil {
		logger.Warn("stripe gateway init failed; online payments disabled", zap.Error(err))
		return nil
	}
	return gateway
}

func newOrderPublisher(ctx context.Context, cfg config.Config) (services.OrderEventPublisher, func(), error) {
	projectID := strings.TrimSpace(cfg.PubSub.ProjectID)
	if projectID == "" {
		return nil, nil, errors.New("pubsub project id not configured")
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	topic := client.Topic(cfg.PubSub.OrderTopic)
	publisher, err := events.NewPubSubOrderPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		topic.Stop()
		_ = client.Close()
	}
	return publisher, cleanup, nil
}

func newOrderNotifier(ctx context.Context, cfg config.Config, provider *pfirestore.Provider) (services.OrderNotifier, error) {
	if strings.TrimSpace(cfg.Firebase.ProjectID) == "" {
		return nil, errors.New("firebase project id not configured")
	}

	var clientOpts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, clientOpts...)
	if err != nil {
		return nil, err
	}
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	fcm, err := notify.NewFCMNotifier(messagingClient)
	if err != nil {
		return nil, err
	}
	return notify.NewOrderNotifier(fcm, deviceTokenResolver(provider))
}

// deviceTokenResolver reads the actor's registered device token from their
// user document. Actors without a document or token are skipped.
func deviceTokenResolver(provider *pfirestore.Provider) notify.TokenResolver {
	return func(ctx context.Context, actorID string) (string, error) {
		actorID = strings.TrimSpace(actorID)
		if actorID == "" {
			return "", nil
		}
		client, err := provider.Client(ctx)
		if err != nil {
			return "", err
		}
		snap, err := client.Collection("users").Doc(actorID).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return "", nil
			}
			return "", err
		}
		token, _ := snap.Data()["fcmToken"].(string)
		return strings.TrimSpace(token), nil
	}
}

func newDistanceClient(cfg config.Config) (routing.DistanceClient, error) {
	baseURL := strings.TrimSpace(cfg.Routing.BaseURL)
	if baseURL == "" {
		return nil, errors.New("routing base url not configured")
	}
	return routing.NewHTTPClient(baseURL, routing.WithHTTPClient(&http.Client{Timeout: cfg.Routing.Timeout}))
}

func staffMiddleware(logger *zap.Logger, cfg config.Config, authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	secret := strings.TrimSpace(cfg.Security.Session.Secret)
	if secret == "" {
		return authenticator.RequireFirebaseAuth(auth.RoleStaff, auth.RoleAdmin)
	}

	issuer, err := auth.NewSessionIssuer(secret, cfg.Security.Session.Issuer,
		auth.WithSessionTTL(cfg.Security.Session.TTL),
	)
	if err != nil {
		logger.Warn("session issuer init failed; staff routes fall back to firebase auth", zap.Error(err))
		return authenticator.RequireFirebaseAuth(auth.RoleStaff, auth.RoleAdmin)
	}
	return issuer.RequireSession(auth.RoleStaff, auth.RoleAdmin)
}

func adminMiddleware(logger *zap.Logger, cfg config.Config, authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	audience := strings.TrimSpace(cfg.Security.OIDC.Audience)
	if audience == "" {
		logger.Warn("oidc audience not configured; admin routes fall back to firebase auth")
		return authenticator.RequireFirebaseAuth(auth.RoleAdmin)
	}

	cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL)
	verifier := auth.NewOIDCVerifier(cache)
	return verifier.RequireOIDC(audience, cfg.Security.OIDC.Issuer)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}
