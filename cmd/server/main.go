package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/falsenine/storefront/internal"
	"github.com/falsenine/storefront/internal/addressbook"
	"github.com/falsenine/storefront/internal/catalog"
	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/events"
	"github.com/falsenine/storefront/internal/gateway"
	"github.com/falsenine/storefront/internal/handler/api"
	"github.com/falsenine/storefront/internal/identity"
	"github.com/falsenine/storefront/internal/ledger"
	"github.com/falsenine/storefront/internal/middleware"
	"github.com/falsenine/storefront/internal/router"
	"github.com/falsenine/storefront/internal/routes"
	"github.com/falsenine/storefront/internal/service"
	"github.com/falsenine/storefront/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize the order ledger
	var orderLedger domain.OrderLedger
	switch cfg.LedgerDriver {
	case "postgres":
		logger.Info("Connecting to database...")
		sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer sqlDB.Close()

		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		logger.Info("Database connection established")

		logger.Info("Running database migrations...")
		if err := internal.RunMigrations(ctx, sqlDB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		orderLedger = ledger.NewPostgresLedger(pool)
	case "memory":
		logger.Warn("Using in-memory order ledger, records will not survive a restart")
		orderLedger = ledger.NewMemoryLedger()
	}

	// Initialize metrics
	businessMetrics := telemetry.NewBusinessMetrics("storefront")
	httpMetrics := middleware.NewMetrics("storefront")

	// Initialize event publisher
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.Enabled {
		logger.Info("Connecting to NATS...", "url", cfg.NATS.URL)
		natsPublisher, err := events.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	// Initialize Razorpay payment gateway
	logger.Info("Initializing Razorpay payment gateway...")
	gatewayConfig := gateway.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		Timeout:   cfg.Razorpay.Timeout,
	}
	registry := gateway.NewCallbackRegistry()
	provider, err := gateway.NewRazorpayProvider(gatewayConfig, registry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Razorpay provider: %w", err)
	}
	logger.Info("Razorpay payment gateway initialized", "test_mode", gatewayConfig.IsTestMode())

	// Initialize settlement service
	settlement := service.NewSettlementService(orderLedger, publisher, businessMetrics, logger, service.SettlementConfig{
		KeySecret:       cfg.Razorpay.KeySecret,
		TrustUnverified: cfg.Settlement.TrustUnverified,
	})
	if cfg.Settlement.TrustUnverified {
		logger.Warn("SETTLEMENT_TRUST_UNVERIFIED is enabled, unverified settlements will be recorded")
	}

	// Initialize handlers
	paymentHandler := api.NewPaymentHandler(provider, registry, settlement, cfg.Razorpay.KeySecret, logger)
	orderHandler := api.NewOrderHandler(orderLedger, settlement, cfg.TestMode(), logger)

	// Build the router
	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		router.Recovery(logger),
		router.Logger(logger),
		router.CORS(cfg.Cors.AllowedOrigins),
		httpMetrics.Middleware,
		middleware.MaxBodySize(middleware.SmallMaxBodySize),
		middleware.Timeout(),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		PaymentHandler: paymentHandler,
		OrderHandler:   orderHandler,
		MetricsHandler: httpMetrics.Handler(),
	})

	// Outside production, expose in-process checkout sessions so a local
	// client can walk the full cart-to-settled flow against the hosted
	// gateway UI.
	if cfg.TestMode() {
		demoCatalog := catalog.NewMemoryCatalog()
		demoCatalog.AddProduct(domain.Product{
			ID: "frontline", Name: "Frontline Jersey", Price: 1000, Sizes: []string{"S", "M", "L"},
		}, map[string]int64{"S": 10, "M": 10, "L": 10})
		demoCatalog.AddProduct(domain.Product{
			ID: "keeper", Name: "Keeper Gloves", Price: 1500, Sizes: []string{"M", "L"},
		}, map[string]int64{"M": 5, "L": 5})

		demoIdentity := identity.NewStaticProvider()
		demoIdentity.Register(domain.User{UserID: "demo-user", Email: "demo@example.test", Name: "Demo Buyer"}, "demo-password")

		checkoutHandler, err := api.NewCheckoutHandler(api.CheckoutDeps{
			Catalog:    demoCatalog,
			Identity:   demoIdentity,
			Addresses:  addressbook.NewMemoryResolver(),
			Stock:      demoCatalog,
			Provider:   provider,
			Settlement: settlement,
			Metrics:    businessMetrics,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize checkout sessions: %w", err)
		}
		routes.RegisterCheckoutRoutes(r, checkoutHandler)
		logger.Info("Checkout session surface enabled", "demo_account", "demo@example.test")
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "addr", addr, "env", cfg.Env, "ledger", cfg.LedgerDriver)
	return http.ListenAndServe(addr, r)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
