package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/thokbazaar/server/internal"
	"github.com/thokbazaar/server/internal/auth"
	"github.com/thokbazaar/server/internal/billing"
	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/events"
	"github.com/thokbazaar/server/internal/handler"
	"github.com/thokbazaar/server/internal/inventory"
	"github.com/thokbazaar/server/internal/jobs"
	"github.com/thokbazaar/server/internal/middleware"
	"github.com/thokbazaar/server/internal/router"
	"github.com/thokbazaar/server/internal/routes"
	"github.com/thokbazaar/server/internal/service"
	"github.com/thokbazaar/server/internal/store"
	"github.com/thokbazaar/server/internal/telemetry"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize storage. Without a Firebase project the server runs against
	// in-memory stores, which only makes sense in dev.
	var (
		products     store.Docs[domain.Product]
		combos       store.Docs[domain.Combo]
		orders       store.Docs[domain.Order]
		reservations store.Docs[domain.Reservation]
		verifier     auth.TokenVerifier
	)
	if cfg.Firebase.ProjectID != "" {
		logger.Info("Connecting to Firestore...", "project_id", cfg.Firebase.ProjectID)
		var clientOpts []option.ClientOption
		if cfg.Firebase.CredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		}
		client, err := firestore.NewClient(ctx, cfg.Firebase.ProjectID, clientOpts...)
		if err != nil {
			return fmt.Errorf("firestore connection failed: %w", err)
		}
		defer client.Close()

		products = store.NewFirestore[domain.Product](client, "products")
		combos = store.NewFirestore[domain.Combo](client, "combos")
		orders = store.NewFirestore[domain.Order](client, "orders")
		reservations = store.NewFirestore[domain.Reservation](client, "reservations")

		verifier, err = auth.NewFirebaseVerifier(ctx, auth.FirebaseConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			return fmt.Errorf("firebase auth initialization failed: %w", err)
		}
		logger.Info("Firestore connection established")
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set, using in-memory storage and static auth")
		products = store.NewMemory[domain.Product]()
		combos = store.NewMemory[domain.Combo]()
		orders = store.NewMemory[domain.Order]()
		reservations = store.NewMemory[domain.Reservation]()
		verifier = auth.NewStaticVerifier()
	}

	// Initialize payment gateway
	var gateway billing.Provider
	if cfg.Razorpay.KeyID != "" {
		logger.Info("Initializing Razorpay billing provider...")
		gateway = billing.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	} else {
		logger.Warn("RAZORPAY_KEY_ID not set, using mock billing provider")
		gateway = billing.NewMockProvider()
	}

	// Initialize event publisher
	var publisher events.Publisher
	if cfg.NATS.URL != "" {
		logger.Info("Connecting to NATS...", "url", cfg.NATS.URL)
		pub, nc, err := events.NewNATS(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer nc.Drain()
		publisher = pub
	} else {
		logger.Warn("NATS_URL not set, order events will not be published")
		publisher = events.NewNoopPublisher()
	}

	// Initialize metrics
	checkoutMetrics := telemetry.NewCheckoutMetrics("")
	httpMetrics := middleware.NewMetrics("")

	// Initialize inventory ledger and services
	ledger := inventory.NewLedger(products, reservations, cfg.Checkout.ReservationTTL)
	orderService := service.NewOrderService(orders, publisher)
	checkoutService := service.NewCheckoutService(
		products,
		combos,
		orderService,
		ledger,
		gateway,
		publisher,
		checkoutMetrics,
		service.CheckoutConfig{
			TaxRate:        cfg.Checkout.TaxRate,
			ShippingBuffer: cfg.Checkout.ShippingBuffer,
		},
		logger,
	)

	// Start the expired-reservation sweeper
	sweeper := jobs.NewSweeper(ledger, orderService, publisher, checkoutMetrics, cfg.Checkout.SweepInterval, logger)
	go sweeper.Run(ctx)

	// Create router and register routes
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		httpMetrics.Middleware,
		middleware.Authenticate(verifier),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)
	routes.Register(r, routes.Deps{
		Checkout:       handler.NewCheckoutHandler(checkoutService),
		Orders:         handler.NewOrdersHandler(orderService),
		MetricsHandler: httpMetrics.Handler(),
	})

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Server listening", "address", srv.Addr, "env", cfg.Env)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
