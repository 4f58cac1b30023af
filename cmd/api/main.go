package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/repairshop-backend/api/routes"
	"github.com/angelmondragon/repairshop-backend/internal/auth"
	"github.com/angelmondragon/repairshop-backend/internal/bootstrap"
	"github.com/angelmondragon/repairshop-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/repairshop-backend/internal/checkout"
	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/invoices"
	"github.com/angelmondragon/repairshop-backend/internal/notes"
	"github.com/angelmondragon/repairshop-backend/internal/notifications"
	"github.com/angelmondragon/repairshop-backend/internal/receipts"
	"github.com/angelmondragon/repairshop-backend/internal/staff"
	"github.com/angelmondragon/repairshop-backend/internal/stock"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/internal/transactions"
	"github.com/angelmondragon/repairshop-backend/pkg/auth/session"
	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/printer"
	"github.com/angelmondragon/repairshop-backend/pkg/redis"
	"github.com/angelmondragon/repairshop-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	rt, err := bootstrap.Start(ctx, "api")
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Error(ctx, "startup failed", err)
		os.Exit(1)
	}
	cfg, logg := rt.Config, rt.Logger

	fail := func(msg string, err error) {
		logg.Error(ctx, msg, multierr.Append(err, rt.Close()))
		os.Exit(1)
	}

	redisClient, err := rt.Redis(ctx)
	if err != nil {
		fail("failed to bootstrap redis", err)
	}

	var archive *gcs.Client
	if cfg.FeatureFlags.ArchiveReceipts {
		archive, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		switch {
		case errors.Is(err, gcs.ErrNotConfigured):
			archive = nil
			logg.Warn(ctx, "receipt archiving enabled without a bucket; skipping")
		case err != nil:
			fail("failed to bootstrap gcs", err)
		default:
			rt.OnClose("gcs", archive.Close)
		}
	}

	services, err := buildServices(cfg, logg, rt.DB, redisClient, archive)
	if err != nil {
		fail("failed to wire services", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := rt.SignalContext(ctx)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"addr": addr, "shop": cfg.App.ShopName})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case runErr = <-serveErr:
	case <-runCtx.Done():
		logg.Info(runCtx, "api server shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := multierr.Combine(runErr, server.Shutdown(shutdownCtx), rt.Close()); err != nil {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, archive *gcs.Client) (routes.Services, error) {
	conn := dbClient.DB()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Services{}, err
	}

	staffRepo := staff.NewRepository(conn)
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       staffRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}
	staffService, err := staff.NewService(staffRepo, cfg.Password, sessionManager)
	if err != nil {
		return routes.Services{}, err
	}

	allocator, err := invoices.NewAllocator(conn, cfg.Invoice)
	if err != nil {
		return routes.Services{}, err
	}
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	customerService, err := customers.NewService(customers.ServiceParams{
		Tx:       dbClient,
		Repo:     customers.NewRepository(conn),
		Invoices: allocator,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	stockRepo := stock.NewRepository(conn)
	stockService, err := stock.NewService(stockRepo)
	if err != nil {
		return routes.Services{}, err
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Cart.TTL)
	if err != nil {
		return routes.Services{}, err
	}
	cartService, err := cart.NewService(cartStore, stockRepo, cfg.Cart.Currency)
	if err != nil {
		return routes.Services{}, err
	}

	guard, err := checkoutsvc.NewGuard(redisClient, cfg.Cart.CheckoutLockTTL)
	if err != nil {
		return routes.Services{}, err
	}
	salesRepo := transactions.NewRepository(conn)
	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Tx:       dbClient,
		Carts:    cartStore,
		Guard:    guard,
		Invoices: allocator,
		Sales:    salesRepo,
		Stock:    stockRepo,
		Outbox:   outboxService,
		Metrics:  metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
		Currency: cfg.Cart.Currency,
	})
	if err != nil {
		return routes.Services{}, err
	}

	transactionService, err := transactions.NewService(salesRepo)
	if err != nil {
		return routes.Services{}, err
	}
	storeService, err := storeinfo.NewService(storeinfo.NewRepository(conn), cfg.App.ShopName)
	if err != nil {
		return routes.Services{}, err
	}
	contactService, err := notifications.NewContactService(customerService, storeService, cfg.Cart.Currency)
	if err != nil {
		return routes.Services{}, err
	}

	receiptParams := receipts.ServiceParams{
		Store:     storeService,
		Sales:     transactionService,
		Customers: customerService,
		Formatter: receipts.NewFormatter(cfg.Printer.Columns, nil),
		Currency:  cfg.Cart.Currency,
		Logger:    logg,
	}
	if p := printer.New(cfg.Printer, logg); p.Configured() {
		receiptParams.Printer = p
	}
	if archive != nil {
		receiptParams.Archive = archive
	}
	receiptService, err := receipts.NewService(receiptParams)
	if err != nil {
		return routes.Services{}, err
	}

	noteService, err := notes.NewService(notes.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		DB:           dbClient,
		Cache:        redisClient,
		Sessions:     sessionManager,
		Auth:         authService,
		Staff:        staffService,
		Customers:    customerService,
		Contact:      contactService,
		Stock:        stockService,
		Carts:        cartService,
		Checkout:     checkoutService,
		Transactions: transactionService,
		Receipts:     receiptService,
		Invoices:     allocator,
		StoreInfo:    storeService,
		Notes:        noteService,
		Gatherer:     prometheus.DefaultGatherer,
		HTTPMetrics:  metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
	}, nil
}
