package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/repairshop-backend/api/controllers"
	"github.com/angelmondragon/repairshop-backend/api/middleware"
	"github.com/angelmondragon/repairshop-backend/internal/auth"
	"github.com/angelmondragon/repairshop-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/repairshop-backend/internal/checkout"
	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/notes"
	"github.com/angelmondragon/repairshop-backend/internal/notifications"
	"github.com/angelmondragon/repairshop-backend/internal/receipts"
	"github.com/angelmondragon/repairshop-backend/internal/staff"
	"github.com/angelmondragon/repairshop-backend/internal/stock"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/internal/transactions"
	"github.com/angelmondragon/repairshop-backend/pkg/auth/session"
	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/redis"
)

// Cache is the subset of the Redis client the HTTP layer needs.
type Cache interface {
	redis.IdempotencyStore
	redis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services bundles everything the API surface dispatches to. Nil entries
// answer 500 "service unavailable" instead of panicking.
type Services struct {
	DB       controllers.Pinger
	Cache    Cache
	Sessions session.AccessSessionChecker

	Auth         auth.Service
	Staff        staff.Service
	Customers    customers.Service
	Contact      notifications.ContactService
	Stock        stock.Service
	Carts        cart.Service
	Checkout     checkoutsvc.Service
	Transactions transactions.Service
	Receipts     receipts.Service
	Invoices     controllers.InvoicePeeker
	StoreInfo    storeinfo.Service
	Notes        notes.Service
	Gatherer     prometheus.Gatherer
	HTTPMetrics  *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, svc.HTTPMetrics),
		middleware.CORS(cfg.App.Origins()),
	)

	readyDeps := map[string]controllers.Pinger{}
	if svc.DB != nil {
		readyDeps["db"] = svc.DB
	}
	if svc.Cache != nil {
		readyDeps["redis"] = svc.Cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})
	if svc.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	loginLimit := func(next http.Handler) http.Handler { return next }
	idem := func(next http.Handler) http.Handler { return next }
	if svc.Cache != nil {
		loginLimit = middleware.LoginRateLimit(middleware.LoginRateLimitPolicy{
			Name:       "login",
			Window:     cfg.AuthRateLimit.LoginWindow,
			IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
			EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
		}, svc.Cache, logg)
		idem = middleware.Idempotency(svc.Cache, logg)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
	})

	owner := middleware.RequireRole(logg, enums.StaffRoleOwner)
	bench := middleware.RequireRole(logg, enums.StaffRoleTechnician)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, svc.Sessions, logg))

		r.Post("/pattern/trace", controllers.PatternTrace(logg))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.CustomerList(svc.Customers, logg))
			r.With(idem).Post("/", controllers.CustomerCreate(svc.Customers, logg))
			r.Route("/{customerId}", func(r chi.Router) {
				r.Get("/", controllers.CustomerGet(svc.Customers, logg))
				r.Patch("/", controllers.CustomerUpdate(svc.Customers, logg))
				r.With(owner).Delete("/", controllers.CustomerDelete(svc.Customers, logg))
				r.Patch("/status", controllers.CustomerUpdateStatus(svc.Customers, logg))
				r.With(bench).Get("/pattern/replay", controllers.CustomerPatternReplay(svc.Customers, logg))
				r.With(bench).Get("/pattern/replay/stream", controllers.CustomerPatternReplayStream(svc.Customers, logg))
				r.Post("/pattern/verify", controllers.CustomerPatternVerify(svc.Customers, logg))
				r.Get("/contact", controllers.CustomerContact(svc.Contact, logg))
				r.Get("/receipt", controllers.CustomerReceipt(svc.Receipts, logg))
				r.With(idem).Post("/receipt/print", controllers.CustomerReceiptPrint(svc.Receipts, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svc.Stock, logg))
			r.Get("/low-stock", controllers.ProductLowStock(svc.Stock, logg))
			r.With(bench, idem).Post("/", controllers.ProductCreate(svc.Stock, logg))
			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", controllers.ProductGet(svc.Stock, logg))
				r.With(bench).Patch("/", controllers.ProductUpdate(svc.Stock, logg))
				r.With(owner).Delete("/", controllers.ProductDelete(svc.Stock, logg))
				r.With(bench, idem).Post("/adjust", controllers.ProductAdjust(svc.Stock, logg))
			})
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartOpen(svc.Carts, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.CartGet(svc.Carts, logg))
				r.Delete("/", controllers.CartDiscard(svc.Carts, logg))
				r.Post("/lines", controllers.CartAddLine(svc.Carts, logg))
				r.Patch("/lines/{productId}", controllers.CartUpdateLine(svc.Carts, logg))
				r.Delete("/lines/{productId}", controllers.CartRemoveLine(svc.Carts, logg))
			})
		})

		r.With(idem).Post("/checkout", controllers.Checkout(svc.Checkout, logg))
		r.Get("/checkout/{sessionId}/status", controllers.CheckoutStatus(svc.Checkout, logg))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionList(svc.Transactions, logg))
			r.With(owner).Get("/summary", controllers.TransactionSummary(svc.Transactions, logg))
			r.Get("/invoice/{invoiceNumber}", controllers.TransactionByInvoice(svc.Transactions, logg))
			r.Get("/{transactionId}", controllers.TransactionGet(svc.Transactions, logg))
			r.Get("/{transactionId}/receipt", controllers.TransactionReceipt(svc.Receipts, logg))
			r.With(idem).Post("/{transactionId}/receipt/print", controllers.TransactionReceiptPrint(svc.Receipts, logg))
		})

		r.Get("/invoices/next", controllers.InvoiceNext(svc.Invoices, logg))

		r.Get("/store-info", controllers.StoreInfoGet(svc.StoreInfo, logg))
		r.With(owner).Put("/store-info", controllers.StoreInfoUpsert(svc.StoreInfo, logg))

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", controllers.NoteList(svc.Notes, logg))
			r.With(idem).Post("/", controllers.NoteCreate(svc.Notes, logg))
			r.Get("/{noteId}", controllers.NoteGet(svc.Notes, logg))
			r.Patch("/{noteId}", controllers.NoteUpdate(svc.Notes, logg))
			r.Delete("/{noteId}", controllers.NoteDelete(svc.Notes, logg))
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(owner)
			r.Get("/", controllers.StaffList(svc.Staff, logg))
			r.Post("/", controllers.StaffCreate(svc.Staff, logg))
			r.Patch("/{staffId}/active", controllers.StaffSetActive(svc.Staff, logg))
		})
	})

	return r
}
