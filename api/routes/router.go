package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightbasket/storefront-backend/api/controllers"
	"github.com/brightbasket/storefront-backend/api/middleware"
	"github.com/brightbasket/storefront-backend/internal/accounts"
	"github.com/brightbasket/storefront-backend/internal/cart"
	checkoutsvc "github.com/brightbasket/storefront-backend/internal/checkout"
	"github.com/brightbasket/storefront-backend/internal/churn"
	"github.com/brightbasket/storefront-backend/internal/favorites"
	"github.com/brightbasket/storefront-backend/internal/orders"
	"github.com/brightbasket/storefront-backend/internal/products"
	"github.com/brightbasket/storefront-backend/pkg/config"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/logger"
	"github.com/brightbasket/storefront-backend/pkg/redis"
)

// Services groups everything the router exposes over HTTP.
type Services struct {
	Cart      cart.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Products  products.Service
	Favorites favorites.Service
	Accounts  accounts.Service
	Churn     churn.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	readiness := map[string]controllers.Pinger{}
	if dbClient != nil {
		readiness["postgres"] = dbClient
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(svcs.Products, logg))
			r.Get("/{productID}", controllers.ProductGet(svcs.Products, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svcs.Cart, logg))
				r.Post("/items", controllers.CartUpsert(svcs.Cart, logg))
				r.Delete("/", controllers.CartClear(svcs.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersHistory(svcs.Orders, svcs.Accounts, logg))
				r.Get("/{orderID}", controllers.OrderGet(svcs.Orders, svcs.Accounts, logg))
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", controllers.FavoritesList(svcs.Favorites, logg))
				r.Put("/{productID}", controllers.FavoriteAdd(svcs.Favorites, logg))
				r.Delete("/{productID}", controllers.FavoriteRemove(svcs.Favorites, logg))
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/profile", controllers.ProfileGet(svcs.Accounts, logg))
				r.Patch("/profile", controllers.ProfileUpdate(svcs.Accounts, logg))
				r.Delete("/", controllers.AccountDelete(svcs.Accounts, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireAdmin(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductCreate(svcs.Products, logg))
			r.Patch("/{productID}", controllers.AdminProductUpdate(svcs.Products, logg))
			r.Post("/stock-loads", controllers.AdminStockLoad(svcs.Products, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(svcs.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.AdminOrderCancel(svcs.Orders, logg))
		})

		r.Route("/churn", func(r chi.Router) {
			r.Get("/distribution", controllers.ChurnDistribution(svcs.Churn, logg))
			r.Route("/customers/{customerID}", func(r chi.Router) {
				r.Get("/", controllers.ChurnAssessment(svcs.Churn, logg))
				r.Post("/recompute", controllers.ChurnRecompute(svcs.Churn, logg))
				r.Get("/features", controllers.ChurnFeatures(svcs.Churn, logg))
			})
		})
	})

	return r
}
