package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/brightbasket/storefront-backend/api/routes"
	"github.com/brightbasket/storefront-backend/internal/accounts"
	"github.com/brightbasket/storefront-backend/internal/cart"
	"github.com/brightbasket/storefront-backend/internal/checkout"
	"github.com/brightbasket/storefront-backend/internal/churn"
	"github.com/brightbasket/storefront-backend/internal/favorites"
	"github.com/brightbasket/storefront-backend/internal/inventory"
	"github.com/brightbasket/storefront-backend/internal/orders"
	"github.com/brightbasket/storefront-backend/internal/products"
	"github.com/brightbasket/storefront-backend/pkg/config"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/logger"
	"github.com/brightbasket/storefront-backend/pkg/migrate"
	"github.com/brightbasket/storefront-backend/pkg/outbox"
	"github.com/brightbasket/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.DB()

	cartRepo := cart.NewRepository(gdb)
	cartSvc, err := cart.NewService(cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ledger, err := inventory.NewLedger(inventory.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory ledger", err)
		os.Exit(1)
	}

	events := outbox.NewService(outbox.NewRepository(gdb), logg)

	ordersRepo := orders.NewRepository(gdb)
	ordersSvc, err := orders.NewService(dbClient, ordersRepo, ledger, events)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(gdb)
	productsSvc, err := products.NewService(productsRepo, redisClient, cfg.Cache.ProductTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	profilesRepo := accounts.NewProfileRepository(gdb)
	favoritesRepo := favorites.NewRepository(gdb)
	accountsSvc, err := accounts.NewService(dbClient, accounts.NewRepository(gdb), profilesRepo, cartRepo, favoritesRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	favoritesSvc, err := favorites.NewService(favoritesRepo, productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create favorites service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(dbClient, cartSvc, ordersRepo, productsRepo, ledger,
		profilesRepo, events, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	extractor, err := churn.NewExtractor(churn.NewRepository(gdb), cfg.Churn.FrequencyWindowDays)
	if err != nil {
		logg.Error(context.Background(), "failed to create churn extractor", err)
		os.Exit(1)
	}
	churnSvc, err := churn.NewService(extractor, churn.ScoreParamsFromConfig(cfg.Churn), redisClient, cfg.Cache.RiskTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create churn service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Cart:      cartSvc,
			Checkout:  checkoutSvc,
			Orders:    ordersSvc,
			Products:  productsSvc,
			Favorites: favoritesSvc,
			Accounts:  accountsSvc,
			Churn:     churnSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
