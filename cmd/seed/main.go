// seed populates a development database with a small catalog and three demo
// customers whose order histories land in different churn risk bands. Safe to
// rerun: existing accounts are matched by email and left alone.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/pkg/config"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	"github.com/brightbasket/storefront-backend/pkg/logger"
	"github.com/brightbasket/storefront-backend/pkg/migrate"
	"github.com/brightbasket/storefront-backend/pkg/security"
)

const seedPassword = "storefront-dev"

type catalogEntry struct {
	name     string
	category string
	brand    string
	price    string
	stock    int
}

var catalog = []catalogEntry{
	{"Wireless Earbuds", "Electronics", "Auralis", "89.99", 120},
	{"4K Action Camera", "Electronics", "Peakshot", "249.00", 35},
	{"Merino Wool Sweater", "Clothing", "Northloom", "74.50", 80},
	{"Trail Running Shoes", "Sports", "Stridewell", "119.95", 60},
	{"Cast Iron Skillet", "Home", "Hearthline", "42.00", 150},
	{"French Press", "Home", "Hearthline", "28.75", 90},
	{"Yoga Mat", "Sports", "Stridewell", "34.99", 110},
	{"Paperback Box Set", "Books", "Inkbound", "54.00", 45},
}

// demoOrder places a completed order N days in the past.
type demoOrder struct {
	daysAgo int
	amount  string
}

type demoCustomer struct {
	email     string
	firstName string
	lastName  string
	orders    []demoOrder
}

// Three risk bands: a dormant customer with a declining spend pattern, a
// recent frequent buyer, and a fresh signup with no history at all.
var demoCustomers = []demoCustomer{
	{
		email:     "sarah.whitfield@example.com",
		firstName: "Sarah",
		lastName:  "Whitfield",
		orders: []demoOrder{
			{daysAgo: 600, amount: "220.00"},
			{daysAgo: 500, amount: "180.00"},
			{daysAgo: 400, amount: "60.00"},
			{daysAgo: 335, amount: "40.00"},
		},
	},
	{
		email:     "henry.okafor@example.com",
		firstName: "Henry",
		lastName:  "Okafor",
		orders: []demoOrder{
			{daysAgo: 60, amount: "95.00"},
			{daysAgo: 31, amount: "110.00"},
			{daysAgo: 14, amount: "88.50"},
			{daysAgo: 2, amount: "120.00"},
		},
	},
	{
		email:     "mia.lindqvist@example.com",
		firstName: "Mia",
		lastName:  "Lindqvist",
	},
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	skipOrders := flag.Bool("skip-orders", false, "seed catalog and customers only, no order history")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	if cfg.App.IsProd() {
		fmt.Fprintln(os.Stderr, "refusing to seed a production database")
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	err = dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := seedCatalog(tx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		if err := seedAdmin(tx); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		for _, c := range demoCustomers {
			if err := seedCustomer(tx, c, *skipOrders); err != nil {
				return fmt.Errorf("seed customer %s: %w", c.email, err)
			}
		}
		return nil
	})
	if err != nil {
		logg.Error(ctx, "seed transaction failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, "seed complete")
	fmt.Println("seeded catalog, admin@example.com and", len(demoCustomers), "demo customers")
	fmt.Println("all seeded accounts use password:", seedPassword)
}

func seedCatalog(tx *gorm.DB) error {
	for _, entry := range catalog {
		var count int64
		if err := tx.Model(&models.Product{}).Where("name = ?", entry.name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		category := entry.category
		brand := entry.brand
		product := models.Product{
			ID:            uuid.New(),
			Name:          entry.name,
			Category:      &category,
			Brand:         &brand,
			Price:         decimal.RequireFromString(entry.price),
			StockQuantity: entry.stock,
		}
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(tx *gorm.DB) error {
	_, existing, err := findAccount(tx, "admin@example.com")
	if err != nil {
		return err
	}
	if existing {
		return nil
	}
	hash, err := security.HashPassword(seedPassword)
	if err != nil {
		return err
	}
	admin := models.Account{
		ID:           uuid.New(),
		Email:        "admin@example.com",
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
	}
	return tx.Create(&admin).Error
}

func seedCustomer(tx *gorm.DB, c demoCustomer, skipOrders bool) error {
	_, existing, err := findAccount(tx, c.email)
	if err != nil {
		return err
	}
	if existing {
		return nil
	}

	hash, err := security.HashPassword(seedPassword)
	if err != nil {
		return err
	}
	account := models.Account{
		ID:           uuid.New(),
		Email:        c.email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := tx.Create(&account).Error; err != nil {
		return err
	}

	email := c.email
	profile := models.CustomerProfile{
		ID:        uuid.New(),
		AccountID: account.ID,
		FirstName: c.firstName,
		LastName:  c.lastName,
		Email:     &email,
	}
	if err := tx.Create(&profile).Error; err != nil {
		return err
	}

	if skipOrders {
		return nil
	}
	for _, o := range c.orders {
		placedAt := time.Now().AddDate(0, 0, -o.daysAgo)
		order := models.Order{
			ID:          uuid.New(),
			CustomerID:  &profile.ID,
			OrderDate:   placedAt,
			Status:      enums.OrderStatusCompleted,
			TotalAmount: decimal.RequireFromString(o.amount),
			CreatedAt:   placedAt,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
	}
	return nil
}

func findAccount(tx *gorm.DB, email string) (*models.Account, bool, error) {
	var account models.Account
	err := tx.Where("email = ?", email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &account, true, nil
}
