package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/internal/accounts"
	"github.com/brightbasket/storefront-backend/internal/cart"
	checkoutsvc "github.com/brightbasket/storefront-backend/internal/checkout"
	"github.com/brightbasket/storefront-backend/internal/churn"
	"github.com/brightbasket/storefront-backend/internal/favorites"
	"github.com/brightbasket/storefront-backend/internal/inventory"
	"github.com/brightbasket/storefront-backend/internal/orders"
	"github.com/brightbasket/storefront-backend/internal/products"
	"github.com/brightbasket/storefront-backend/pkg/config"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/outbox"
)

var testDDL = []string{
	`CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE customer_profiles (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		address TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT,
		brand TEXT,
		image_url TEXT,
		image_alt_text TEXT,
		price NUMERIC NOT NULL,
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE cart_lines (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT cart_lines_account_product_key UNIQUE (account_id, product_id)
	)`,
	`CREATE TABLE favorite_marks (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (account_id, product_id)
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT,
		order_date DATETIME,
		status TEXT NOT NULL DEFAULT 'PENDING',
		total_amount NUMERIC NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price_at_order NUMERIC NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, ddl := range testDDL {
		if err := gdb.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	client := db.NewWithConn(gdb)
	cartSvc, err := cart.NewService(cart.NewRepository(gdb))
	if err != nil {
		t.Fatal(err)
	}
	ledger, err := inventory.NewLedger(inventory.NewRepository(gdb))
	if err != nil {
		t.Fatal(err)
	}
	events := outbox.NewService(outbox.NewRepository(gdb), nil)
	ordersRepo := orders.NewRepository(gdb)
	ordersSvc, err := orders.NewService(client, ordersRepo, ledger, events)
	if err != nil {
		t.Fatal(err)
	}
	productsRepo := products.NewRepository(gdb)
	productsSvc, err := products.NewService(productsRepo, nil, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	profilesRepo := accounts.NewProfileRepository(gdb)
	accountsSvc, err := accounts.NewService(client, accounts.NewRepository(gdb), profilesRepo,
		cart.NewRepository(gdb), favorites.NewRepository(gdb), nil)
	if err != nil {
		t.Fatal(err)
	}
	favoritesSvc, err := favorites.NewService(favorites.NewRepository(gdb), productsRepo)
	if err != nil {
		t.Fatal(err)
	}
	checkoutSvc, err := checkoutsvc.NewService(client, cartSvc, ordersRepo, productsRepo, ledger,
		profilesRepo, events, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	extractor, err := churn.NewExtractor(churn.NewRepository(gdb), 365)
	if err != nil {
		t.Fatal(err)
	}
	churnSvc, err := churn.NewService(extractor, churn.DefaultScoreParams(), nil, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "storefront-test"

	return NewRouter(cfg, nil, client, nil, Services{
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Orders:    ordersSvc,
		Products:  productsSvc,
		Favorites: favoritesSvc,
		Accounts:  accountsSvc,
		Churn:     churnSvc,
	})
}

func mintToken(t *testing.T, accountID uuid.UUID, isAdmin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"account_id": accountID.String(),
		"is_admin":   isAdmin,
		"iss":        "storefront-test",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("router-test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Storefront-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestProductsListIsPublic(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New(), false))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			Items []any `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 0 {
		t.Fatalf("expected empty cart, got %v", envelope.Data.Items)
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New(), false))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New(), true))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}
