package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/internal/cart"
	"github.com/brightbasket/storefront-backend/internal/inventory"
	"github.com/brightbasket/storefront-backend/internal/orders"
	"github.com/brightbasket/storefront-backend/internal/products"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/outbox"
)

type profileRepoStub struct {
	db *gorm.DB
}

func (p *profileRepoStub) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.CustomerProfile, error) {
	var profile models.CustomerProfile
	if err := p.db.WithContext(ctx).First(&profile, "account_id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

type riskCacheStub struct {
	deleted []string
}

func (c *riskCacheStub) Del(_ context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	return nil
}

func (c *riskCacheStub) RiskKey(customerID string) string {
	return "risk:" + customerID
}

type fixture struct {
	gdb   *gorm.DB
	svc   Service
	cache *riskCacheStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range []string{
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
	} {
		require.NoError(t, gdb.Exec(ddl).Error)
	}

	cartSvc, err := cart.NewService(cart.NewRepository(gdb))
	require.NoError(t, err)
	ledger, err := inventory.NewLedger(inventory.NewRepository(gdb))
	require.NoError(t, err)
	cache := &riskCacheStub{}

	svc, err := NewService(
		db.NewWithConn(gdb),
		cartSvc,
		orders.NewRepository(gdb),
		products.NewRepository(gdb),
		ledger,
		&profileRepoStub{db: gdb},
		outbox.NewService(outbox.NewRepository(gdb), nil),
		cache,
		nil,
	)
	require.NoError(t, err)
	return &fixture{gdb: gdb, svc: svc, cache: cache}
}

func (f *fixture) seedCustomer(t *testing.T) (accountID, profileID uuid.UUID) {
	t.Helper()
	accountID = uuid.New()
	profile := models.CustomerProfile{
		ID:        uuid.New(),
		AccountID: accountID,
		FirstName: "Sarah",
		LastName:  "Johnson",
	}
	require.NoError(t, f.gdb.Create(&profile).Error)
	return accountID, profile.ID
}

func (f *fixture) seedProduct(t *testing.T, price string, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:            uuid.New(),
		Name:          "Wireless Headphones",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	require.NoError(t, f.gdb.Create(&product).Error)
	return product.ID
}

func (f *fixture) addToCart(t *testing.T, accountID, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, f.gdb.Create(&models.CartLine{
		ID:        uuid.New(),
		AccountID: accountID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

func TestCheckout_Succeeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	accountID, profileID := f.seedCustomer(t)
	headphones := f.seedProduct(t, "349.99", 10)
	speaker := f.seedProduct(t, "89.50", 4)
	f.addToCart(t, accountID, headphones, 2)
	f.addToCart(t, accountID, speaker, 1)

	order, err := f.svc.Checkout(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.CustomerID)
	assert.Equal(t, profileID, *order.CustomerID)

	// total reconciles exactly: 2*349.99 + 1*89.50
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("789.48")),
		"got total %s", order.TotalAmount)

	var sum decimal.Decimal
	for _, item := range order.Items {
		sum = sum.Add(item.LineTotal())
	}
	assert.True(t, order.TotalAmount.Equal(sum))

	var product models.Product
	require.NoError(t, f.gdb.First(&product, "id = ?", headphones).Error)
	assert.Equal(t, 8, product.StockQuantity)
	product = models.Product{}
	require.NoError(t, f.gdb.First(&product, "id = ?", speaker).Error)
	assert.Equal(t, 3, product.StockQuantity)

	var cartCount int64
	require.NoError(t, f.gdb.Model(&models.CartLine{}).Where("account_id = ?", accountID).Count(&cartCount).Error)
	assert.Equal(t, int64(0), cartCount)

	var events []models.OutboxEvent
	require.NoError(t, f.gdb.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCompleted, events[0].EventType)

	assert.Contains(t, f.cache.deleted, "risk:"+profileID.String())
}

func TestCheckout_PriceSnapshotIgnoresLaterChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	accountID, _ := f.seedCustomer(t)
	productID := f.seedProduct(t, "100.00", 5)
	f.addToCart(t, accountID, productID, 1)

	order, err := f.svc.Checkout(context.Background(), accountID)
	require.NoError(t, err)

	require.NoError(t, f.gdb.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("price", decimal.RequireFromString("250.00")).Error)

	var item models.OrderItem
	require.NoError(t, f.gdb.First(&item, "order_id = ?", order.ID).Error)
	assert.True(t, item.PriceAtOrder.Equal(decimal.RequireFromString("100.00")))
}

func TestCheckout_EmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	accountID, _ := f.seedCustomer(t)

	_, err := f.svc.Checkout(context.Background(), accountID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart))

	var count int64
	require.NoError(t, f.gdb.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCheckout_MissingProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestCheckout_OutOfStockRollsBackEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	accountID, _ := f.seedCustomer(t)
	plentiful := f.seedProduct(t, "10.00", 100)
	scarce := f.seedProduct(t, "20.00", 1)
	f.addToCart(t, accountID, plentiful, 5)
	f.addToCart(t, accountID, scarce, 3)

	_, err := f.svc.Checkout(context.Background(), accountID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOutOfStock, typed.Code())

	details, ok := typed.Details().(inventory.OutOfStockDetails)
	require.True(t, ok)
	assert.Equal(t, scarce, details.ProductID)
	assert.Equal(t, 3, details.Requested)
	assert.Equal(t, 1, details.Available)

	// all-or-nothing: no order, stock restored, cart intact
	var orderCount int64
	require.NoError(t, f.gdb.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)

	var product models.Product
	require.NoError(t, f.gdb.First(&product, "id = ?", plentiful).Error)
	assert.Equal(t, 100, product.StockQuantity)
	product = models.Product{}
	require.NoError(t, f.gdb.First(&product, "id = ?", scarce).Error)
	assert.Equal(t, 1, product.StockQuantity)

	var cartCount int64
	require.NoError(t, f.gdb.Model(&models.CartLine{}).Where("account_id = ?", accountID).Count(&cartCount).Error)
	assert.Equal(t, int64(2), cartCount)

	var eventCount int64
	require.NoError(t, f.gdb.Model(&models.OutboxEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(0), eventCount)
}

func TestCheckout_ContendedStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	productID := f.seedProduct(t, "49.99", 80)

	firstAccount, _ := f.seedCustomer(t)
	secondAccount, _ := f.seedCustomer(t)
	f.addToCart(t, firstAccount, productID, 50)
	f.addToCart(t, secondAccount, productID, 50)

	_, err := f.svc.Checkout(context.Background(), firstAccount)
	require.NoError(t, err)

	_, err = f.svc.Checkout(context.Background(), secondAccount)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOutOfStock, typed.Code())

	details, ok := typed.Details().(inventory.OutOfStockDetails)
	require.True(t, ok)
	assert.Equal(t, 50, details.Requested)
	assert.Equal(t, 30, details.Available)

	var product models.Product
	require.NoError(t, f.gdb.First(&product, "id = ?", productID).Error)
	assert.Equal(t, 30, product.StockQuantity)

	var orderCount int64
	require.NoError(t, f.gdb.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}
