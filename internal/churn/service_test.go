package churn

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/redis"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:churn_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			customer_id TEXT,
			order_date DATETIME,
			status TEXT NOT NULL DEFAULT 'PENDING',
			total_amount NUMERIC NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	} {
		require.NoError(t, gdb.Exec(ddl).Error)
	}
	return gdb
}

type cacheStub struct {
	data map[string]string
}

func newCacheStub() *cacheStub {
	return &cacheStub{data: map[string]string{}}
}

func (c *cacheStub) Get(_ context.Context, key string) (string, error) {
	v, ok := c.data[key]
	if !ok {
		return "", redis.ErrCacheMiss
	}
	return v, nil
}

func (c *cacheStub) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	}
	return nil
}

func (c *cacheStub) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *cacheStub) RiskKey(customerID string) string {
	return "risk:" + customerID
}

func newTestService(t *testing.T, gdb *gorm.DB, cache Cache, now time.Time) Service {
	t.Helper()
	extractor, err := NewExtractor(NewRepository(gdb), 365)
	require.NoError(t, err)
	svc, err := NewService(extractor, DefaultScoreParams(), cache, time.Hour, nil)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return now }
	return svc
}

func seedProfile(t *testing.T, gdb *gorm.DB) uuid.UUID {
	t.Helper()
	profile := models.CustomerProfile{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		FirstName: "Sarah",
		LastName:  "Mills",
	}
	require.NoError(t, gdb.Create(&profile).Error)
	return profile.ID
}

func seedCompletedOrder(t *testing.T, gdb *gorm.DB, customerID uuid.UUID, orderDate time.Time, amount string) {
	t.Helper()
	order := models.Order{
		ID:          uuid.New(),
		CustomerID:  &customerID,
		OrderDate:   orderDate,
		Status:      enums.OrderStatusCompleted,
		TotalAmount: decimal.RequireFromString(amount),
	}
	require.NoError(t, gdb.Create(&order).Error)
}

func TestAssessCustomer_DormantDecliningIsHigh(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	customerID := seedProfile(t, gdb)

	// Four completed orders, newest eleven months old, spend shrinking.
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -335), "40.00")
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -400), "60.00")
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -500), "180.00")
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -600), "220.00")

	svc := newTestService(t, gdb, nil, asOf)
	assessment, err := svc.AssessCustomer(context.Background(), customerID)
	require.NoError(t, err)

	assert.Equal(t, enums.RiskCategoryHigh, assessment.Category)
	require.NotNil(t, assessment.Score)
	assert.GreaterOrEqual(t, *assessment.Score, HighThreshold)
	require.NotNil(t, assessment.Features)
	assert.Equal(t, 4, assessment.Features.OrderCount)
	assert.Equal(t, 335, assessment.Features.RecencyDays)
	require.NotNil(t, assessment.Features.Trend)
	assert.Equal(t, enums.TrendDeclining, assessment.Features.Trend.Direction)
}

func TestAssessCustomer_SingleRecentOrderIsNotHigh(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	customerID := seedProfile(t, gdb)
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -2), "100.00")

	svc := newTestService(t, gdb, nil, asOf)
	assessment, err := svc.AssessCustomer(context.Background(), customerID)
	require.NoError(t, err)

	assert.NotEqual(t, enums.RiskCategoryHigh, assessment.Category)
	require.NotNil(t, assessment.Features)
	assert.Equal(t, 2, assessment.Features.RecencyDays)
	assert.Nil(t, assessment.Features.Trend, "single order has no trend")
}

func TestAssessCustomer_NoOrdersIsUnscorable(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	customerID := seedProfile(t, gdb)

	svc := newTestService(t, gdb, nil, time.Now().UTC())
	assessment, err := svc.AssessCustomer(context.Background(), customerID)
	require.NoError(t, err)

	assert.Equal(t, enums.RiskCategoryUnscorable, assessment.Category)
	assert.Nil(t, assessment.Score)
}

func TestAssessCustomer_PendingOrdersDoNotCount(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	customerID := seedProfile(t, gdb)
	order := models.Order{
		ID:          uuid.New(),
		CustomerID:  &customerID,
		OrderDate:   asOf.AddDate(0, 0, -5),
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("349.99"),
	}
	require.NoError(t, gdb.Create(&order).Error)

	svc := newTestService(t, gdb, nil, asOf)
	assessment, err := svc.AssessCustomer(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, enums.RiskCategoryUnscorable, assessment.Category)
}

func TestAssessCustomer_Deterministic(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	customerID := seedProfile(t, gdb)
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -100), "120.00")
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -200), "140.00")

	svc := newTestService(t, gdb, nil, asOf)
	first, err := svc.AssessCustomer(context.Background(), customerID)
	require.NoError(t, err)
	second, err := svc.AssessCustomer(context.Background(), customerID)
	require.NoError(t, err)

	require.NotNil(t, first.Score)
	require.NotNil(t, second.Score)
	assert.Equal(t, *first.Score, *second.Score)
	assert.Equal(t, first.Category, second.Category)
}

func TestAssessCustomer_ServesFromCache(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	cache := newCacheStub()
	customerID := seedProfile(t, gdb)

	score := 0.91
	cached := RiskAssessment{
		CustomerID: customerID,
		Category:   enums.RiskCategoryHigh,
		Score:      &score,
		ComputedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.data[cache.RiskKey(customerID.String())] = string(raw)

	// No orders exist, so a fresh compute would return UNSCORABLE.
	svc := newTestService(t, gdb, cache, time.Now().UTC())
	assessment, err := svc.AssessCustomer(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, enums.RiskCategoryHigh, assessment.Category)
	require.NotNil(t, assessment.Score)
	assert.Equal(t, score, *assessment.Score)
}

func TestRecomputeCustomer_BypassesAndRefreshesCache(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cache := newCacheStub()
	customerID := seedProfile(t, gdb)
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -400), "50.00")

	score := 0.05
	stale, err := json.Marshal(RiskAssessment{
		CustomerID: customerID,
		Category:   enums.RiskCategoryLow,
		Score:      &score,
	})
	require.NoError(t, err)
	key := cache.RiskKey(customerID.String())
	cache.data[key] = string(stale)

	svc := newTestService(t, gdb, cache, asOf)
	assessment, err := svc.RecomputeCustomer(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, enums.RiskCategoryHigh, assessment.Category)

	var refreshed RiskAssessment
	require.NoError(t, json.Unmarshal([]byte(cache.data[key]), &refreshed))
	assert.Equal(t, enums.RiskCategoryHigh, refreshed.Category)
}

func TestFeatures_FrequencyCountsWindowOnly(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	customerID := seedProfile(t, gdb)
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -30), "100.00")
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -300), "100.00")
	seedCompletedOrder(t, gdb, customerID, asOf.AddDate(0, 0, -700), "100.00")

	svc := newTestService(t, gdb, nil, asOf)
	features, err := svc.Features(context.Background(), customerID, asOf)
	require.NoError(t, err)

	assert.Equal(t, 3, features.OrderCount)
	assert.Equal(t, 2, features.Frequency, "order outside the window is excluded")
	assert.True(t, features.MonetaryTotal.Equal(decimal.RequireFromString("300.00")))
	assert.True(t, features.MonetaryAvg.Equal(decimal.RequireFromString("100.00")))
}

func TestFeatures_NoOrdersIsInsufficientData(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	customerID := seedProfile(t, gdb)

	svc := newTestService(t, gdb, nil, time.Now().UTC())
	_, err := svc.Features(context.Background(), customerID, time.Now().UTC())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientData))
}

func TestDistribution(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	dormant := seedProfile(t, gdb)
	seedCompletedOrder(t, gdb, dormant, asOf.AddDate(0, 0, -400), "80.00")

	active := seedProfile(t, gdb)
	for month := 1; month <= 12; month++ {
		seedCompletedOrder(t, gdb, active, asOf.AddDate(0, -month, 3), "150.00")
	}

	seedProfile(t, gdb) // never purchased

	svc := newTestService(t, gdb, nil, asOf)
	dist, err := svc.Distribution(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, dist.Total)
	assert.Equal(t, 1, dist.High)
	assert.Equal(t, 1, dist.Low)
	assert.Equal(t, 1, dist.Unscorable)
	assert.Equal(t, 0, dist.Medium)
}
