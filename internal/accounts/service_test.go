package accounts

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
	"github.com/brightbasket/storefront-backend/internal/favorites"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:accounts_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range []string{
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
	} {
		require.NoError(t, gdb.Exec(ddl).Error)
	}
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		db.NewWithConn(gdb),
		NewRepository(gdb),
		NewProfileRepository(gdb),
		cart.NewRepository(gdb),
		favorites.NewRepository(gdb),
		nil,
	)
	require.NoError(t, err)
	return svc
}

type fixture struct {
	account models.Account
	profile models.CustomerProfile
}

func seedAccount(t *testing.T, gdb *gorm.DB) fixture {
	t.Helper()
	account := models.Account{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "argon2-placeholder",
		IsActive:     true,
	}
	require.NoError(t, gdb.Create(&account).Error)
	profile := models.CustomerProfile{
		ID:        uuid.New(),
		AccountID: account.ID,
		FirstName: "Dana",
		LastName:  "Reyes",
	}
	require.NoError(t, gdb.Create(&profile).Error)
	return fixture{account: account, profile: profile}
}

func TestProfile(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	fix := seedAccount(t, gdb)

	profile, err := svc.Profile(context.Background(), fix.account.ID)
	require.NoError(t, err)
	assert.Equal(t, fix.profile.ID, profile.ID)
	assert.Equal(t, "Dana", profile.FirstName)

	_, err = svc.Profile(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProfile_PartialFields(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	fix := seedAccount(t, gdb)

	phone := "+1-555-0100"
	updated, err := svc.UpdateProfile(context.Background(), fix.account.ID, UpdateProfileInput{
		Phone: &phone,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)
	assert.Equal(t, "Dana", updated.FirstName, "untouched fields survive")

	first := "Daniela"
	updated, err = svc.UpdateProfile(context.Background(), fix.account.ID, UpdateProfileInput{
		FirstName: &first,
	})
	require.NoError(t, err)
	assert.Equal(t, "Daniela", updated.FirstName)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)
}

func TestDeleteAccount_DetachesOrdersAndCascades(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	fix := seedAccount(t, gdb)
	productID := uuid.New()

	require.NoError(t, gdb.Create(&models.CartLine{
		ID: uuid.New(), AccountID: fix.account.ID, ProductID: productID, Quantity: 2,
	}).Error)
	require.NoError(t, gdb.Create(&models.FavoriteMark{
		ID: uuid.New(), AccountID: fix.account.ID, ProductID: productID,
	}).Error)
	order := models.Order{
		ID:          uuid.New(),
		CustomerID:  &fix.profile.ID,
		Status:      enums.OrderStatusCompleted,
		TotalAmount: decimal.RequireFromString("123.45"),
	}
	require.NoError(t, gdb.Create(&order).Error)

	require.NoError(t, svc.DeleteAccount(context.Background(), fix.account.ID))

	var count int64
	require.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", fix.account.ID).Count(&count).Error)
	assert.Zero(t, count, "account row removed")
	require.NoError(t, gdb.Model(&models.CustomerProfile{}).Where("account_id = ?", fix.account.ID).Count(&count).Error)
	assert.Zero(t, count, "profile removed")
	require.NoError(t, gdb.Model(&models.CartLine{}).Where("account_id = ?", fix.account.ID).Count(&count).Error)
	assert.Zero(t, count, "cart cleared")
	require.NoError(t, gdb.Model(&models.FavoriteMark{}).Where("account_id = ?", fix.account.ID).Count(&count).Error)
	assert.Zero(t, count, "favorites cleared")

	var survivor models.Order
	require.NoError(t, gdb.First(&survivor, "id = ?", order.ID).Error)
	assert.Nil(t, survivor.CustomerID, "order detached, not deleted")
	assert.True(t, survivor.TotalAmount.Equal(order.TotalAmount))
}

func TestDeleteAccount_UnknownAccount(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)

	err := svc.DeleteAccount(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteAccount_NoProfileStillSucceeds(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	account := models.Account{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "argon2-placeholder",
	}
	require.NoError(t, gdb.Create(&account).Error)

	require.NoError(t, svc.DeleteAccount(context.Background(), account.ID))

	var count int64
	require.NoError(t, gdb.Model(&models.Account{}).Where("id = ?", account.ID).Count(&count).Error)
	assert.Zero(t, count)
}
