package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.Exec(`CREATE TABLE cart_lines (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT cart_lines_account_product_key UNIQUE (account_id, product_id)
	)`).Error)
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(gdb))
	require.NoError(t, err)
	return svc
}

func TestUpsert_MergesQuantities(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	accountID := uuid.New()
	productID := uuid.New()
	ctx := context.Background()

	line, err := svc.Upsert(ctx, accountID, productID, 2)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 2, line.Quantity)

	line, err = svc.Upsert(ctx, accountID, productID, 3)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 5, line.Quantity)
}

func TestUpsert_ClampToZeroDeletesLine(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	accountID := uuid.New()
	productID := uuid.New()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, accountID, productID, 2)
	require.NoError(t, err)

	line, err := svc.Upsert(ctx, accountID, productID, -5)
	require.NoError(t, err)
	assert.Nil(t, line)

	var count int64
	require.NoError(t, gdb.Model(&models.CartLine{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUpsert_NegativeDeltaOnMissingLineIsNoop(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	line, err := svc.Upsert(context.Background(), uuid.New(), uuid.New(), -1)
	require.NoError(t, err)
	assert.Nil(t, line)
}

func TestUpsert_PartialDecrement(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	accountID := uuid.New()
	productID := uuid.New()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, accountID, productID, 5)
	require.NoError(t, err)

	line, err := svc.Upsert(ctx, accountID, productID, -2)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 3, line.Quantity)
}

func TestUpsert_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	_, err := svc.Upsert(context.Background(), uuid.Nil, uuid.New(), 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Upsert(context.Background(), uuid.New(), uuid.Nil, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSnapshot_OrderedByInsertion(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	accountID := uuid.New()
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, gdb.Exec(
		`INSERT INTO cart_lines (id, account_id, product_id, quantity, created_at) VALUES
		 (?, ?, ?, 1, '2026-01-01 10:00:00'),
		 (?, ?, ?, 2, '2026-01-01 11:00:00')`,
		uuid.New(), accountID, first, uuid.New(), accountID, second,
	).Error)

	lines, err := svc.Snapshot(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, first, lines[0].ProductID)
	assert.Equal(t, second, lines[1].ProductID)
}

func TestSnapshot_EmptyCart(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	lines, err := svc.Snapshot(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestClear_RemovesOnlyOwnLines(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	_, err := svc.Upsert(ctx, owner, uuid.New(), 1)
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, other, uuid.New(), 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, owner))

	ownerLines, err := svc.Snapshot(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, ownerLines)

	otherLines, err := svc.Snapshot(ctx, other)
	require.NoError(t, err)
	assert.Len(t, otherLines, 1)
}
