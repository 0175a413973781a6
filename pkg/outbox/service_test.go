package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.Exec(`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`).Error)
	return gdb
}

func TestService_Emit(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := NewService(NewRepository(gdb), nil)
	orderID := uuid.New()

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          OrderCompletedData{OrderID: orderID, ItemCount: 2},
			Version:       1,
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, gdb.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCompleted, rows[0].EventType)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
}

func TestService_Emit_RequiresTransaction(t *testing.T) {
	t.Parallel()

	svc := NewService(NewRepository(newTestDB(t)), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	assert.Error(t, err)
}

func TestService_EmitIfNotExists(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := NewService(NewRepository(gdb), nil)
	orderID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          OrderCancelledData{OrderID: orderID},
		Version:       1,
	}

	for i := 0; i < 2; i++ {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, gdb.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepository_PublishLifecycle(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventStockReleased,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return repo.Insert(tx, row)
	}))

	pending, err := repo.FetchUnpublished(10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkFailed(pending[0].ID, assert.AnError))

	pending, err = repo.FetchUnpublished(10, 1)
	require.NoError(t, err)
	assert.Empty(t, pending, "one failed attempt exhausts a max of 1")

	pending, err = repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, repo.MarkPublished(pending[0].ID))

	pending, err = repo.FetchUnpublished(10, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
