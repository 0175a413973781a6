package churn

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
)

// Repository reads order history for feature extraction. Strictly read-only.
type Repository interface {
	CompletedOrders(ctx context.Context, customerID uuid.UUID, until time.Time) ([]models.Order, error)
	CustomerIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a churn repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CompletedOrders returns the customer's COMPLETED orders up to the cutoff,
// newest first.
func (r *repository) CompletedOrders(ctx context.Context, customerID uuid.UUID, until time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Select("id", "customer_id", "order_date", "status", "total_amount", "created_at").
		Where("customer_id = ? AND status = ? AND order_date <= ?", customerID, enums.OrderStatusCompleted, until).
		Order("order_date DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CustomerIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CustomerProfile{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
