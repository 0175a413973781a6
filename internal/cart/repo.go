package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
)

// Repository persists cart lines keyed by (account, product).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, accountID, productID uuid.UUID) (*models.CartLine, error)
	MergeAdd(ctx context.Context, line *models.CartLine) error
	SetQuantity(ctx context.Context, accountID, productID uuid.UUID, qty int) error
	Delete(ctx context.Context, accountID, productID uuid.UUID) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, accountID, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// MergeAdd inserts the line or adds its quantity onto the existing row in a
// single upsert, so concurrent adds for the same product never lose writes.
func (r *repository) MergeAdd(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("cart_lines.quantity + excluded.quantity"),
			}),
		}).
		Create(line).Error
}

func (r *repository) SetQuantity(ctx context.Context, accountID, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		UpdateColumn("quantity", qty).Error
}

func (r *repository) Delete(ctx context.Context, accountID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Delete(&models.CartLine{}).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.CartLine{}).Error
}
