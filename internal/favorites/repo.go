package favorites

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/pagination"
)

// Repository persists favorite marks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Add(ctx context.Context, mark *models.FavoriteMark) error
	Remove(ctx context.Context, accountID, productID uuid.UUID) (int64, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]favoriteRecord, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a favorites repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Add inserts the mark and ignores duplicates on (account_id, product_id).
func (r *repository) Add(ctx context.Context, mark *models.FavoriteMark) error {
	if mark.ID == uuid.Nil {
		mark.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(mark).Error
}

// Remove deletes the mark if it exists and reports how many rows went away.
func (r *repository) Remove(ctx context.Context, accountID, productID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Delete(&models.FavoriteMark{})
	return result.RowsAffected, result.Error
}

// favoriteRecord is the join row behind the favorites listing.
type favoriteRecord struct {
	FavoriteID        uuid.UUID       `gorm:"column:favorite_id"`
	FavoriteCreatedAt time.Time       `gorm:"column:favorite_created_at"`
	ProductID         uuid.UUID       `gorm:"column:product_id"`
	Name              string          `gorm:"column:name"`
	Category          *string         `gorm:"column:category"`
	Brand             *string         `gorm:"column:brand"`
	ImageURL          *string         `gorm:"column:image_url"`
	Price             decimal.Decimal `gorm:"column:price"`
	StockQuantity     int             `gorm:"column:stock_quantity"`
}

// ListByAccount returns the account's favorites joined with the catalog,
// newest first.
func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]favoriteRecord, error) {
	query := r.db.WithContext(ctx).
		Table("favorite_marks fm").
		Select(`fm.id AS favorite_id,
			fm.created_at AS favorite_created_at,
			p.id AS product_id,
			p.name,
			p.category,
			p.brand,
			p.image_url,
			p.price,
			p.stock_quantity`).
		Joins("JOIN products p ON p.id = fm.product_id").
		Where("fm.account_id = ?", accountID)

	if filter.Cursor != nil {
		query = query.Where(
			"(fm.created_at < ?) OR (fm.created_at = ? AND fm.id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}

	var rows []favoriteRecord
	err := query.
		Order("fm.created_at DESC").
		Order("fm.id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByAccount clears all marks for an account. Account deletion path.
func (r *repository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.FavoriteMark{}).Error
}
