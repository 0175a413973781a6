package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one (account, product) entry with a positive quantity.
// Re-adding a product merges quantities; a line clamped to zero is deleted,
// never stored.
type CartLine struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index:cart_lines_account_id_idx;uniqueIndex:cart_lines_account_product_key"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_lines_account_product_key"`
	Quantity  int       `gorm:"column:quantity;not null;check:quantity > 0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
