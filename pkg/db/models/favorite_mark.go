package models

import (
	"time"

	"github.com/google/uuid"
)

// FavoriteMark links an account to a liked product. Existence-only, unique
// per pair.
type FavoriteMark struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index:favorite_marks_account_id_idx;uniqueIndex:favorite_marks_account_product_key"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:favorite_marks_product_id_idx;uniqueIndex:favorite_marks_account_product_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
