package favorites

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/storefront-backend/pkg/pagination"
)

// FavoriteItem is a liked product joined with its current catalog row.
// Price and stock reflect the catalog now, not the moment of favoriting.
type FavoriteItem struct {
	FavoriteID  uuid.UUID       `json:"favoriteId"`
	ProductID   uuid.UUID       `json:"productId"`
	Name        string          `json:"name"`
	Category    *string         `json:"category,omitempty"`
	Brand       *string         `json:"brand,omitempty"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Price       decimal.Decimal `json:"price"`
	InStock     bool            `json:"inStock"`
	FavoritedAt time.Time       `json:"favoritedAt"`
}

// ListFilter drives favorite listing, newest first.
type ListFilter struct {
	Cursor *pagination.Cursor
	Limit  int
}

// ListResult is one page of favorites.
type ListResult struct {
	Items      []FavoriteItem `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}
