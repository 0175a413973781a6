package orders

import (
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/pagination"
)

// ListFilter pages the order listings. Status narrows when set.
type ListFilter struct {
	Status *string
	Cursor *pagination.Cursor
	Limit  int
}

// ListResult is one order page plus the cursor for the next one.
type ListResult struct {
	Orders     []models.Order
	NextCursor string
}
