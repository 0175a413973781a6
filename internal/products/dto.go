package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/pagination"
)

// CreateProductInput is the admin catalog-create payload.
type CreateProductInput struct {
	Name          string          `json:"name" validate:"required"`
	Description   *string         `json:"description"`
	Category      *string         `json:"category"`
	Brand         *string         `json:"brand"`
	ImageURL      *string         `json:"image_url"`
	ImageAltText  *string         `json:"image_alt_text"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
}

// UpdateProductInput carries partial catalog updates; nil fields are untouched.
type UpdateProductInput struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category"`
	Brand        *string          `json:"brand"`
	ImageURL     *string          `json:"image_url"`
	ImageAltText *string          `json:"image_alt_text"`
	Price        *decimal.Decimal `json:"price"`
}

// ListFilter narrows and pages the catalog listing.
type ListFilter struct {
	Category *string
	Cursor   *pagination.Cursor
	Limit    int
}

// ListResult is one catalog page plus the cursor for the next one.
type ListResult struct {
	Products   []models.Product
	NextCursor string
}

// StockLoad is one admin restock instruction.
type StockLoad struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}
