package favorites

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/internal/products"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/pagination"
)

// Service exposes favorite management. Favoriting is existence-only and
// idempotent in both directions.
type Service interface {
	Add(ctx context.Context, accountID, productID uuid.UUID) error
	Remove(ctx context.Context, accountID, productID uuid.UUID) error
	List(ctx context.Context, accountID uuid.UUID, filter ListFilter) (*ListResult, error)
}

type service struct {
	repo        Repository
	productRepo products.Repository
}

// NewService builds the favorites service.
func NewService(repo Repository, productRepo products.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("favorites repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo, productRepo: productRepo}, nil
}

// Add marks the product as a favorite. Re-favoriting is a no-op.
func (s *service) Add(ctx context.Context, accountID, productID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s not found", productID)).
				WithDetails(map[string]any{"productId": productID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	mark := models.FavoriteMark{AccountID: accountID, ProductID: productID}
	if err := s.repo.Add(ctx, &mark); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding favorite")
	}
	return nil
}

// Remove drops the favorite regardless of whether it existed.
func (s *service) Remove(ctx context.Context, accountID, productID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.repo.Remove(ctx, accountID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing favorite")
	}
	return nil
}

// List returns one page of the account's favorites, newest first.
func (s *service) List(ctx context.Context, accountID uuid.UUID, filter ListFilter) (*ListResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	rows, err := s.repo.ListByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing favorites")
	}

	limit := pagination.NormalizeLimit(filter.Limit)
	result := &ListResult{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.FavoriteCreatedAt,
			ID:        last.FavoriteID,
		})
	}

	result.Items = make([]FavoriteItem, 0, len(rows))
	for _, row := range rows {
		result.Items = append(result.Items, FavoriteItem{
			FavoriteID:  row.FavoriteID,
			ProductID:   row.ProductID,
			Name:        row.Name,
			Category:    row.Category,
			Brand:       row.Brand,
			ImageURL:    row.ImageURL,
			Price:       row.Price,
			InStock:     row.StockQuantity > 0,
			FavoritedAt: row.FavoriteCreatedAt,
		})
	}
	return result, nil
}
