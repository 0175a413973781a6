package cart

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
)

// Service exposes merge-upsert cart semantics. A cart line only ever exists
// with a positive quantity; clamping to zero deletes the row.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Upsert(ctx context.Context, accountID, productID uuid.UUID, delta int) (*models.CartLine, error)
	Snapshot(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error)
	Clear(ctx context.Context, accountID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires a cart service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Upsert applies delta to the (account, product) line. Positive deltas merge
// onto any existing quantity; negative deltas clamp at zero by removing the
// line. Returns the resulting line, or nil when the line no longer exists.
func (s *service) Upsert(ctx context.Context, accountID, productID uuid.UUID, delta int) (*models.CartLine, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if delta == 0 {
		return s.currentLine(ctx, accountID, productID)
	}

	if delta > 0 {
		line := &models.CartLine{
			ID:        uuid.New(),
			AccountID: accountID,
			ProductID: productID,
			Quantity:  delta,
		}
		if err := s.repo.MergeAdd(ctx, line); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merging cart line")
		}
		return s.currentLine(ctx, accountID, productID)
	}

	existing, err := s.repo.Get(ctx, accountID, productID)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}

	next := existing.Quantity + delta
	if next <= 0 {
		if err := s.repo.Delete(ctx, accountID, productID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
		}
		return nil, nil
	}
	if err := s.repo.SetQuantity(ctx, accountID, productID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart line")
	}
	existing.Quantity = next
	return existing, nil
}

// Snapshot returns the cart lines in insertion order from a single query.
func (s *service) Snapshot(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	lines, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart lines")
	}
	return lines, nil
}

// Clear removes every line for the account. Checkout calls this only after
// the order transaction committed.
func (s *service) Clear(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if err := s.repo.DeleteByAccount(ctx, accountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) currentLine(ctx context.Context, accountID, productID uuid.UUID) (*models.CartLine, error) {
	line, err := s.repo.Get(ctx, accountID, productID)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}
	return line, nil
}
