package inventory

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
)

// maxRetries bounds the serialization-failure retry loop before the caller
// sees CONCURRENT_MODIFICATION.
const maxRetries = 3

// OutOfStockDetails is attached to OUT_OF_STOCK errors. Available reflects
// the count at evaluation time, not at cart-add time.
type OutOfStockDetails struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

type reservationState int

const (
	stateReserved reservationState = iota
	stateCommitted
	stateReleased
)

// Reservation is a held decrement. Stock is already subtracted while the
// reservation is open; Release returns it, Commit makes it final.
type Reservation struct {
	ProductID uuid.UUID
	Quantity  int
	state     reservationState
}

// Committed reports whether the reservation was finalized.
func (r *Reservation) Committed() bool {
	return r != nil && r.state == stateCommitted
}

// Ledger is the only authority allowed to change stock counts.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Reserve(ctx context.Context, productID uuid.UUID, qty int) (*Reservation, error)
	Release(ctx context.Context, reservation *Reservation) error
	Commit(ctx context.Context, reservation *Reservation) error
}

type ledger struct {
	repo Repository
}

// NewLedger wires the inventory ledger with the provided repository.
func NewLedger(repo Repository) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &ledger{repo: repo}, nil
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{repo: l.repo.WithTx(tx)}
}

// Reserve atomically decrements stock, failing with OUT_OF_STOCK when the
// guarded UPDATE matches no row. The decrement and the availability check are
// a single statement, so concurrent reservations serialize per product.
func (l *ledger) Reserve(ctx context.Context, productID uuid.UUID, qty int) (*Reservation, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reserve qty must be positive, got %d", qty))
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		affected, err := l.repo.DecrementStock(ctx, productID, qty)
		if err != nil {
			if isSerializationFailure(err) {
				lastErr = err
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserving stock")
		}
		if affected == 0 {
			available, lookupErr := l.repo.AvailableQty(ctx, productID)
			if stdErrors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
			}
			if lookupErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lookupErr, "loading stock after failed reserve")
			}
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock,
				fmt.Sprintf("product %s: requested %d, available %d", productID, qty, available)).
				WithDetails(OutOfStockDetails{ProductID: productID, Requested: qty, Available: available})
		}
		return &Reservation{ProductID: productID, Quantity: qty}, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrentModification, lastErr, "reserve retries exhausted")
}

// Release returns reserved stock. Committed or already-released reservations
// are a no-op so checkout cleanup paths can call it unconditionally.
func (l *ledger) Release(ctx context.Context, reservation *Reservation) error {
	if reservation == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation is required")
	}
	if reservation.state != stateReserved {
		return nil
	}
	if err := l.repo.IncrementStock(ctx, reservation.ProductID, reservation.Quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "releasing stock")
	}
	reservation.state = stateReleased
	return nil
}

// Commit finalizes the reservation. The decrement already happened at
// Reserve time; commit just pins it so a later Release cannot undo it.
func (l *ledger) Commit(ctx context.Context, reservation *Reservation) error {
	if reservation == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation is required")
	}
	if reservation.state == stateReleased {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot commit a released reservation")
	}
	reservation.state = stateCommitted
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
