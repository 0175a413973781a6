package checkout

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/internal/cart"
	"github.com/brightbasket/storefront-backend/internal/inventory"
	"github.com/brightbasket/storefront-backend/internal/orders"
	"github.com/brightbasket/storefront-backend/internal/products"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/logger"
	"github.com/brightbasket/storefront-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileLoader interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.CustomerProfile, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// riskCache is the post-commit invalidation surface. Failures here never
// affect the committed order.
type riskCache interface {
	Del(ctx context.Context, keys ...string) error
	RiskKey(customerID string) string
}

// Service executes the all-or-nothing checkout transaction.
type Service interface {
	Checkout(ctx context.Context, accountID uuid.UUID) (*models.Order, error)
}

type service struct {
	tx           txRunner
	cartSvc      cart.Service
	ordersRepo   orders.Repository
	productsRepo products.Repository
	ledger       inventory.Ledger
	profiles     profileLoader
	outbox       outboxPublisher
	cache        riskCache
	logg         *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartSvc cart.Service,
	ordersRepo orders.Repository,
	productsRepo products.Repository,
	ledger inventory.Ledger,
	profiles profileLoader,
	publisher outboxPublisher,
	cache riskCache,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile loader required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:           tx,
		cartSvc:      cartSvc,
		ordersRepo:   ordersRepo,
		productsRepo: productsRepo,
		ledger:       ledger,
		profiles:     profiles,
		outbox:       publisher,
		cache:        cache,
		logg:         logg,
	}, nil
}

// Checkout converts the account's cart into a COMPLETED order inside a single
// transaction. Any failure rolls everything back: no order row, no stock
// change, cart untouched.
func (s *service) Checkout(ctx context.Context, accountID uuid.UUID) (*models.Order, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}

	var result *models.Order
	var customerID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartSvc := s.cartSvc.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		productsRepo := s.productsRepo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		profile, err := s.profiles.GetByAccountID(ctx, accountID)
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer profile not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer profile")
		}
		customerID = profile.ID

		lines, err := cartSvc.Snapshot(ctx, accountID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart contains no items")
		}

		reservations := make([]*inventory.Reservation, 0, len(lines))
		releaseHeld := func() {
			for _, held := range reservations {
				if releaseErr := ledger.Release(ctx, held); releaseErr != nil && s.logg != nil {
					s.logg.Error(ctx, "releasing reservation after failed checkout", releaseErr)
				}
			}
		}

		items := make([]models.OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			product, err := productsRepo.GetByID(ctx, line.ProductID)
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				releaseHeld()
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s no longer exists", line.ProductID))
			}
			if err != nil {
				releaseHeld()
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
			}

			reservation, err := ledger.Reserve(ctx, line.ProductID, line.Quantity)
			if err != nil {
				releaseHeld()
				return err
			}
			reservations = append(reservations, reservation)

			item := models.OrderItem{
				ID:           uuid.New(),
				ProductID:    line.ProductID,
				Quantity:     line.Quantity,
				PriceAtOrder: product.Price,
			}
			items = append(items, item)
			total = total.Add(item.LineTotal())
		}

		order := &models.Order{
			ID:          uuid.New(),
			CustomerID:  &profile.ID,
			Status:      enums.OrderStatusPending,
			TotalAmount: total,
			Items:       items,
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			releaseHeld()
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		for _, reservation := range reservations {
			if err := ledger.Commit(ctx, reservation); err != nil {
				return err
			}
		}

		affected, err := ordersRepo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCompleted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order state changed during checkout")
		}
		order.Status = enums.OrderStatusCompleted

		if err := cartSvc.Clear(ctx, accountID); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{AccountID: accountID},
			Data: outbox.OrderCompletedData{
				OrderID:     order.ID,
				CustomerID:  profile.ID,
				TotalAmount: order.TotalAmount,
				ItemCount:   len(order.Items),
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing order event")
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRisk(ctx, customerID)
	return result, nil
}

// invalidateRisk drops the cached churn assessment after a successful
// checkout. The outbox event is the durable path; this is best effort.
func (s *service) invalidateRisk(ctx context.Context, customerID uuid.UUID) {
	if s.cache == nil || customerID == uuid.Nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.RiskKey(customerID.String())); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "risk cache invalidation failed: "+err.Error())
	}
}
