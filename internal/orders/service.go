package orders

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/internal/inventory"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/outbox"
	"github.com/brightbasket/storefront-backend/pkg/pagination"
)

// Service exposes the order history and lifecycle surface. Orders are created
// exclusively by checkout; this service only reads and cancels.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	History(ctx context.Context, customerID uuid.UUID, filter ListFilter) (*ListResult, error)
	AdminList(ctx context.Context, filter ListFilter) (*ListResult, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (*models.Order, error)
}

type service struct {
	client *db.Client
	repo   Repository
	ledger inventory.Ledger
	events *outbox.Service
}

// NewService wires the orders service.
func NewService(client *db.Client, repo Repository, ledger inventory.Ledger, events *outbox.Service) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{client: client, repo: repo, ledger: ledger, events: events}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.GetByID(ctx, id)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", id))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, filter ListFilter) (*ListResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := validateStatusFilter(filter); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing customer orders")
	}
	return buildPage(rows, filter.Limit), nil
}

func (s *service) AdminList(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if err := validateStatusFilter(filter); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return buildPage(rows, filter.Limit), nil
}

// Cancel flips a pending order to CANCELLED and returns its stock to the
// ledger, all inside one transaction. Terminal orders are rejected.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var cancelled *models.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := repo.GetByID(ctx, orderID)
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", orderID))
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order %s is %s and cannot be cancelled", orderID, order.Status))
		}

		affected, err := repo.TransitionStatus(ctx, orderID, order.Status, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrentModification,
				fmt.Sprintf("order %s changed state concurrently", orderID))
		}

		released := make([]outbox.ReleasedLine, 0, len(order.Items))
		for _, item := range order.Items {
			reservation := &inventory.Reservation{ProductID: item.ProductID, Quantity: item.Quantity}
			if err := ledger.Release(ctx, reservation); err != nil {
				return err
			}
			released = append(released, outbox.ReleasedLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Data:          outbox.OrderCancelledData{OrderID: order.ID, CustomerID: order.CustomerID},
				Version:       1,
			}
			if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing cancel event")
			}
			if len(released) > 0 {
				release := outbox.DomainEvent{
					EventType:     enums.EventStockReleased,
					AggregateType: enums.AggregateOrder,
					AggregateID:   order.ID,
					Actor:         actor,
					Data:          outbox.StockReleasedData{OrderID: order.ID, Products: released},
					Version:       1,
				}
				if err := s.events.EmitIfNotExists(ctx, tx, release); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing release event")
				}
			}
		}

		order.Status = enums.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func validateStatusFilter(filter ListFilter) error {
	if filter.Status == nil {
		return nil
	}
	if _, err := enums.ParseOrderStatus(*filter.Status); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *filter.Status))
	}
	return nil
}

func buildPage(rows []models.Order, limit int) *ListResult {
	normalized := pagination.NormalizeLimit(limit)
	result := &ListResult{Orders: rows}
	if len(rows) > normalized {
		result.Orders = rows[:normalized]
		last := result.Orders[normalized-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result
}
