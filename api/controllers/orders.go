package controllers

import (
	"net/http"
	"strings"

	"github.com/brightbasket/storefront-backend/api/middleware"
	"github.com/brightbasket/storefront-backend/api/responses"
	"github.com/brightbasket/storefront-backend/api/validators"
	"github.com/brightbasket/storefront-backend/internal/accounts"
	ordersvc "github.com/brightbasket/storefront-backend/internal/orders"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/logger"
	"github.com/brightbasket/storefront-backend/pkg/outbox"
	"github.com/brightbasket/storefront-backend/pkg/pagination"
)

type ordersPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func newOrdersPage(result *ordersvc.ListResult) ordersPageResponse {
	page := ordersPageResponse{
		Orders:     make([]orderResponse, 0, len(result.Orders)),
		NextCursor: result.NextCursor,
	}
	for i := range result.Orders {
		page.Orders = append(page.Orders, newOrderResponse(&result.Orders[i]))
	}
	return page
}

func orderListFilter(r *http.Request) (ordersvc.ListFilter, error) {
	filter := ordersvc.ListFilter{}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit

	cursor, err := validators.ParseQueryCursor(r, "cursor")
	if err != nil {
		return filter, err
	}
	filter.Cursor = cursor

	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filter.Status = &status
	}
	return filter, nil
}

// OrdersHistory lists the authenticated customer's orders, newest first.
func OrdersHistory(svc ordersvc.Service, accountsSvc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := accountsSvc.Profile(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := orderListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.History(r.Context(), profile.ID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrdersPage(result))
	}
}

// OrderGet returns one order. Customers see only their own; admins see all.
func OrderGet(svc ordersvc.Service, accountsSvc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !middleware.IsAdminFromContext(r.Context()) {
			profile, err := accountsSvc.Profile(r.Context(), accountID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if order.CustomerID == nil || *order.CustomerID != profile.ID {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrdersList lists all orders with optional status filter.
func AdminOrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := orderListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminList(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrdersPage(result))
	}
}

// AdminOrderCancel cancels a pending order and restores its stock.
func AdminOrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := &outbox.ActorRef{
			AccountID: middleware.AccountIDFromContext(r.Context()),
			IsAdmin:   middleware.IsAdminFromContext(r.Context()),
		}
		order, err := svc.Cancel(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
