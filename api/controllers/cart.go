package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brightbasket/storefront-backend/api/middleware"
	"github.com/brightbasket/storefront-backend/api/responses"
	"github.com/brightbasket/storefront-backend/api/validators"
	cartsvc "github.com/brightbasket/storefront-backend/internal/cart"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/logger"
)

// CartUpsertRequest merges a quantity delta into the account's cart.
// Negative deltas decrement; a line clamped to zero is removed.
type CartUpsertRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required"`
}

type cartLineResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
}

func newCartResponse(lines []models.CartLine) cartResponse {
	resp := cartResponse{Items: make([]cartLineResponse, 0, len(lines))}
	for _, line := range lines {
		resp.Items = append(resp.Items, cartLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return resp
}

// CartUpsert merges the posted delta into the cart and returns the line.
func CartUpsert(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload CartUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.Upsert(r.Context(), accountID, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if line == nil {
			responses.WriteSuccess(w, map[string]any{"removed": true, "productId": payload.ProductID})
			return
		}
		responses.WriteSuccess(w, cartLineResponse{ProductID: line.ProductID, Quantity: line.Quantity})
	}
}

// CartFetch returns the cart snapshot in insertion order.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := svc.Snapshot(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(lines))
	}
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cleared": true})
	}
}

func accountIDFromContext(r *http.Request) (uuid.UUID, error) {
	accountID := middleware.AccountIDFromContext(r.Context())
	if accountID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing")
	}
	return accountID, nil
}
