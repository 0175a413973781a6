package controllers

import (
	"net/http"
	"time"

	"github.com/brightbasket/storefront-backend/api/responses"
	"github.com/brightbasket/storefront-backend/api/validators"
	churnsvc "github.com/brightbasket/storefront-backend/internal/churn"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/logger"
)

// ChurnAssessment returns the customer's risk assessment, served from the
// advisory cache when warm.
func ChurnAssessment(svc churnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assessment, err := svc.AssessCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessment)
	}
}

// ChurnRecompute forces a fresh assessment, bypassing the cache.
func ChurnRecompute(svc churnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assessment, err := svc.RecomputeCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessment)
	}
}

// ChurnFeatures exposes raw RFM features for the assistant collaborator.
// An optional asOf query pins the evaluation timestamp.
func ChurnFeatures(svc churnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asOf := time.Now().UTC()
		if raw := r.URL.Query().Get("asOf"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "asOf must be RFC3339"))
				return
			}
			asOf = parsed.UTC()
		}

		features, err := svc.Features(r.Context(), customerID, asOf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, features)
	}
}

// ChurnDistribution aggregates risk categories across the customer base.
func ChurnDistribution(svc churnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dist, err := svc.Distribution(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dist)
	}
}
