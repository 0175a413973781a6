package churn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
)

// Extractor derives RFM features from completed-order history.
type Extractor struct {
	repo       Repository
	windowDays int
}

// NewExtractor builds the feature extractor. windowDays bounds the trailing
// frequency window (orders outside it still count toward monetary history).
func NewExtractor(repo Repository, windowDays int) (*Extractor, error) {
	if repo == nil {
		return nil, fmt.Errorf("churn repository required")
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("frequency window must be positive, got %d", windowDays)
	}
	return &Extractor{repo: repo, windowDays: windowDays}, nil
}

// Extract computes the customer's RFM features as of the given timestamp.
// Zero completed orders yields a typed INSUFFICIENT_DATA error, never a
// zero-valued feature set.
func (e *Extractor) Extract(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*RFMFeatures, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	orders, err := e.repo.CompletedOrders(ctx, customerID, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order history")
	}
	if len(orders) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientData,
			fmt.Sprintf("customer %s has no completed orders", customerID))
	}

	features := &RFMFeatures{
		CustomerID: customerID,
		AsOf:       asOf,
		OrderCount: len(orders),
	}

	// orders arrive newest first
	features.RecencyDays = int(asOf.Sub(orders[0].OrderDate).Hours() / 24)
	if features.RecencyDays < 0 {
		features.RecencyDays = 0
	}

	windowStart := asOf.AddDate(0, 0, -e.windowDays)
	total := decimal.Zero
	for _, order := range orders {
		total = total.Add(order.TotalAmount)
		if !order.OrderDate.Before(windowStart) {
			features.Frequency++
		}
	}
	features.MonetaryTotal = total
	features.MonetaryAvg = total.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	features.Trend = computeTrend(orders)

	return features, nil
}

// computeTrend splits the history into a recent half and an earlier half and
// compares their average spend. With an odd count the middle order lands in
// the earlier half. Fewer than 2 orders has no trend.
func computeTrend(orders []models.Order) *Trend {
	if len(orders) < 2 {
		return nil
	}

	half := len(orders) / 2
	recentAvg := averageTotal(orders[:half])
	earlierAvg := averageTotal(orders[half:])

	direction := enums.TrendFlat
	switch recentAvg.Cmp(earlierAvg) {
	case -1:
		direction = enums.TrendDeclining
	case 1:
		direction = enums.TrendRising
	}

	return &Trend{
		Direction:  direction,
		RecentAvg:  recentAvg,
		EarlierAvg: earlierAvg,
	}
}

func averageTotal(orders []models.Order) decimal.Decimal {
	if len(orders) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, order := range orders {
		sum = sum.Add(order.TotalAmount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
}
