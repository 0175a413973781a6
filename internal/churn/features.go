package churn

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/storefront-backend/pkg/enums"
)

// RFMFeatures summarizes a customer's completed-order history at a fixed
// point in time. Only COMPLETED orders contribute; pending and cancelled
// orders are invisible to churn analysis.
type RFMFeatures struct {
	CustomerID uuid.UUID `json:"customer_id"`
	AsOf       time.Time `json:"as_of"`

	// RecencyDays is the age of the most recent completed order.
	RecencyDays int `json:"recency_days"`

	// Frequency counts completed orders inside the trailing window. Orders
	// older than the window still shape the monetary aggregates.
	Frequency int `json:"frequency"`

	MonetaryTotal decimal.Decimal `json:"monetary_total"`
	MonetaryAvg   decimal.Decimal `json:"monetary_avg"`

	// Trend is nil when fewer than 2 orders exist; "no trend" is reported as
	// absence, never as flat.
	Trend *Trend `json:"trend,omitempty"`

	OrderCount int `json:"order_count"`
}

// Trend compares spend in the most recent half of the history against the
// earlier half.
type Trend struct {
	Direction  enums.TrendDirection `json:"direction"`
	RecentAvg  decimal.Decimal      `json:"recent_avg"`
	EarlierAvg decimal.Decimal      `json:"earlier_avg"`
}

// RiskAssessment is the scored output surfaced to the dashboard. Score is nil
// for UNSCORABLE customers; "never purchased" must not read as a low number.
type RiskAssessment struct {
	CustomerID uuid.UUID          `json:"customer_id"`
	Category   enums.RiskCategory `json:"category"`
	Score      *float64           `json:"score,omitempty"`
	Features   *RFMFeatures       `json:"features,omitempty"`
	ComputedAt time.Time          `json:"computed_at"`
}

// Distribution aggregates risk categories across the customer base.
type Distribution struct {
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
	Unscorable int `json:"unscorable"`
	Total      int `json:"total"`
}
