package churn

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightbasket/storefront-backend/pkg/config"
	"github.com/brightbasket/storefront-backend/pkg/enums"
)

// Default scoring parameters. Explicit named constants so the score is
// auditable; config may override the weights but never hides them.
const (
	DefaultRecencyWeight   = 0.5
	DefaultFrequencyWeight = 0.3
	DefaultTrendWeight     = 0.2

	// DefaultRecencyHorizonDays is where normalized recency saturates at 1.
	DefaultRecencyHorizonDays = 365

	// FrequencySaturation is the order count per window at which the
	// frequency term reaches zero risk (roughly a monthly purchaser).
	FrequencySaturation = 12

	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// ScoreParams parameterizes the scorer. The zero value is unusable; build
// via DefaultScoreParams or ScoreParamsFromConfig.
type ScoreParams struct {
	RecencyWeight      float64
	FrequencyWeight    float64
	TrendWeight        float64
	RecencyHorizonDays int
}

// DefaultScoreParams returns the named-constant parameter set.
func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		RecencyWeight:      DefaultRecencyWeight,
		FrequencyWeight:    DefaultFrequencyWeight,
		TrendWeight:        DefaultTrendWeight,
		RecencyHorizonDays: DefaultRecencyHorizonDays,
	}
}

// ScoreParamsFromConfig maps churn configuration onto scorer parameters,
// falling back to defaults for unset values.
func ScoreParamsFromConfig(cfg config.ChurnConfig) ScoreParams {
	params := DefaultScoreParams()
	if cfg.RecencyWeight > 0 {
		params.RecencyWeight = cfg.RecencyWeight
	}
	if cfg.FrequencyWeight > 0 {
		params.FrequencyWeight = cfg.FrequencyWeight
	}
	if cfg.TrendWeight > 0 {
		params.TrendWeight = cfg.TrendWeight
	}
	if cfg.RecencyHorizonDays > 0 {
		params.RecencyHorizonDays = cfg.RecencyHorizonDays
	}
	return params
}

// Score maps RFM features to a risk assessment. Pure function: identical
// features and params always produce the identical assessment.
func Score(features RFMFeatures, params ScoreParams) RiskAssessment {
	recencyTerm := clamp01(float64(features.RecencyDays) / float64(params.RecencyHorizonDays))
	frequencyTerm := clamp01(1.0 - float64(features.Frequency)/float64(FrequencySaturation))
	trendTerm := declineRatio(features.Trend)

	score := params.RecencyWeight*recencyTerm +
		params.FrequencyWeight*frequencyTerm +
		params.TrendWeight*trendTerm
	score = clamp01(score)

	return RiskAssessment{
		CustomerID: features.CustomerID,
		Category:   categorize(score),
		Score:      &score,
		Features:   &features,
		ComputedAt: features.AsOf,
	}
}

// declineRatio turns a declining trend into a [0,1] risk term proportional
// to how far recent spend fell below earlier spend. Rising, flat, or absent
// trends contribute nothing.
func declineRatio(trend *Trend) float64 {
	if trend == nil || trend.Direction != enums.TrendDeclining {
		return 0
	}
	if !trend.EarlierAvg.IsPositive() {
		return 0
	}
	drop := trend.EarlierAvg.Sub(trend.RecentAvg).Div(trend.EarlierAvg)
	return clamp01(drop.InexactFloat64())
}

func categorize(score float64) enums.RiskCategory {
	switch {
	case score >= HighThreshold:
		return enums.RiskCategoryHigh
	case score >= MediumThreshold:
		return enums.RiskCategoryMedium
	default:
		return enums.RiskCategoryLow
	}
}

// Unscorable builds the assessment for a customer with no completed orders.
// No numeric score: "never purchased" must stay distinguishable from LOW.
func Unscorable(customerID uuid.UUID, asOf time.Time) RiskAssessment {
	return RiskAssessment{
		CustomerID: customerID,
		Category:   enums.RiskCategoryUnscorable,
		ComputedAt: asOf,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
