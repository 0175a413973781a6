package enums

import "fmt"

// RiskCategory buckets a churn risk score for the dashboard. UNSCORABLE is
// reserved for customers with no completed orders; it is distinct from LOW
// so "never purchased" never reads as "healthy".
type RiskCategory string

const (
	RiskCategoryLow        RiskCategory = "LOW"
	RiskCategoryMedium     RiskCategory = "MEDIUM"
	RiskCategoryHigh       RiskCategory = "HIGH"
	RiskCategoryUnscorable RiskCategory = "UNSCORABLE"
)

var validRiskCategories = []RiskCategory{
	RiskCategoryLow,
	RiskCategoryMedium,
	RiskCategoryHigh,
	RiskCategoryUnscorable,
}

// IsValid reports whether the value matches the canonical risk category enum.
func (r RiskCategory) IsValid() bool {
	for _, candidate := range validRiskCategories {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRiskCategory converts the raw string to RiskCategory.
func ParseRiskCategory(value string) (RiskCategory, error) {
	for _, candidate := range validRiskCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid risk category %q", value)
}
