package enums

// TrendDirection is the signed monetary trend over a customer's order
// history: the recent half of completed orders compared to the earlier half.
type TrendDirection string

const (
	TrendDeclining TrendDirection = "declining"
	TrendFlat      TrendDirection = "flat"
	TrendRising    TrendDirection = "rising"
)

// IsValid reports whether the value matches the canonical trend enum.
func (d TrendDirection) IsValid() bool {
	switch d {
	case TrendDeclining, TrendFlat, TrendRising:
		return true
	}
	return false
}
