package watch

import "github.com/shopspring/decimal"

// ShouldAlert reports whether a freshly observed price reaches the
// configured target. The boundary is inclusive: price == target fires.
// There is no suppression across runs; every pass that finds the price
// at or below target alerts again.
func ShouldAlert(price, target decimal.Decimal) bool {
	return price.LessThanOrEqual(target)
}
