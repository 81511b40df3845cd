// Package pricing derives monetary totals for order presentation. All amounts
// are rounded half-up to 2 decimal places, at the line level and again on the
// order sum, so totals match the books service's own accounting.
package pricing

import "github.com/shopspring/decimal"

func LineTotal(price float64, quantity int) float64 {
	line := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
	return round2(line)
}

func OrderTotal(lineTotals []float64) float64 {
	sum := decimal.Zero
	for _, t := range lineTotals {
		sum = sum.Add(decimal.NewFromFloat(t))
	}
	return round2(sum)
}

// round2 rounds half away from zero; prices and quantities are never
// negative, so this is half-up.
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
