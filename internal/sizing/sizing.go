// Package sizing converts account balance into an exchange-executable order quantity.
package sizing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is used when the exchange lot filters cannot be read.
const DefaultPrecision = 3

// Filters is the per-symbol lot metadata. A zero StepSize means unknown;
// a negative Precision means unknown.
type Filters struct {
	StepSize  decimal.Decimal
	Precision int
}

func (f Filters) HasStep() bool {
	return f.StepSize.IsPositive()
}

// Params are the sizing inputs apart from the lot filters.
type Params struct {
	EntryPrice      float64
	Balance         float64
	CapitalFraction float64
	Leverage        int
}

// Result carries the normalized quantity and how it was obtained.
type Result struct {
	Raw       float64
	Quantity  float64
	Precision int
	Degraded  bool
}

// Actionable reports whether the quantity can be submitted.
func (r Result) Actionable() bool {
	return r.Quantity > 0
}

// ComputeQuantity returns balance*fraction*leverage/price normalized to the lot
// filters. filters may be nil when metadata is unavailable; the result is then
// rounded to DefaultPrecision and marked degraded.
func ComputeQuantity(p Params, filters *Filters) Result {
	if p.EntryPrice <= 0 || p.Balance <= 0 || p.CapitalFraction <= 0 || p.Leverage <= 0 {
		return Result{Degraded: filters == nil}
	}
	raw := decFromFloat(p.Balance).
		Mul(decFromFloat(p.CapitalFraction)).
		Mul(decimal.NewFromInt(int64(p.Leverage))).
		Div(decFromFloat(p.EntryPrice))
	res := normalize(raw, filters)
	res.Raw = decToFloat(raw)
	return res
}

// Normalize truncates an arbitrary quantity (e.g. an open position size) to the lot filters.
func Normalize(quantity float64, filters *Filters) Result {
	res := normalize(decFromFloat(math.Abs(quantity)), filters)
	res.Raw = math.Abs(quantity)
	return res
}

func normalize(raw decimal.Decimal, filters *Filters) Result {
	if !raw.IsPositive() {
		return Result{Degraded: filters == nil}
	}
	if filters == nil || !filters.HasStep() {
		prec := DefaultPrecision
		if filters != nil && filters.Precision >= 0 {
			prec = filters.Precision
		}
		q := raw.Round(int32(prec))
		if q.IsNegative() {
			q = decimal.Zero
		}
		return Result{Quantity: decToFloat(q), Precision: prec, Degraded: true}
	}
	prec := filters.Precision
	if prec < 0 {
		prec = StepDecimals(filters.StepSize)
	}
	q := raw.Div(filters.StepSize).Floor().Mul(filters.StepSize).Round(int32(prec))
	if q.IsNegative() {
		q = decimal.Zero
	}
	return Result{Quantity: decToFloat(q), Precision: prec}
}

// StepDecimals is the number of fractional digits in a step size ("0.010" -> 2).
func StepDecimals(step decimal.Decimal) int {
	s := step.String()
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	return len(s) - idx - 1
}

// Format renders a quantity with a fixed number of decimals, as the exchange expects.
func Format(quantity float64, precision int) string {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return decFromFloat(quantity).StringFixed(int32(precision))
}

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}
