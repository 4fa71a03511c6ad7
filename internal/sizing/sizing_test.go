package sizing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func filters(step string, precision int) *Filters {
	return &Filters{StepSize: decimal.RequireFromString(step), Precision: precision}
}

func TestComputeQuantityReferenceScenario(t *testing.T) {
	res := ComputeQuantity(Params{EntryPrice: 100, Balance: 1000, CapitalFraction: 0.95, Leverage: 10}, filters("0.01", 2))
	// 1000 * 0.95 * 10 / 100
	assert.InDelta(t, 95.0, res.Raw, 1e-9)
	assert.Equal(t, 95.0, res.Quantity)
	assert.Equal(t, 2, res.Precision)
	assert.False(t, res.Degraded)
	assert.True(t, res.Actionable())
}

func TestComputeQuantityTruncatesTowardZero(t *testing.T) {
	// raw = 100 * 1 * 3 / 7 = 42.857142...
	res := ComputeQuantity(Params{EntryPrice: 7, Balance: 100, CapitalFraction: 1, Leverage: 3}, filters("0.01", 2))
	assert.Equal(t, 42.85, res.Quantity)

	res = ComputeQuantity(Params{EntryPrice: 7, Balance: 100, CapitalFraction: 1, Leverage: 3}, filters("0.5", 1))
	assert.Equal(t, 42.5, res.Quantity)
}

func TestComputeQuantityNonActionableInputs(t *testing.T) {
	f := filters("0.001", 3)
	for name, p := range map[string]Params{
		"zero price":       {EntryPrice: 0, Balance: 1000, CapitalFraction: 0.95, Leverage: 10},
		"negative price":   {EntryPrice: -1, Balance: 1000, CapitalFraction: 0.95, Leverage: 10},
		"zero balance":     {EntryPrice: 100, Balance: 0, CapitalFraction: 0.95, Leverage: 10},
		"negative balance": {EntryPrice: 100, Balance: -50, CapitalFraction: 0.95, Leverage: 10},
	} {
		t.Run(name, func(t *testing.T) {
			res := ComputeQuantity(p, f)
			assert.Equal(t, 0.0, res.Quantity)
			assert.False(t, res.Actionable())
		})
	}
}

func TestComputeQuantityBelowOneStep(t *testing.T) {
	res := ComputeQuantity(Params{EntryPrice: 60000, Balance: 1, CapitalFraction: 0.95, Leverage: 1}, filters("0.001", 3))
	assert.Equal(t, 0.0, res.Quantity)
	assert.False(t, res.Actionable())
}

func TestComputeQuantityDegradedPaths(t *testing.T) {
	p := Params{EntryPrice: 3, Balance: 100, CapitalFraction: 1, Leverage: 1}

	t.Run("no filters", func(t *testing.T) {
		res := ComputeQuantity(p, nil)
		assert.True(t, res.Degraded)
		assert.Equal(t, 33.333, res.Quantity)
		assert.Equal(t, DefaultPrecision, res.Precision)
	})

	t.Run("precision without step", func(t *testing.T) {
		res := ComputeQuantity(p, &Filters{Precision: 1})
		assert.True(t, res.Degraded)
		assert.Equal(t, 33.3, res.Quantity)
	})

	t.Run("step without precision", func(t *testing.T) {
		res := ComputeQuantity(p, &Filters{StepSize: decimal.RequireFromString("0.0100"), Precision: -1})
		assert.False(t, res.Degraded)
		assert.Equal(t, 2, res.Precision)
		assert.Equal(t, 33.33, res.Quantity)
	})
}

func TestComputeQuantityMonotonicity(t *testing.T) {
	f := filters("0.001", 3)
	base := Params{EntryPrice: 250, Balance: 500, CapitalFraction: 0.95, Leverage: 5}

	prev := -1.0
	for balance := 0.0; balance <= 2000; balance += 37.5 {
		p := base
		p.Balance = balance
		q := ComputeQuantity(p, f).Quantity
		assert.GreaterOrEqual(t, q, prev, "balance=%v", balance)
		prev = q
	}

	prev = -1.0
	for lev := 1; lev <= 125; lev++ {
		p := base
		p.Leverage = lev
		q := ComputeQuantity(p, f).Quantity
		assert.GreaterOrEqual(t, q, prev, "leverage=%d", lev)
		prev = q
	}

	prev = math.MaxFloat64
	for price := 1.0; price <= 5000; price *= 1.37 {
		p := base
		p.EntryPrice = price
		q := ComputeQuantity(p, f).Quantity
		assert.LessOrEqual(t, q, prev, "price=%v", price)
		prev = q
	}
}

func TestComputeQuantityIsStepMultiple(t *testing.T) {
	for _, step := range []string{"0.001", "0.01", "0.1", "1", "0.5"} {
		f := filters(step, StepDecimals(decimal.RequireFromString(step)))
		stepF := f.StepSize.InexactFloat64()
		for price := 3.3; price < 90000; price *= 2.9 {
			q := ComputeQuantity(Params{EntryPrice: price, Balance: 1234.56, CapitalFraction: 0.95, Leverage: 10}, f).Quantity
			assert.GreaterOrEqual(t, q, 0.0)
			roundTrip := math.Floor(q/stepF+1e-9) * stepF
			assert.InDelta(t, q, roundTrip, 1e-9, "step=%s price=%v", step, price)
		}
	}
}

func TestNormalizeUsesAbsoluteSize(t *testing.T) {
	res := Normalize(-5, filters("0.01", 2))
	assert.Equal(t, 5.0, res.Quantity)

	res = Normalize(-1.23456, filters("0.001", 3))
	assert.Equal(t, 1.234, res.Quantity)

	assert.Equal(t, 0.0, Normalize(0, filters("0.001", 3)).Quantity)
}

func TestStepDecimalsAndFormat(t *testing.T) {
	assert.Equal(t, 3, StepDecimals(decimal.RequireFromString("0.001")))
	assert.Equal(t, 2, StepDecimals(decimal.RequireFromString("0.0100")))
	assert.Equal(t, 0, StepDecimals(decimal.RequireFromString("1")))

	assert.Equal(t, "95.00", Format(95, 2))
	assert.Equal(t, "0.120", Format(0.12, 3))
	assert.Equal(t, "5.000", Format(5, -1))
}
