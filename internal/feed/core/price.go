package core

import "github.com/shopspring/decimal"

// Price is a fixed-point tick count. One unit always means one tick;
// conversion to a human decimal is explicit and goes through a tick size.
type Price int64

// Quantity is a fixed-point tick count, same discipline as Price.
type Quantity int64

// ToDecimal converts raw ticks to a decimal amount given the instrument's
// tick size (itself expressed in ticks-per-unit via decimals).
func (p Price) ToDecimal(tickSize decimal.Decimal) decimal.Decimal {
	return tickSize.Mul(decimal.NewFromInt(int64(p)))
}

// PriceFromDecimal converts a human decimal price into raw ticks, rounding
// down to the nearest tick.
func PriceFromDecimal(v decimal.Decimal, tickSize decimal.Decimal) Price {
	if tickSize.IsZero() {
		return Price(v.IntPart())
	}
	ticks := v.Div(tickSize).Floor()
	return Price(ticks.IntPart())
}

// ToDecimal converts raw ticks to a decimal amount given the instrument's
// quantity step.
func (q Quantity) ToDecimal(step decimal.Decimal) decimal.Decimal {
	return step.Mul(decimal.NewFromInt(int64(q)))
}

// QuantityFromDecimal converts a human decimal size into raw ticks, rounding
// down to the nearest step.
func QuantityFromDecimal(v decimal.Decimal, step decimal.Decimal) Quantity {
	if step.IsZero() {
		return Quantity(v.IntPart())
	}
	ticks := v.Div(step).Floor()
	return Quantity(ticks.IntPart())
}

// CeilToTick rounds p up to the nearest multiple of tick.
func CeilToTick(p Price, tick Price) Price {
	if tick <= 0 {
		return p
	}
	rem := p % tick
	if rem == 0 {
		return p
	}
	if p > 0 {
		return p + (tick - rem)
	}
	return p - rem
}

// FloorToTick rounds p down to the nearest multiple of tick.
func FloorToTick(p Price, tick Price) Price {
	if tick <= 0 {
		return p
	}
	rem := p % tick
	if rem == 0 {
		return p
	}
	if p > 0 {
		return p - rem
	}
	return p - (tick + rem)
}
