package exchange

import (
	"math"
	"strings"
	"time"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite is the side that reduces a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeStopMarket   OrderType = "STOP_MARKET"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP_MARKET"
)

// IsFixedStop reports stop orders with a static trigger price.
func (t OrderType) IsFixedStop() bool {
	return t == OrderTypeStopMarket || t == "STOP"
}

// Position is the exchange-reported position for one symbol.
type Position struct {
	Symbol     string
	Amount     float64 // signed; negative is short
	EntryPrice float64
	MarkPrice  float64
	Leverage   int
	UpdatedAt  time.Time
}

func (p Position) IsOpen() bool {
	return p.Amount != 0
}

func (p Position) AbsAmount() float64 {
	return math.Abs(p.Amount)
}

// MarketOrder opens (or adds to) a position at market.
type MarketOrder struct {
	Symbol        string
	Side          Side
	Quantity      float64
	Precision     int
	ClientOrderID string
}

// TrailingStopOrder is always reduce-only and good-till-cancelled.
type TrailingStopOrder struct {
	Symbol        string
	Side          Side
	Quantity      float64
	Precision     int
	CallbackRate  float64 // percent, e.g. 1.0 = 1%
	ClientOrderID string
}

type OrderAck struct {
	OrderID          int64
	ClientOrderID    string
	Symbol           string
	Side             Side
	Type             OrderType
	Status           string
	OrigQuantity     float64
	ExecutedQuantity float64
	AvgPrice         float64
}

// FilledQuantity prefers the executed size and falls back to the requested one.
func (a OrderAck) FilledQuantity() float64 {
	if a.ExecutedQuantity > 0 {
		return a.ExecutedQuantity
	}
	return a.OrigQuantity
}

// OpenOrder is a working order as listed by the exchange.
type OpenOrder struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Type          OrderType
	Side          Side
	Quantity      float64
	ReduceOnly    bool
}

// FindByType returns the open orders of type t.
func FindByType(orders []OpenOrder, t OrderType) []OpenOrder {
	var out []OpenOrder
	for _, o := range orders {
		if OrderType(strings.ToUpper(string(o.Type))) == t {
			out = append(out, o)
		}
	}
	return out
}

// HasTrailingStop reports whether any trailing stop is working.
func HasTrailingStop(orders []OpenOrder) bool {
	return len(FindByType(orders, OrderTypeTrailingStop)) > 0
}
