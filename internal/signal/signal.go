// Package signal turns the last two EMA points into a directional trigger.
package signal

import (
	"strings"

	"trailbot/internal/analysis/indicator"
)

type Signal int

const (
	None Signal = iota
	Long
	Short
)

func (s Signal) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NONE"
	}
}

func Parse(raw string) Signal {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LONG":
		return Long
	case "SHORT":
		return Short
	default:
		return None
	}
}

// FromPositionAmount infers the direction of an open position from its signed size.
func FromPositionAmount(amount float64) Signal {
	switch {
	case amount > 0:
		return Long
	case amount < 0:
		return Short
	default:
		return None
	}
}

// Detect fires on a crossover between prev and last.
// Both spreads at exactly zero yield None.
func Detect(prev, last indicator.Point) Signal {
	dPrev := prev.Spread()
	dLast := last.Spread()
	switch {
	case dPrev <= 0 && dLast > 0:
		return Long
	case dPrev >= 0 && dLast < 0:
		return Short
	default:
		return None
	}
}

// FromSeries applies Detect to the two newest points; fewer than two gives None.
func FromSeries(points []indicator.Point) Signal {
	prev, last, ok := indicator.LastTwo(points)
	if !ok {
		return None
	}
	return Detect(prev, last)
}
