package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"trailbot/internal/market"
)

var ErrNoData = errors.New("indicator: no data")

// Settings 描述双 EMA 交叉所需的周期。
type Settings struct {
	FastPeriod int `json:"fast_period"`
	SlowPeriod int `json:"slow_period"`
}

func (s Settings) Validate() error {
	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 {
		return fmt.Errorf("indicator: periods must be positive (fast=%d slow=%d)", s.FastPeriod, s.SlowPeriod)
	}
	if s.FastPeriod >= s.SlowPeriod {
		return fmt.Errorf("indicator: fast period %d must be below slow period %d", s.FastPeriod, s.SlowPeriod)
	}
	return nil
}

// Point is the pair of averages at one candle.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	EMAFast   float64 `json:"ema_fast"`
	EMASlow   float64 `json:"ema_slow"`
}

// Spread is fast minus slow.
func (p Point) Spread() float64 {
	return p.EMAFast - p.EMASlow
}

// EMA smooths values with alpha = 2/(period+1), seeded by the first value
// and without warm-up bias correction. Output has the same length as values.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// Compute derives one Point per candle from the closing prices.
func Compute(candles market.Candles, cfg Settings) ([]Point, error) {
	if len(candles) == 0 {
		return nil, ErrNoData
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	closes := candles.Closes()
	fast := EMA(closes, cfg.FastPeriod)
	slow := EMA(closes, cfg.SlowPeriod)
	points := make([]Point, len(candles))
	for i, c := range candles {
		points[i] = Point{Timestamp: c.OpenTime, EMAFast: fast[i], EMASlow: slow[i]}
	}
	return points, nil
}

// LastTwo returns the previous and latest points.
func LastTwo(points []Point) (prev, last Point, ok bool) {
	if len(points) < 2 {
		return Point{}, Point{}, false
	}
	return points[len(points)-2], points[len(points)-1], true
}

const diagnosticPeriod = 14

// Diagnostics 为每轮审计记录附带的参考指标，不参与决策。
type Diagnostics struct {
	RSI float64 `json:"rsi14,omitempty"`
	ATR float64 `json:"atr14,omitempty"`
}

// Diagnose computes RSI14 and ATR14 when enough candles exist; missing
// values are left at zero.
func Diagnose(candles market.Candles) Diagnostics {
	var d Diagnostics
	if len(candles) > diagnosticPeriod+1 {
		d.RSI = round4(lastValid(talib.Rsi(candles.Closes(), diagnosticPeriod)))
		d.ATR = round4(lastValid(talib.Atr(candles.Highs(), candles.Lows(), candles.Closes(), diagnosticPeriod)))
	}
	return d
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
