package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeString renders the candle time as "01-02 15:04Z".
func (c Candle) TimeString() string {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	if ts <= 0 {
		return "-"
	}
	return time.UnixMilli(ts).UTC().Format("01-02 15:04") + "Z"
}

// Snapshot summarizes the window: last close, change over the window and
// the high/low range.
func (cs Candles) Snapshot(interval string) string {
	if len(cs) == 0 {
		return ""
	}
	first := cs[0]
	last := cs[len(cs)-1]
	base := first.Close
	if base == 0 {
		base = first.Open
	}
	low := math.MaxFloat64
	high := -math.MaxFloat64
	for _, bar := range cs {
		low = math.Min(low, bar.Low)
		high = math.Max(high, bar.High)
	}
	var sb strings.Builder
	sb.WriteString("close=" + formatPrice(last.Close))
	iv := strings.TrimSpace(interval)
	if iv == "" {
		iv = "window"
	}
	if base != 0 {
		fmt.Fprintf(&sb, " (%+.2f%% over %d×%s)", (last.Close-base)/base*100, len(cs), iv)
	}
	sb.WriteString(" range=" + formatPrice(low) + "-" + formatPrice(high))
	fmt.Fprintf(&sb, " last=%s", last.TimeString())
	return sb.String()
}

func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).Round(4).String()
}
