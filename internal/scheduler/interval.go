package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// ParseIntervalDuration parses Binance kline intervals ("1m", "15m", "1h", "1d", "1w", "1M").
// Returns (0, false) on invalid input. "M" (month) is approximated as 30 days.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return 0, false
	}
	unit := interval[len(interval)-1]
	numStr := strings.TrimSpace(interval[:len(interval)-1])
	if numStr == "" {
		return 0, false
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h', 'H':
		return time.Duration(n) * time.Hour, true
	case 'd', 'D':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w', 'W':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	case 'M':
		return time.Duration(n) * 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// NormalizeInterval lowercases everything except the month unit, which Binance
// distinguishes from minutes by case.
func NormalizeInterval(interval string) string {
	interval = strings.TrimSpace(interval)
	if strings.HasSuffix(interval, "M") {
		return interval
	}
	return strings.ToLower(interval)
}
