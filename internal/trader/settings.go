package trader

import (
	"fmt"
	"strings"
	"time"

	"trailbot/internal/analysis/indicator"
	"trailbot/internal/scheduler"
)

// Settings fixes what the controller trades and how. Only the fields
// mirrored in Tunables may change while the loop runs.
type Settings struct {
	Symbol            string
	Interval          string
	KlineLimit        int
	ClosedCandlesOnly bool
	Indicator         indicator.Settings
	Leverage          int
	QuoteAsset        string
	// AlignToClose replaces the fixed poll interval after a healthy cycle
	// with a wait until AlignOffset past the next candle close.
	AlignToClose bool
	AlignOffset  time.Duration

	Tunables
}

// Tunables are the settings applied live at the next cycle boundary.
type Tunables struct {
	CapitalFraction      float64       `json:"capital_fraction"`
	CallbackRate         float64       `json:"callback_rate"`
	FallbackCallbackRate float64       `json:"fallback_callback_rate"`
	PollInterval         time.Duration `json:"poll_interval"`
	Cooldown             time.Duration `json:"cooldown"`
}

func (t Tunables) Validate() error {
	if t.CapitalFraction <= 0 || t.CapitalFraction > 1 {
		return fmt.Errorf("capital fraction must be in (0,1], got %v", t.CapitalFraction)
	}
	if t.CallbackRate <= 0 || t.FallbackCallbackRate <= 0 {
		return fmt.Errorf("callback rates must be positive (primary=%v fallback=%v)", t.CallbackRate, t.FallbackCallbackRate)
	}
	if t.PollInterval <= 0 || t.Cooldown <= 0 {
		return fmt.Errorf("poll interval and cooldown must be positive")
	}
	return nil
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(s.Interval) == "" {
		return fmt.Errorf("interval is required")
	}
	if s.KlineLimit < 2 {
		return fmt.Errorf("kline limit must be at least 2, got %d", s.KlineLimit)
	}
	if err := s.Indicator.Validate(); err != nil {
		return err
	}
	if s.Leverage < 1 {
		return fmt.Errorf("leverage must be at least 1, got %d", s.Leverage)
	}
	if strings.TrimSpace(s.QuoteAsset) == "" {
		return fmt.Errorf("quote asset is required")
	}
	if s.AlignToClose {
		if _, ok := scheduler.NewAlignment(s.Interval, s.AlignOffset); !ok {
			return fmt.Errorf("cannot align to candle close for interval %q", s.Interval)
		}
	}
	return s.Tunables.Validate()
}
