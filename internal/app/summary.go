package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"trailbot/internal/config"
)

type StartupSummary struct {
	Market     MarketSummary
	Strategy   StrategySummary
	Protection ProtectionSummary
	Outputs    OutputSummary
}

type MarketSummary struct {
	Symbol     string
	Interval   string
	KlineLimit int
	ClosedOnly bool
	Endpoint   string
}

type StrategySummary struct {
	FastPeriod      int
	SlowPeriod      int
	Leverage        int
	CapitalFraction float64
	QuoteAsset      string
	PollSeconds     int
	CooldownSeconds int
	AlignToClose    bool
	AlignOffset     int
}

type ProtectionSummary struct {
	CallbackRate         float64
	FallbackCallbackRate float64
}

type OutputSummary struct {
	CSVPath     string
	DBPath      string
	HTTPAddr    string
	HotReload   bool
	Telegram    bool
	TradeAlerts bool
}

func newStartupSummary(cfg *config.Config, httpEnabled, hotReload bool) *StartupSummary {
	endpoint := cfg.Exchange.RESTBaseURL
	if endpoint == "" {
		endpoint = "mainnet"
		if cfg.Exchange.Testnet {
			endpoint = "testnet"
		}
	}
	addr := ""
	if httpEnabled {
		addr = cfg.App.HTTPAddr
	}
	return &StartupSummary{
		Market: MarketSummary{
			Symbol:     cfg.Strategy.Symbol,
			Interval:   cfg.Strategy.Interval,
			KlineLimit: cfg.Strategy.KlineLimit,
			ClosedOnly: cfg.Strategy.ClosedCandlesOnly,
			Endpoint:   endpoint,
		},
		Strategy: StrategySummary{
			FastPeriod:      cfg.Strategy.FastPeriod,
			SlowPeriod:      cfg.Strategy.SlowPeriod,
			Leverage:        cfg.Strategy.Leverage,
			CapitalFraction: cfg.Strategy.CapitalFraction,
			QuoteAsset:      cfg.Strategy.QuoteAsset,
			PollSeconds:     cfg.Loop.PollIntervalSeconds,
			CooldownSeconds: cfg.Loop.CooldownSeconds,
			AlignToClose:    cfg.Loop.AlignToCandleClose,
			AlignOffset:     cfg.Loop.AlignOffsetSeconds,
		},
		Protection: ProtectionSummary{
			CallbackRate:         cfg.Protection.CallbackRate,
			FallbackCallbackRate: cfg.Protection.FallbackCallbackRate,
		},
		Outputs: OutputSummary{
			CSVPath:     cfg.EventLog.CSVPath,
			DBPath:      cfg.EventLog.DBPath,
			HTTPAddr:    addr,
			HotReload:   hotReload,
			Telegram:    cfg.Notify.TelegramEnabled,
			TradeAlerts: cfg.Notify.TelegramEnabled && cfg.Notify.IncludeTrades,
		},
	}
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[行情 (MARKET)]")
	fmt.Fprintf(w, "  交易对: %s\n", s.Market.Symbol)
	fmt.Fprintf(w, "  K线周期: %s (limit=%d, closed_only=%t)\n", s.Market.Interval, s.Market.KlineLimit, s.Market.ClosedOnly)
	fmt.Fprintf(w, "  接入点: %s\n", s.Market.Endpoint)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[策略 (STRATEGY)]")
	fmt.Fprintf(w, "  EMA: fast=%d slow=%d\n", s.Strategy.FastPeriod, s.Strategy.SlowPeriod)
	fmt.Fprintf(w, "  杠杆: %dx  资金比例: %.2f %s\n", s.Strategy.Leverage, s.Strategy.CapitalFraction, s.Strategy.QuoteAsset)
	if s.Strategy.AlignToClose {
		fmt.Fprintf(w, "  轮询: K线收盘后 +%ds  冷却: %ds\n", s.Strategy.AlignOffset, s.Strategy.CooldownSeconds)
	} else {
		fmt.Fprintf(w, "  轮询: %ds  冷却: %ds\n", s.Strategy.PollSeconds, s.Strategy.CooldownSeconds)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[保护 (PROTECTION)]")
	fmt.Fprintf(w, "  追踪回调: %.2f%% (备用 %.2f%%)\n", s.Protection.CallbackRate, s.Protection.FallbackCallbackRate)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[输出 (OUTPUTS)]")
	fmt.Fprintf(w, "  CSV: %s\n", orDash(s.Outputs.CSVPath))
	fmt.Fprintf(w, "  数据库: %s\n", orDash(s.Outputs.DBPath))
	fmt.Fprintf(w, "  状态接口: %s\n", orDash(s.Outputs.HTTPAddr))
	fmt.Fprintf(w, "  热加载: %t\n", s.Outputs.HotReload)
	fmt.Fprintf(w, "  Telegram: %t (交易通知 %t)\n", s.Outputs.Telegram, s.Outputs.TradeAlerts)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
