package config

import (
	"strings"
	"time"
)

// Config 是 trailbot 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app" yaml:"app"`
	Exchange   ExchangeConfig   `toml:"exchange" yaml:"exchange"`
	Strategy   StrategyConfig   `toml:"strategy" yaml:"strategy"`
	Protection ProtectionConfig `toml:"protection" yaml:"protection"`
	Loop       LoopConfig       `toml:"loop" yaml:"loop"`
	EventLog   EventLogConfig   `toml:"eventlog" yaml:"eventlog"`
	Notify     NotifyConfig     `toml:"notify" yaml:"notify"`
}

type AppConfig struct {
	Env       string `toml:"env" yaml:"env"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
	LogPath   string `toml:"log_path" yaml:"log_path"`
	// HTTPAddr 为空时不启动状态接口。
	HTTPAddr string `toml:"http_addr" yaml:"http_addr"`
}

// ExchangeConfig 描述 Binance USDT-M 合约连接参数。凭证优先从环境变量读取。
type ExchangeConfig struct {
	RESTBaseURL        string  `toml:"rest_base_url" yaml:"rest_base_url"`
	Testnet            bool    `toml:"testnet" yaml:"testnet"`
	HTTPTimeoutSeconds int     `toml:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	ProxyURL           string  `toml:"proxy_url" yaml:"proxy_url,omitempty"`
	RecvWindowMS       int     `toml:"recv_window_ms" yaml:"recv_window_ms"`
	RequestsPerSecond  float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	APIKey             string  `toml:"api_key" yaml:"api_key,omitempty"`
	APISecret          string  `toml:"api_secret" yaml:"api_secret,omitempty"`
}

func (e ExchangeConfig) HTTPTimeout() time.Duration {
	return time.Duration(e.HTTPTimeoutSeconds) * time.Second
}

func (e ExchangeConfig) RecvWindow() time.Duration {
	return time.Duration(e.RecvWindowMS) * time.Millisecond
}

// StrategyConfig 控制交易标的、K 线窗口与双 EMA 参数。修改后需重启。
type StrategyConfig struct {
	Symbol            string  `toml:"symbol" yaml:"symbol"`
	Interval          string  `toml:"interval" yaml:"interval"`
	KlineLimit        int     `toml:"kline_limit" yaml:"kline_limit"`
	ClosedCandlesOnly bool    `toml:"closed_candles_only" yaml:"closed_candles_only"`
	FastPeriod        int     `toml:"fast_period" yaml:"fast_period"`
	SlowPeriod        int     `toml:"slow_period" yaml:"slow_period"`
	Leverage          int     `toml:"leverage" yaml:"leverage"`
	CapitalFraction   float64 `toml:"capital_fraction" yaml:"capital_fraction"`
	QuoteAsset        string  `toml:"quote_asset" yaml:"quote_asset"`
}

// ProtectionConfig 为追踪止损回调比例（百分比，1.0 = 1%）。
type ProtectionConfig struct {
	CallbackRate         float64 `toml:"callback_rate" yaml:"callback_rate"`
	FallbackCallbackRate float64 `toml:"fallback_callback_rate" yaml:"fallback_callback_rate"`
}

type LoopConfig struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	CooldownSeconds     int `toml:"cooldown_seconds" yaml:"cooldown_seconds"`
	// AlignToCandleClose 为 true 时，健康周期后等待到下一根 K 线收盘（+偏移）。
	AlignToCandleClose bool `toml:"align_to_candle_close" yaml:"align_to_candle_close"`
	AlignOffsetSeconds int  `toml:"align_offset_seconds" yaml:"align_offset_seconds"`
}

func (l LoopConfig) PollInterval() time.Duration {
	return time.Duration(l.PollIntervalSeconds) * time.Second
}

func (l LoopConfig) Cooldown() time.Duration {
	return time.Duration(l.CooldownSeconds) * time.Second
}

func (l LoopConfig) AlignOffset() time.Duration {
	return time.Duration(l.AlignOffsetSeconds) * time.Second
}

// EventLogConfig 控制审计输出。路径为空则关闭对应 sink。
type EventLogConfig struct {
	CSVPath        string `toml:"csv_path" yaml:"csv_path"`
	DBPath         string `toml:"db_path" yaml:"db_path"`
	WriteTimeoutMS int    `toml:"write_timeout_ms" yaml:"write_timeout_ms"`
	MemorySize     int    `toml:"memory_size" yaml:"memory_size"`
}

func (e EventLogConfig) WriteTimeout() time.Duration {
	return time.Duration(e.WriteTimeoutMS) * time.Millisecond
}

// NotifyConfig 控制 Telegram 告警推送。
type NotifyConfig struct {
	TelegramEnabled  bool   `toml:"telegram_enabled" yaml:"telegram_enabled"`
	TelegramBotToken string `toml:"telegram_bot_token" yaml:"telegram_bot_token,omitempty"`
	TelegramChatID   string `toml:"telegram_chat_id" yaml:"telegram_chat_id,omitempty"`
	// IncludeTrades also pushes entries, placed stops and reconnects.
	IncludeTrades bool `toml:"include_trades" yaml:"include_trades"`
}

// RestartRequired lists the settings that differ between c and next but
// only take effect after a restart.
func (c *Config) RestartRequired(next *Config) []string {
	if c == nil || next == nil {
		return nil
	}
	var out []string
	a, b := c.Strategy, next.Strategy
	if !strings.EqualFold(a.Symbol, b.Symbol) {
		out = append(out, "strategy.symbol")
	}
	if a.Interval != b.Interval {
		out = append(out, "strategy.interval")
	}
	if a.KlineLimit != b.KlineLimit {
		out = append(out, "strategy.kline_limit")
	}
	if a.ClosedCandlesOnly != b.ClosedCandlesOnly {
		out = append(out, "strategy.closed_candles_only")
	}
	if a.FastPeriod != b.FastPeriod || a.SlowPeriod != b.SlowPeriod {
		out = append(out, "strategy.fast_period/slow_period")
	}
	if a.Leverage != b.Leverage {
		out = append(out, "strategy.leverage")
	}
	if c.Loop.AlignToCandleClose != next.Loop.AlignToCandleClose || c.Loop.AlignOffsetSeconds != next.Loop.AlignOffsetSeconds {
		out = append(out, "loop.align_to_candle_close/align_offset_seconds")
	}
	if c.Exchange != next.Exchange {
		out = append(out, "exchange")
	}
	if c.App != next.App {
		out = append(out, "app")
	}
	if c.EventLog != next.EventLog {
		out = append(out, "eventlog")
	}
	if c.Notify != next.Notify {
		out = append(out, "notify")
	}
	return out
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
