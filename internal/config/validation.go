package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Protection.validate(); err != nil {
		return err
	}
	if err := c.Loop.validate(); err != nil {
		return err
	}
	if err := c.EventLog.validate(); err != nil {
		return err
	}
	return c.Notify.validate()
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(a.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	switch strings.ToLower(a.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if e.RESTBaseURL != "" {
		if u, err := url.Parse(e.RESTBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("exchange.rest_base_url is not a valid url: %q", e.RESTBaseURL)
		}
	}
	if e.ProxyURL != "" {
		if _, err := url.Parse(e.ProxyURL); err != nil {
			return fmt.Errorf("exchange.proxy_url invalid: %w", err)
		}
	}
	if e.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("exchange.http_timeout_seconds must be > 0")
	}
	if e.RecvWindowMS <= 0 || e.RecvWindowMS > 60000 {
		return fmt.Errorf("exchange.recv_window_ms must be in (0,60000]")
	}
	if e.RequestsPerSecond <= 0 {
		return fmt.Errorf("exchange.requests_per_second must be > 0")
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("strategy.symbol cannot be empty")
	}
	if !IsValidInterval(s.Interval) {
		return fmt.Errorf("strategy.interval invalid: %q", s.Interval)
	}
	if s.KlineLimit < 2 || s.KlineLimit > 1500 {
		return fmt.Errorf("strategy.kline_limit must be in [2,1500]")
	}
	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 {
		return fmt.Errorf("strategy.fast_period and slow_period must be > 0")
	}
	if s.FastPeriod >= s.SlowPeriod {
		return fmt.Errorf("strategy.fast_period (%d) must be below slow_period (%d)", s.FastPeriod, s.SlowPeriod)
	}
	if s.Leverage < 1 || s.Leverage > 125 {
		return fmt.Errorf("strategy.leverage must be in [1,125]")
	}
	if s.CapitalFraction <= 0 || s.CapitalFraction > 1 {
		return fmt.Errorf("strategy.capital_fraction must be in (0, 1]")
	}
	if s.QuoteAsset == "" {
		return fmt.Errorf("strategy.quote_asset cannot be empty")
	}
	return nil
}

func (p *ProtectionConfig) validate() error {
	// Binance accepts callbackRate in [0.1, 10] (percent)
	for name, v := range map[string]float64{
		"protection.callback_rate":          p.CallbackRate,
		"protection.fallback_callback_rate": p.FallbackCallbackRate,
	} {
		if v < 0.1 || v > 10 {
			return fmt.Errorf("%s must be in [0.1,10], got %v", name, v)
		}
	}
	return nil
}

func (l *LoopConfig) validate() error {
	if l.PollIntervalSeconds <= 0 {
		return fmt.Errorf("loop.poll_interval_seconds must be > 0")
	}
	if l.CooldownSeconds <= 0 {
		return fmt.Errorf("loop.cooldown_seconds must be > 0")
	}
	if l.AlignOffsetSeconds < 0 {
		return fmt.Errorf("loop.align_offset_seconds must be >= 0")
	}
	return nil
}

func (e *EventLogConfig) validate() error {
	if e.WriteTimeoutMS <= 0 {
		return fmt.Errorf("eventlog.write_timeout_ms must be > 0")
	}
	if e.MemorySize < 0 {
		return fmt.Errorf("eventlog.memory_size must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if !n.TelegramEnabled {
		return nil
	}
	if strings.TrimSpace(n.TelegramBotToken) == "" || strings.TrimSpace(n.TelegramChatID) == "" {
		return fmt.Errorf("notify.telegram_enabled requires telegram_bot_token and telegram_chat_id")
	}
	return nil
}

// IsValidInterval 简易校验：以数字开头，以 m/h/d/w/M 结尾
func IsValidInterval(s string) bool {
	if len(s) < 2 {
		return false
	}
	suf := s[len(s)-1]
	if suf != 'm' && suf != 'h' && suf != 'd' && suf != 'w' && suf != 'M' {
		return false
	}
	for i := 0; i < len(s)-1; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
