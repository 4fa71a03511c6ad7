package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppHTTPAddr       = ":9991"
	defaultAppLogPath        = "data/logs/trailbot.log"
	defaultHTTPTimeout       = 15
	defaultRecvWindowMS      = 5000
	defaultRequestsPerSecond = 10
	defaultSymbol            = "ETHUSDT"
	defaultInterval          = "5m"
	defaultKlineLimit        = 100
	defaultFastPeriod        = 40
	defaultSlowPeriod        = 99
	defaultLeverage          = 10
	defaultCapitalFraction   = 0.95
	defaultQuoteAsset        = "USDT"
	defaultCallbackRate      = 1.0
	defaultFallbackCallback  = 0.5
	defaultPollInterval      = 60
	defaultCooldown          = 60
	defaultAlignOffset       = 2
	defaultCSVPath           = "data/trading_log.csv"
	defaultDBPath            = "data/trailbot.db"
	defaultWriteTimeoutMS    = 2000
	defaultMemorySize        = 256
)

// Default returns a fully defaulted configuration.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(nil)
	return &cfg
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Protection.applyDefaults(keys)
	c.Loop.applyDefaults(keys)
	c.EventLog.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	e.RESTBaseURL = strings.TrimRight(strings.TrimSpace(e.RESTBaseURL), "/")
	applyFieldDefaults(keys,
		intFieldDefault("exchange.http_timeout_seconds", &e.HTTPTimeoutSeconds, defaultHTTPTimeout),
		intFieldDefault("exchange.recv_window_ms", &e.RecvWindowMS, defaultRecvWindowMS),
		floatFieldDefault("exchange.requests_per_second", &e.RequestsPerSecond, defaultRequestsPerSecond),
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("strategy.symbol", &s.Symbol, defaultSymbol),
		stringFieldDefault("strategy.interval", &s.Interval, defaultInterval),
		intFieldDefault("strategy.kline_limit", &s.KlineLimit, defaultKlineLimit),
		intFieldDefault("strategy.fast_period", &s.FastPeriod, defaultFastPeriod),
		intFieldDefault("strategy.slow_period", &s.SlowPeriod, defaultSlowPeriod),
		intFieldDefault("strategy.leverage", &s.Leverage, defaultLeverage),
		floatFieldDefault("strategy.capital_fraction", &s.CapitalFraction, defaultCapitalFraction),
		stringFieldDefault("strategy.quote_asset", &s.QuoteAsset, defaultQuoteAsset),
	)
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.QuoteAsset = strings.ToUpper(strings.TrimSpace(s.QuoteAsset))
	s.Interval = strings.TrimSpace(s.Interval)
}

func (p *ProtectionConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("protection.callback_rate", &p.CallbackRate, defaultCallbackRate),
		floatFieldDefault("protection.fallback_callback_rate", &p.FallbackCallbackRate, defaultFallbackCallback),
	)
}

func (l *LoopConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("loop.poll_interval_seconds", &l.PollIntervalSeconds, defaultPollInterval),
		intFieldDefault("loop.cooldown_seconds", &l.CooldownSeconds, defaultCooldown),
		intFieldDefault("loop.align_offset_seconds", &l.AlignOffsetSeconds, defaultAlignOffset),
	)
}

func (e *EventLogConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("eventlog.csv_path", &e.CSVPath, defaultCSVPath),
		stringFieldDefault("eventlog.db_path", &e.DBPath, defaultDBPath),
		intFieldDefault("eventlog.write_timeout_ms", &e.WriteTimeoutMS, defaultWriteTimeoutMS),
		intFieldDefault("eventlog.memory_size", &e.MemorySize, defaultMemorySize),
	)
}

// Helper functions

// applyFieldDefaults skips keys set explicitly in the file, so an empty
// string there (e.g. eventlog.csv_path: "") disables the feature instead
// of falling back to the default.
func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
