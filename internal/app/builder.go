package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trailbot/internal/analysis/indicator"
	"trailbot/internal/config"
	"trailbot/internal/eventlog"
	"trailbot/internal/gateway/binance"
	"trailbot/internal/gateway/exchange"
	"trailbot/internal/gateway/notifier"
	"trailbot/internal/logger"
	"trailbot/internal/store"
	"trailbot/internal/store/gormstore"
	"trailbot/internal/trader"
	statushttp "trailbot/internal/transport/http/status"
)

const (
	sinkFailureThreshold = 3
	sinkSuspendFor       = time.Minute
)

type AppBuilder struct {
	cfg     *config.Config
	cfgPath string

	dialerFn func(binance.Config) exchange.Dialer
	storeFn  func(path string) (store.Store, error)
	statusFn func(config.AppConfig, statushttp.ServerConfig) (*statushttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithDialer replaces the exchange dialer, mainly for tests.
func WithDialer(fn func(binance.Config) exchange.Dialer) AppBuilderOption {
	return func(b *AppBuilder) { b.dialerFn = fn }
}

// WithConfigPath enables hot reload of the given file.
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.cfgPath = strings.TrimSpace(path) }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:      cfg,
		dialerFn: binance.Dialer,
		storeFn:  openStore,
		statusFn: buildStatusServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func openStore(path string) (store.Store, error) {
	return gormstore.NewGormStore(path)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	settings := SettingsFromConfig(cfg)
	a := &App{cfg: cfg, tunables: make(chan trader.Tunables, 1)}

	memory := eventlog.NewMemorySink(cfg.EventLog.MemorySize)
	sinks := []eventlog.Sink{memory}
	var (
		journal eventlog.OrderJournal
		stored  *eventlog.StoreSink
		st      store.Store
	)
	if path := strings.TrimSpace(cfg.EventLog.CSVPath); path != "" {
		csvSink, err := eventlog.NewCSVSink(path)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open csv event log: %w", err)
		}
		a.closers = append(a.closers, csvSink.Close)
		sinks = append(sinks, eventlog.NewGuardedSink("csv", csvSink, sinkFailureThreshold, sinkSuspendFor))
		logger.Infof("✓ CSV 事件日志: %s", path)
	}
	if path := strings.TrimSpace(cfg.EventLog.DBPath); path != "" {
		var err error
		st, err = b.storeFn(path)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open event store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		stored = eventlog.NewStoreSink(st)
		journal = stored
		sinks = append(sinks, eventlog.NewGuardedSink("store", stored, sinkFailureThreshold, sinkSuspendFor))
		logger.Infof("✓ 事件数据库: %s", path)
	}
	if cfg.Notify.TelegramEnabled {
		tg := notifier.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
		a.alerts = notifier.NewAlertSink(tg, cfg.Notify.IncludeTrades, 0)
		sinks = append(sinks, a.alerts)
		logger.Infof("✓ Telegram 告警已启用")
	}
	recorder := eventlog.NewRecorder(settings.Symbol, cfg.EventLog.WriteTimeout(), sinks...)
	tracker := trader.NewTracker(settings.Symbol)

	controller, err := trader.NewController(trader.Params{
		Settings:      settings,
		Dial:          b.dialerFn(ExchangeConfig(cfg.Exchange)),
		Events:        recorder,
		Journal:       journal,
		Tunables:      a.tunables,
		Status:        tracker,
		ClientOrderID: binance.NewClientOrderID,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.controller = controller

	srvCfg := statushttp.ServerConfig{Status: tracker, Chart: tracker, Memory: memory}
	if stored != nil {
		srvCfg.Events = stored
		srvCfg.Orders = st
	}
	if a.statusHTTP, err = b.statusFn(cfg.App, srvCfg); err != nil {
		a.close()
		return nil, err
	}

	if b.cfgPath != "" {
		w, err := config.NewWatcher(b.cfgPath, cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		a.watcher = w
	}
	a.Summary = newStartupSummary(cfg, a.statusHTTP != nil, a.watcher != nil)
	return a, nil
}

func buildStatusServer(cfg config.AppConfig, srvCfg statushttp.ServerConfig) (*statushttp.Server, error) {
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, nil
	}
	srvCfg.Addr = cfg.HTTPAddr
	if path := strings.TrimSpace(cfg.LogPath); path != "" {
		srvCfg.LogPaths = map[string]string{"app": path}
	}
	server, err := statushttp.NewServer(srvCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化状态接口失败: %w", err)
	}
	logger.Infof("✓ 状态接口监听 %s", server.Addr())
	return server, nil
}

// SettingsFromConfig maps the file config onto the controller settings.
func SettingsFromConfig(cfg *config.Config) trader.Settings {
	return trader.Settings{
		Symbol:            cfg.Strategy.Symbol,
		Interval:          cfg.Strategy.Interval,
		KlineLimit:        cfg.Strategy.KlineLimit,
		ClosedCandlesOnly: cfg.Strategy.ClosedCandlesOnly,
		Indicator: indicator.Settings{
			FastPeriod: cfg.Strategy.FastPeriod,
			SlowPeriod: cfg.Strategy.SlowPeriod,
		},
		Leverage:     cfg.Strategy.Leverage,
		QuoteAsset:   cfg.Strategy.QuoteAsset,
		AlignToClose: cfg.Loop.AlignToCandleClose,
		AlignOffset:  cfg.Loop.AlignOffset(),
		Tunables:     TunablesFromConfig(cfg),
	}
}

func TunablesFromConfig(cfg *config.Config) trader.Tunables {
	return trader.Tunables{
		CapitalFraction:      cfg.Strategy.CapitalFraction,
		CallbackRate:         cfg.Protection.CallbackRate,
		FallbackCallbackRate: cfg.Protection.FallbackCallbackRate,
		PollInterval:         cfg.Loop.PollInterval(),
		Cooldown:             cfg.Loop.Cooldown(),
	}
}

func ExchangeConfig(cfg config.ExchangeConfig) binance.Config {
	return binance.Config{
		APIKey:            cfg.APIKey,
		APISecret:         cfg.APISecret,
		RESTBaseURL:       cfg.RESTBaseURL,
		Testnet:           cfg.Testnet,
		HTTPTimeout:       cfg.HTTPTimeout(),
		RecvWindow:        cfg.RecvWindow(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		ProxyURL:          cfg.ProxyURL,
	}
}
