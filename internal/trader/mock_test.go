package trader

import (
	"context"
	"sync"
	"time"

	"trailbot/internal/eventlog"
	"trailbot/internal/gateway/exchange"
	"trailbot/internal/market"
	"trailbot/internal/sizing"

	"github.com/stretchr/testify/mock"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Candles(ctx context.Context, symbol, interval string, limit int) (market.Candles, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(market.Candles), args.Error(1)
}

func (m *MockSession) OpenPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exchange.Position), args.Error(1)
}

func (m *MockSession) AvailableBalance(ctx context.Context, asset string) (float64, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockSession) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	args := m.Called(ctx, symbol, leverage)
	return args.Error(0)
}

func (m *MockSession) SubmitMarketOrder(ctx context.Context, req exchange.MarketOrder) (exchange.OrderAck, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.OrderAck), args.Error(1)
}

func (m *MockSession) SubmitTrailingStop(ctx context.Context, req exchange.TrailingStopOrder) (exchange.OrderAck, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.OrderAck), args.Error(1)
}

func (m *MockSession) ListOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.OpenOrder), args.Error(1)
}

func (m *MockSession) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	args := m.Called(ctx, symbol, orderID)
	return args.Error(0)
}

func (m *MockSession) Filters(ctx context.Context, symbol string) (sizing.Filters, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(sizing.Filters), args.Error(1)
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// captureRecorder keeps every event in memory.
type captureRecorder struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (r *captureRecorder) Record(_ context.Context, evt eventlog.Event) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	return nil
}

func (r *captureRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *captureRecorder) find(kind string) []eventlog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventlog.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type captureJournal struct {
	mu      sync.Mutex
	entries []eventlog.OrderEntry
}

func (j *captureJournal) RecordOrder(_ context.Context, e eventlog.OrderEntry) error {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
	return nil
}

func testSettings() Settings {
	return Settings{
		Symbol:     "ETHUSDT",
		Interval:   "5m",
		KlineLimit: 100,
		Leverage:   10,
		QuoteAsset: "USDT",
		Tunables: Tunables{
			CapitalFraction:      0.95,
			CallbackRate:         1.0,
			FallbackCallbackRate: 0.5,
			PollInterval:         time.Minute,
			Cooldown:             time.Minute,
		},
	}
}

func closesToCandles(closes ...float64) market.Candles {
	out := make(market.Candles, len(closes))
	for i, c := range closes {
		open := int64(i) * 300_000
		out[i] = market.Candle{OpenTime: open, CloseTime: open + 299_999, Open: c, High: c, Low: c, Close: c}
	}
	return out
}

// crossUp ends with the fast average moving above the slow one on the last candle.
func crossUp() market.Candles {
	return closesToCandles(100, 100, 100, 100, 90, 100, 130)
}

func crossDown() market.Candles {
	return closesToCandles(100, 100, 100, 100, 110, 100, 70)
}

func flatSeries() market.Candles {
	return closesToCandles(100, 100, 100, 100, 100)
}
