package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"trailbot/internal/analysis/indicator"
	"trailbot/internal/eventlog"
	"trailbot/internal/gateway/exchange"
	"trailbot/internal/signal"
	"trailbot/internal/sizing"
	"trailbot/internal/store/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var centFilters = sizing.Filters{StepSize: decimal.RequireFromString("0.01"), Precision: 2}

type harness struct {
	ctrl    *Controller
	sess    *MockSession
	events  *captureRecorder
	journal *captureJournal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testSettings()
	cfg.Indicator = indicator.Settings{FastPeriod: 2, SlowPeriod: 5}
	sess := new(MockSession)
	h := &harness{sess: sess, events: &captureRecorder{}, journal: &captureJournal{}}
	ctrl, err := NewController(Params{
		Settings: cfg,
		Dial:     func(context.Context) (exchange.Session, error) { return sess, nil },
		Events:   h.events,
		Journal:  h.journal,
		Sleep:    func(context.Context, time.Duration) bool { return true },
	})
	require.NoError(t, err)
	ctrl.swap(sess)
	h.ctrl = ctrl
	return h
}

func trailing(id int64, side exchange.Side) exchange.OpenOrder {
	return exchange.OpenOrder{OrderID: id, Type: exchange.OrderTypeTrailingStop, Side: side, Quantity: 1, ReduceOnly: true}
}

func fixedStop(id int64, side exchange.Side) exchange.OpenOrder {
	return exchange.OpenOrder{OrderID: id, Type: exchange.OrderTypeStopMarket, Side: side, Quantity: 1, ReduceOnly: true}
}

func rejected(code int64) error {
	return &exchange.Error{Kind: exchange.KindTransient, Op: "trailing stop", Code: code, Err: errors.New("rejected")}
}

func TestNewControllerValidates(t *testing.T) {
	cfg := testSettings()
	cfg.Indicator = indicator.Settings{FastPeriod: 5, SlowPeriod: 5}
	_, err := NewController(Params{Settings: cfg, Dial: func(context.Context) (exchange.Session, error) { return nil, nil }})
	assert.Error(t, err)

	cfg.Indicator = indicator.Settings{FastPeriod: 2, SlowPeriod: 5}
	_, err = NewController(Params{Settings: cfg})
	assert.Error(t, err, "dialer is required")

	cfg.FallbackCallbackRate = 0
	_, err = NewController(Params{Settings: cfg, Dial: func(context.Context) (exchange.Session, error) { return nil, nil }})
	assert.Error(t, err)
}

func TestRunCycleFlatLongEntersAndProtects(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, "ETHUSDT", "5m", 100).Return(crossUp(), nil)
	h.sess.On("OpenPosition", mock.Anything, "ETHUSDT").Return(nil, nil)
	h.sess.On("AvailableBalance", mock.Anything, "USDT").Return(1000.0, nil)
	h.sess.On("Filters", mock.Anything, "ETHUSDT").Return(centFilters, nil)
	// 1000 * 0.95 * 10 / 130 = 73.0769...
	h.sess.On("SubmitMarketOrder", mock.Anything, mock.MatchedBy(func(req exchange.MarketOrder) bool {
		return req.Side == exchange.SideBuy && req.Quantity == 73.07 && req.Precision == 2
	})).Return(exchange.OrderAck{OrderID: 1, Status: "FILLED", ExecutedQuantity: 73.07, AvgPrice: 130}, nil).Once()
	h.sess.On("SubmitTrailingStop", mock.Anything, mock.MatchedBy(func(req exchange.TrailingStopOrder) bool {
		return req.Side == exchange.SideSell && req.Quantity == 73.07 && req.CallbackRate == 1.0
	})).Return(exchange.OrderAck{OrderID: 2, Status: "NEW"}, nil).Once()
	h.sess.On("ListOpenOrders", mock.Anything, "ETHUSDT").Return([]exchange.OpenOrder{}, nil).Once()
	h.sess.On("ListOpenOrders", mock.Anything, "ETHUSDT").Return([]exchange.OpenOrder{trailing(2, exchange.SideSell)}, nil)

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signal.Long, out.Signal)
	assert.Equal(t, ActionEntered, out.Action)
	assert.Equal(t, StatePositionOpen, out.State)
	assert.Zero(t, out.Cancelled)
	h.sess.AssertExpectations(t)
	h.sess.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything, mock.Anything)

	require.Len(t, h.journal.entries, 2)
	assert.Equal(t, model.OrderActionEntry, h.journal.entries[0].Action)
	assert.Equal(t, model.OrderActionTrailingStop, h.journal.entries[1].Action)
	assert.Equal(t, 1, h.journal.entries[1].Attempt)

	st := h.ctrl.Status().Snapshot()
	assert.Equal(t, 1, st.Cycles)
	assert.Equal(t, "LONG", st.Signal)
	assert.Equal(t, 130.0, st.LastPrice)
}

func TestRunCycleFlatShortSellsAndProtectsWithBuy(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(crossDown(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(nil, nil)
	h.sess.On("AvailableBalance", mock.Anything, mock.Anything).Return(700.0, nil)
	h.sess.On("Filters", mock.Anything, mock.Anything).Return(centFilters, nil)
	h.sess.On("SubmitMarketOrder", mock.Anything, mock.MatchedBy(func(req exchange.MarketOrder) bool {
		return req.Side == exchange.SideSell && req.Quantity == 95.0
	})).Return(exchange.OrderAck{OrderID: 1}, nil).Once()
	// no executed quantity reported: the submitted quantity sizes the stop
	h.sess.On("SubmitTrailingStop", mock.Anything, mock.MatchedBy(func(req exchange.TrailingStopOrder) bool {
		return req.Side == exchange.SideBuy && req.Quantity == 95.0
	})).Return(exchange.OrderAck{OrderID: 2}, nil).Once()
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{}, nil).Once()
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{trailing(2, exchange.SideBuy)}, nil)

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signal.Short, out.Signal)
	assert.Equal(t, ActionEntered, out.Action)
	h.sess.AssertExpectations(t)
}

func TestRunCycleEntryKeepsLeftoverTrailingStop(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(crossUp(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(nil, nil)
	h.sess.On("AvailableBalance", mock.Anything, mock.Anything).Return(1000.0, nil)
	h.sess.On("Filters", mock.Anything, mock.Anything).Return(centFilters, nil)
	h.sess.On("SubmitMarketOrder", mock.Anything, mock.Anything).Return(exchange.OrderAck{OrderID: 1, ExecutedQuantity: 73.07}, nil).Once()
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{
		trailing(7, exchange.SideSell),
		fixedStop(8, exchange.SideSell),
	}, nil)
	h.sess.On("CancelOrder", mock.Anything, "ETHUSDT", int64(8)).Return(nil).Once()

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionEntered, out.Action)
	assert.Equal(t, 1, out.Cancelled)
	h.sess.AssertNotCalled(t, "SubmitTrailingStop", mock.Anything, mock.Anything)
	h.sess.AssertNumberOfCalls(t, "ListOpenOrders", 1)
	assert.Len(t, h.events.find(eventlog.KindProtectionPresent), 1)
}

func TestRunCycleFlatNoSignalDoesNothing(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(flatSeries(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(nil, nil)

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)
	assert.Equal(t, StateFlat, out.State)
	h.sess.AssertNotCalled(t, "SubmitMarketOrder", mock.Anything, mock.Anything)
	h.sess.AssertNotCalled(t, "AvailableBalance", mock.Anything, mock.Anything)
	assert.Len(t, h.events.find(eventlog.KindNoSignal), 1)

	w := h.ctrl.Status().Window()
	assert.Equal(t, "ETHUSDT", w.Symbol)
	assert.Len(t, w.Candles, 5)
	assert.Len(t, w.Points, 5)
	assert.Equal(t, "NONE", w.Signal)
}

func TestRunCycleOpenShortWithoutProtection(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(flatSeries(), nil)
	h.sess.On("OpenPosition", mock.Anything, "ETHUSDT").Return(&exchange.Position{Symbol: "ETHUSDT", Amount: -5}, nil)
	h.sess.On("ListOpenOrders", mock.Anything, "ETHUSDT").Return([]exchange.OpenOrder{}, nil).Once()
	h.sess.On("Filters", mock.Anything, "ETHUSDT").Return(centFilters, nil)
	h.sess.On("SubmitTrailingStop", mock.Anything, mock.MatchedBy(func(req exchange.TrailingStopOrder) bool {
		return req.Side == exchange.SideBuy && req.Quantity == 5 && req.CallbackRate == 1.0
	})).Return(exchange.OrderAck{OrderID: 9}, nil).Once()
	h.sess.On("ListOpenOrders", mock.Anything, "ETHUSDT").Return([]exchange.OpenOrder{trailing(9, exchange.SideBuy)}, nil)

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePositionOpen, out.State)
	assert.Equal(t, ActionProtected, out.Action)
	h.sess.AssertExpectations(t)
	h.sess.AssertNotCalled(t, "SubmitMarketOrder", mock.Anything, mock.Anything)
}

func TestRunCycleOpenPositionAlreadyProtected(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(crossUp(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(&exchange.Position{Amount: 2}, nil)
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{trailing(3, exchange.SideSell)}, nil)

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionVerified, out.Action)
	h.sess.AssertNotCalled(t, "SubmitTrailingStop", mock.Anything, mock.Anything)
	h.sess.AssertNotCalled(t, "SubmitMarketOrder", mock.Anything, mock.Anything)
	assert.Len(t, h.events.find(eventlog.KindProtectionPresent), 1)
}

func TestRunCycleSignalOverridesPositionSide(t *testing.T) {
	h := newHarness(t)
	// long position, fresh SHORT signal: the protective side follows the signal
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(crossDown(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(&exchange.Position{Amount: 1.5}, nil)
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{}, nil)
	h.sess.On("Filters", mock.Anything, mock.Anything).Return(centFilters, nil)
	h.sess.On("SubmitTrailingStop", mock.Anything, mock.MatchedBy(func(req exchange.TrailingStopOrder) bool {
		return req.Side == exchange.SideBuy && req.Quantity == 1.5
	})).Return(exchange.OrderAck{OrderID: 4}, nil)

	_, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	h.sess.AssertNumberOfCalls(t, "SubmitTrailingStop", 1)
}

func TestRunCycleCancelsFixedStopWhenTrailingExists(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(flatSeries(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(&exchange.Position{Amount: 1}, nil)
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{
		fixedStop(10, exchange.SideSell),
		trailing(11, exchange.SideSell),
	}, nil).Once()
	h.sess.On("CancelOrder", mock.Anything, "ETHUSDT", int64(10)).Return(nil).Once()

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Cancelled)
	h.sess.AssertExpectations(t)
	h.sess.AssertNotCalled(t, "CancelOrder", mock.Anything, "ETHUSDT", int64(11))

	// second pass sees only the trailing stop and changes nothing
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{trailing(11, exchange.SideSell)}, nil)
	out, err = h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, out.Cancelled)
	h.sess.AssertNumberOfCalls(t, "CancelOrder", 1)

	cancels := 0
	for _, e := range h.journal.entries {
		if e.Action == model.OrderActionCancel {
			cancels++
		}
	}
	assert.Equal(t, 1, cancels)
}

func TestManageStopOrders(t *testing.T) {
	for name, tc := range map[string]struct {
		orders []exchange.OpenOrder
		cancel []int64
	}{
		"none":          {},
		"only fixed":    {orders: []exchange.OpenOrder{fixedStop(1, exchange.SideSell)}},
		"only trailing": {orders: []exchange.OpenOrder{trailing(2, exchange.SideSell)}},
		"both":          {orders: []exchange.OpenOrder{fixedStop(1, exchange.SideSell), fixedStop(3, exchange.SideSell), trailing(2, exchange.SideSell)}, cancel: []int64{1, 3}},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return(tc.orders, nil)
			h.sess.On("CancelOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			n, err := h.ctrl.ManageStopOrders(context.Background(), h.sess)
			require.NoError(t, err)
			assert.Equal(t, len(tc.cancel), n)
			h.sess.AssertNumberOfCalls(t, "CancelOrder", len(tc.cancel))
			for _, id := range tc.cancel {
				h.sess.AssertCalled(t, "CancelOrder", mock.Anything, "ETHUSDT", id)
			}
		})
	}
}

func TestManageStopOrdersCancelFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{
		fixedStop(1, exchange.SideSell), trailing(2, exchange.SideSell),
	}, nil)
	h.sess.On("CancelOrder", mock.Anything, mock.Anything, int64(1)).Return(rejected(-2011))

	n, err := h.ctrl.ManageStopOrders(context.Background(), h.sess)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, h.events.find(eventlog.KindStopCancelFailed), 1)
}

func TestPlaceTrailingStopRetriesOnceWithFallback(t *testing.T) {
	qty := sizing.Result{Quantity: 2, Precision: 2}

	t.Run("fallback succeeds", func(t *testing.T) {
		h := newHarness(t)
		h.sess.On("SubmitTrailingStop", mock.Anything, mock.MatchedBy(func(req exchange.TrailingStopOrder) bool {
			return req.CallbackRate == 1.0
		})).Return(exchange.OrderAck{}, rejected(-2021)).Once()
		h.sess.On("SubmitTrailingStop", mock.Anything, mock.MatchedBy(func(req exchange.TrailingStopOrder) bool {
			return req.CallbackRate == 0.5
		})).Return(exchange.OrderAck{OrderID: 5}, nil).Once()

		ack, err := h.ctrl.PlaceTrailingStop(context.Background(), h.sess, exchange.SideSell, qty)
		require.NoError(t, err)
		assert.Equal(t, int64(5), ack.OrderID)
		h.sess.AssertNumberOfCalls(t, "SubmitTrailingStop", 2)
		assert.Len(t, h.events.find(eventlog.KindProtectionRetry), 1)
		require.Len(t, h.journal.entries, 1)
		assert.Equal(t, 2, h.journal.entries[0].Attempt)
		assert.Equal(t, 0.5, h.journal.entries[0].CallbackRate)
	})

	t.Run("both attempts fail", func(t *testing.T) {
		h := newHarness(t)
		h.sess.On("SubmitTrailingStop", mock.Anything, mock.Anything).Return(exchange.OrderAck{}, rejected(-2021))

		_, err := h.ctrl.PlaceTrailingStop(context.Background(), h.sess, exchange.SideSell, qty)
		require.Error(t, err)
		h.sess.AssertNumberOfCalls(t, "SubmitTrailingStop", 2)
		failed := h.events.find(eventlog.KindProtectionFailed)
		require.Len(t, failed, 1)
		assert.True(t, failed[0].Failed())
		assert.Empty(t, h.journal.entries)
	})

	t.Run("fatal error is not retried", func(t *testing.T) {
		h := newHarness(t)
		h.sess.On("SubmitTrailingStop", mock.Anything, mock.Anything).
			Return(exchange.OrderAck{}, exchange.NewError(exchange.KindFatalSession, "trailing stop", errors.New("invalid key")))

		_, err := h.ctrl.PlaceTrailingStop(context.Background(), h.sess, exchange.SideSell, qty)
		assert.True(t, exchange.IsKind(err, exchange.KindFatalSession))
		h.sess.AssertNumberOfCalls(t, "SubmitTrailingStop", 1)
	})
}

func TestRunCycleProtectionFailureKeepsLoopAlive(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(flatSeries(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(&exchange.Position{Amount: 1}, nil)
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{}, nil)
	h.sess.On("Filters", mock.Anything, mock.Anything).Return(centFilters, nil)
	h.sess.On("SubmitTrailingStop", mock.Anything, mock.Anything).Return(exchange.OrderAck{}, rejected(-2021))

	out, err := h.ctrl.RunCycle(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, ActionUnprotected, out.Action)
	h.sess.AssertNumberOfCalls(t, "SubmitTrailingStop", 2)
}

func TestRunCycleEntryFailureStaysFlat(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(crossUp(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(nil, nil)
	h.sess.On("AvailableBalance", mock.Anything, mock.Anything).Return(1000.0, nil)
	h.sess.On("Filters", mock.Anything, mock.Anything).Return(centFilters, nil)
	h.sess.On("SubmitMarketOrder", mock.Anything, mock.Anything).Return(exchange.OrderAck{}, rejected(-2019))

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionEntryFailed, out.Action)
	assert.Equal(t, StateFlat, out.State)
	h.sess.AssertNumberOfCalls(t, "SubmitMarketOrder", 1)
	h.sess.AssertNotCalled(t, "SubmitTrailingStop", mock.Anything, mock.Anything)
	assert.Len(t, h.events.find(eventlog.KindEntryFailed), 1)
}

func TestRunCycleZeroQuantityIsNotActionable(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(crossUp(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(nil, nil)
	h.sess.On("AvailableBalance", mock.Anything, mock.Anything).Return(0.0, nil)
	h.sess.On("Filters", mock.Anything, mock.Anything).Return(centFilters, nil)

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionNotActionable, out.Action)
	h.sess.AssertNotCalled(t, "SubmitMarketOrder", mock.Anything, mock.Anything)
}

func TestRunCycleDegradedSizingWithoutFilters(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(crossUp(), nil)
	h.sess.On("OpenPosition", mock.Anything, mock.Anything).Return(nil, nil)
	h.sess.On("AvailableBalance", mock.Anything, mock.Anything).Return(1000.0, nil)
	h.sess.On("Filters", mock.Anything, mock.Anything).Return(sizing.Filters{},
		exchange.NewError(exchange.KindConfiguration, "exchange info", exchange.ErrFiltersUnavailable))
	h.sess.On("SubmitMarketOrder", mock.Anything, mock.MatchedBy(func(req exchange.MarketOrder) bool {
		return req.Quantity == 73.077 && req.Precision == sizing.DefaultPrecision
	})).Return(exchange.OrderAck{OrderID: 1, ExecutedQuantity: 73.077}, nil)
	h.sess.On("SubmitTrailingStop", mock.Anything, mock.Anything).Return(exchange.OrderAck{OrderID: 2}, nil)
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{}, nil).Once()
	h.sess.On("ListOpenOrders", mock.Anything, mock.Anything).Return([]exchange.OpenOrder{trailing(2, exchange.SideSell)}, nil)

	out, err := h.ctrl.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.Equal(t, ActionEntered, out.Action)
	assert.True(t, h.ctrl.Status().Snapshot().Degraded)
}

func TestRunCycleDataUnavailable(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	out, err := h.ctrl.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.True(t, exchange.IsKind(err, exchange.KindDataUnavailable))
	assert.Equal(t, ActionSkipped, out.Action)
	h.sess.AssertNotCalled(t, "OpenPosition", mock.Anything, mock.Anything)
}

func TestRunCycleTooFewCandles(t *testing.T) {
	h := newHarness(t)
	h.sess.On("Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(closesToCandles(100), nil)

	_, err := h.ctrl.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestRunCycleWithoutSession(t *testing.T) {
	ctrl, err := NewController(Params{Settings: func() Settings {
		s := testSettings()
		s.Indicator = indicator.Settings{FastPeriod: 2, SlowPeriod: 5}
		return s
	}(), Dial: func(context.Context) (exchange.Session, error) { return nil, errors.New("down") }})
	require.NoError(t, err)
	_, err = ctrl.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}
