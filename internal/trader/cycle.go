package trader

import (
	"context"
	"fmt"

	"trailbot/internal/analysis/indicator"
	"trailbot/internal/eventlog"
	"trailbot/internal/gateway/exchange"
	"trailbot/internal/market"
	"trailbot/internal/scheduler"
	"trailbot/internal/signal"
	"trailbot/internal/sizing"
	"trailbot/internal/store/model"
)

// Outcome summarizes one cycle.
type Outcome struct {
	State     State
	Signal    signal.Signal
	Action    Action
	Cancelled int
	Degraded  bool
}

// fundingSource is implemented by sessions that can report funding data.
type fundingSource interface {
	FundingRate(ctx context.Context, symbol string) (rate float64, mark float64, err error)
}

// RunCycle performs one decision pass against the current session.
// Errors returned here are the ones the loop must react to; recoverable
// order failures are recorded and swallowed.
func (c *Controller) RunCycle(ctx context.Context) (Outcome, error) {
	out := Outcome{State: StateFlat, Action: ActionSkipped}
	sess := c.current()
	if sess == nil {
		return out, ErrNoSession
	}
	defer func() {
		c.status.update(func(s *Status) {
			s.Cycles++
			s.LastCycleAt = c.now().UTC()
			s.State = out.State
			s.Signal = out.Signal.String()
			s.Action = out.Action
			if out.Degraded {
				s.Degraded = true
			}
		})
	}()

	candles, err := sess.Candles(ctx, c.cfg.Symbol, c.cfg.Interval, c.cfg.KlineLimit)
	if err != nil {
		if isFatal(err) {
			return out, err
		}
		return out, exchange.NewError(exchange.KindDataUnavailable, "candles", fmt.Errorf("%w: %w", ErrDataUnavailable, err))
	}
	if c.cfg.ClosedCandlesOnly {
		if dur, ok := scheduler.ParseIntervalDuration(c.cfg.Interval); ok {
			candles = scheduler.DropUnclosedKline(candles, dur)
		}
	}
	points, err := indicator.Compute(candles, c.cfg.Indicator)
	if err == nil && len(points) < 2 {
		err = fmt.Errorf("need at least 2 candles, got %d", len(points))
	}
	if err != nil {
		return out, exchange.NewError(exchange.KindDataUnavailable, "indicators", fmt.Errorf("%w: %w", ErrDataUnavailable, err))
	}
	last, _ := candles.Last()
	sig := signal.FromSeries(points)
	out.Signal = sig
	c.status.setWindow(Window{
		Symbol:    c.cfg.Symbol,
		Interval:  c.cfg.Interval,
		Indicator: c.cfg.Indicator,
		Candles:   candles,
		Points:    points,
		Signal:    sig.String(),
	})
	c.recordSignal(ctx, sess, sig, points[len(points)-1], candles)

	pos, err := sess.OpenPosition(ctx, c.cfg.Symbol)
	if err != nil {
		return out, err
	}
	c.status.update(func(s *Status) {
		s.LastPrice = last.Close
		s.PositionAmount = 0
		if pos != nil {
			s.PositionAmount = pos.Amount
		}
	})

	if pos == nil || !pos.IsOpen() {
		if sig == signal.None {
			out.Action = ActionNone
			c.record(ctx, eventlog.KindNoSignal, "no signal, staying flat", map[string]any{"price": last.Close})
			return out, nil
		}
		return out, c.openPosition(ctx, sess, sig, last.Close, &out)
	}

	out.State = StatePositionOpen
	// a fresh signal wins over the position sign, even when they disagree
	dir := sig
	if dir == signal.None {
		dir = signal.FromPositionAmount(pos.Amount)
	}
	return out, c.ensureProtection(ctx, sess, entrySide(dir).Opposite(), pos.AbsAmount(), &out)
}

func (c *Controller) recordSignal(ctx context.Context, sess exchange.Session, sig signal.Signal, pt indicator.Point, candles market.Candles) {
	diag := indicator.Diagnose(candles)
	c.status.update(func(s *Status) {
		s.RSI = diag.RSI
		s.ATR = diag.ATR
	})
	fields := map[string]any{
		"signal":   sig.String(),
		"ema_fast": pt.EMAFast,
		"ema_slow": pt.EMASlow,
		"spread":   pt.Spread(),
		"candles":  len(candles),
		"window":   candles.Snapshot(c.cfg.Interval),
	}
	if diag.RSI != 0 || diag.ATR != 0 {
		fields["rsi14"] = diag.RSI
		fields["atr14"] = diag.ATR
	}
	if fs, ok := sess.(fundingSource); ok {
		if rate, mark, err := fs.FundingRate(ctx, c.cfg.Symbol); err == nil {
			fields["funding_rate"] = rate
			fields["mark_price"] = mark
		}
	}
	c.record(ctx, eventlog.KindSignal, sig.String(), fields)
}

// openPosition enters at market and immediately protects the fill.
func (c *Controller) openPosition(ctx context.Context, sess exchange.Session, sig signal.Signal, price float64, out *Outcome) error {
	balance, err := sess.AvailableBalance(ctx, c.cfg.QuoteAsset)
	if err != nil {
		return err
	}
	filters, err := c.filters(ctx, sess)
	if err != nil {
		return err
	}
	res := sizing.ComputeQuantity(sizing.Params{
		EntryPrice:      price,
		Balance:         balance,
		CapitalFraction: c.cfg.CapitalFraction,
		Leverage:        c.cfg.Leverage,
	}, filters)
	out.Degraded = res.Degraded
	c.record(ctx, eventlog.KindSizing, "entry size computed", map[string]any{
		"price":     price,
		"balance":   balance,
		"fraction":  c.cfg.CapitalFraction,
		"leverage":  c.cfg.Leverage,
		"raw":       res.Raw,
		"quantity":  res.Quantity,
		"precision": res.Precision,
		"degraded":  res.Degraded,
	})
	if !res.Actionable() {
		out.Action = ActionNotActionable
		c.record(ctx, eventlog.KindNotActionable, "entry quantity rounds to zero", map[string]any{"raw": res.Raw})
		return nil
	}

	side := entrySide(sig)
	ack, err := sess.SubmitMarketOrder(ctx, exchange.MarketOrder{
		Symbol:        c.cfg.Symbol,
		Side:          side,
		Quantity:      res.Quantity,
		Precision:     res.Precision,
		ClientOrderID: c.nextClientID(),
	})
	if err != nil {
		out.Action = ActionEntryFailed
		c.record(ctx, eventlog.KindEntryFailed, fmt.Sprintf("market %s rejected", side), errFields(err, map[string]any{
			"side":     string(side),
			"quantity": res.Quantity,
		}))
		if isFatal(err) {
			return err
		}
		return nil
	}
	out.State = StatePositionOpen
	out.Action = ActionEntered
	c.journalOrder(ctx, eventlog.OrderEntry{
		Action:        model.OrderActionEntry,
		OrderID:       ack.OrderID,
		ClientOrderID: ack.ClientOrderID,
		Side:          string(side),
		Type:          string(exchange.OrderTypeMarket),
		Status:        ack.Status,
		Quantity:      res.Quantity,
		Price:         ack.AvgPrice,
		Attempt:       1,
	})
	c.record(ctx, eventlog.KindEntry, fmt.Sprintf("market %s filled", side), map[string]any{
		"order_id": ack.OrderID,
		"side":     string(side),
		"quantity": res.Quantity,
		"executed": ack.ExecutedQuantity,
		"avg":      ack.AvgPrice,
	})

	filled := ack.FilledQuantity()
	if filled <= 0 {
		filled = res.Quantity
	}
	stopQty := sizing.Normalize(filled, filters)
	// a trailing stop left over from an earlier position already guards the
	// new one; an unreadable order list still falls through to placement
	orders, err := sess.ListOpenOrders(ctx, c.cfg.Symbol)
	if err != nil && isFatal(err) {
		return err
	}
	if err == nil && exchange.HasTrailingStop(orders) {
		c.record(ctx, eventlog.KindProtectionPresent, "trailing stop already working", map[string]any{"orders": len(orders)})
		n, err := c.cancelFixedStops(ctx, sess, orders)
		out.Cancelled = n
		return err
	}
	if _, err := c.PlaceTrailingStop(ctx, sess, side.Opposite(), stopQty); err != nil {
		if isFatal(err) {
			return err
		}
	}
	n, err := c.ManageStopOrders(ctx, sess)
	out.Cancelled = n
	return err
}

// ensureProtection verifies a trailing stop guards the open position and
// places one when missing.
func (c *Controller) ensureProtection(ctx context.Context, sess exchange.Session, side exchange.Side, size float64, out *Outcome) error {
	orders, err := sess.ListOpenOrders(ctx, c.cfg.Symbol)
	if err != nil {
		return err
	}
	if exchange.HasTrailingStop(orders) {
		out.Action = ActionVerified
		c.record(ctx, eventlog.KindProtectionPresent, "trailing stop already working", map[string]any{"orders": len(orders)})
		n, err := c.cancelFixedStops(ctx, sess, orders)
		out.Cancelled = n
		return err
	}

	filters, err := c.filters(ctx, sess)
	if err != nil {
		return err
	}
	qty := sizing.Normalize(size, filters)
	if qty.Degraded {
		out.Degraded = true
	}
	if !qty.Actionable() {
		out.Action = ActionNotActionable
		c.record(ctx, eventlog.KindNotActionable, "position size rounds to zero", map[string]any{"size": size})
		return nil
	}
	if _, err := c.PlaceTrailingStop(ctx, sess, side, qty); err != nil {
		out.Action = ActionUnprotected
		if isFatal(err) {
			return err
		}
		return nil
	}
	out.Action = ActionProtected
	n, err := c.ManageStopOrders(ctx, sess)
	out.Cancelled = n
	return err
}

// PlaceTrailingStop submits a reduce-only trailing stop at the configured
// callback rate and, if that is rejected, once more at the fallback rate.
// The second failure is returned to the caller.
func (c *Controller) PlaceTrailingStop(ctx context.Context, sess exchange.Session, side exchange.Side, qty sizing.Result) (exchange.OrderAck, error) {
	rates := []float64{c.cfg.CallbackRate, c.cfg.FallbackCallbackRate}
	var lastErr error
	for i, rate := range rates {
		attempt := i + 1
		ack, err := sess.SubmitTrailingStop(ctx, exchange.TrailingStopOrder{
			Symbol:        c.cfg.Symbol,
			Side:          side,
			Quantity:      qty.Quantity,
			Precision:     qty.Precision,
			CallbackRate:  rate,
			ClientOrderID: c.nextClientID(),
		})
		if err == nil {
			c.journalOrder(ctx, eventlog.OrderEntry{
				Action:        model.OrderActionTrailingStop,
				OrderID:       ack.OrderID,
				ClientOrderID: ack.ClientOrderID,
				Side:          string(side),
				Type:          string(exchange.OrderTypeTrailingStop),
				Status:        ack.Status,
				Quantity:      qty.Quantity,
				CallbackRate:  rate,
				Attempt:       attempt,
			})
			c.record(ctx, eventlog.KindProtectionPlaced, "trailing stop placed", map[string]any{
				"order_id":      ack.OrderID,
				"side":          string(side),
				"quantity":      qty.Quantity,
				"callback_rate": rate,
				"attempt":       attempt,
			})
			return ack, nil
		}
		lastErr = err
		if attempt < len(rates) && !isFatal(err) && ctx.Err() == nil {
			c.record(ctx, eventlog.KindProtectionRetry, "trailing stop rejected, retrying with fallback rate", errFields(err, map[string]any{
				"callback_rate": rate,
				"fallback_rate": rates[attempt],
			}))
			continue
		}
		break
	}
	c.record(ctx, eventlog.KindProtectionFailed, "trailing stop not placed", errFields(lastErr, map[string]any{
		"side":     string(side),
		"quantity": qty.Quantity,
	}))
	return exchange.OrderAck{}, fmt.Errorf("place trailing stop: %w", lastErr)
}

// ManageStopOrders cancels fixed stop orders while a trailing stop is
// working. It is a no-op unless both kinds coexist.
func (c *Controller) ManageStopOrders(ctx context.Context, sess exchange.Session) (int, error) {
	orders, err := sess.ListOpenOrders(ctx, c.cfg.Symbol)
	if err != nil {
		return 0, err
	}
	return c.cancelFixedStops(ctx, sess, orders)
}

func (c *Controller) cancelFixedStops(ctx context.Context, sess exchange.Session, orders []exchange.OpenOrder) (int, error) {
	if !exchange.HasTrailingStop(orders) {
		return 0, nil
	}
	cancelled := 0
	for _, o := range orders {
		if !o.Type.IsFixedStop() {
			continue
		}
		if err := sess.CancelOrder(ctx, c.cfg.Symbol, o.OrderID); err != nil {
			c.record(ctx, eventlog.KindStopCancelFailed, "fixed stop not cancelled", errFields(err, map[string]any{"order_id": o.OrderID}))
			if isFatal(err) {
				return cancelled, err
			}
			continue
		}
		cancelled++
		c.journalOrder(ctx, eventlog.OrderEntry{
			Action:        model.OrderActionCancel,
			OrderID:       o.OrderID,
			ClientOrderID: o.ClientOrderID,
			Side:          string(o.Side),
			Type:          string(o.Type),
			Status:        "CANCELED",
			Quantity:      o.Quantity,
		})
		c.record(ctx, eventlog.KindStopCancelled, "fixed stop cancelled in favour of trailing stop", map[string]any{
			"order_id": o.OrderID,
			"type":     string(o.Type),
		})
	}
	return cancelled, nil
}

// filters loads lot filters; anything but a dead session degrades to nil.
func (c *Controller) filters(ctx context.Context, sess exchange.Session) (*sizing.Filters, error) {
	f, err := sess.Filters(ctx, c.cfg.Symbol)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		c.record(ctx, eventlog.KindSizing, "symbol filters unavailable, using fallback precision", errFields(err, map[string]any{
			"fallback_precision": sizing.DefaultPrecision,
		}))
		return nil, nil
	}
	return &f, nil
}

func entrySide(sig signal.Signal) exchange.Side {
	if sig == signal.Short {
		return exchange.SideSell
	}
	return exchange.SideBuy
}
