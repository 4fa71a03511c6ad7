// Package trader runs the single-symbol lifecycle loop: read candles, derive
// the crossover signal, then open, protect or tidy up the position.
//
// The controller keeps no position or order state between cycles. Each
// cycle re-reads the exchange and acts on what it reports.
package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"trailbot/internal/eventlog"
	"trailbot/internal/gateway/exchange"
	"trailbot/internal/logger"
	"trailbot/internal/scheduler"
)

var (
	ErrNoSession       = errors.New("trader: no exchange session")
	ErrDataUnavailable = errors.New("trader: market data unavailable")
)

// Recorder receives audit events.
type Recorder interface {
	Record(ctx context.Context, evt eventlog.Event) error
}

type Params struct {
	Settings Settings
	Dial     exchange.Dialer
	Events   Recorder
	// Journal is optional.
	Journal eventlog.OrderJournal
	// Tunables delivers live setting changes; nil disables hot reload.
	Tunables <-chan Tunables
	Status   *Tracker
	// ClientOrderID overrides the gateway's client id generator.
	ClientOrderID func() string
	Sleep         func(ctx context.Context, d time.Duration) bool
	Now           func() time.Time
}

type sessionBox struct {
	exchange.Session
}

// Controller owns the exchange session and drives the decision loop.
type Controller struct {
	cfg      Settings
	dial     exchange.Dialer
	events   Recorder
	journal  eventlog.OrderJournal
	tunables <-chan Tunables
	status   *Tracker
	clientID func() string
	sleep    func(ctx context.Context, d time.Duration) bool
	now      func() time.Time

	session    atomic.Pointer[sessionBox]
	generation atomic.Int64
}

func NewController(p Params) (*Controller, error) {
	if err := p.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("trader settings: %w", err)
	}
	if p.Dial == nil {
		return nil, fmt.Errorf("trader: dialer is required")
	}
	cfg := p.Settings
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	cfg.QuoteAsset = strings.ToUpper(strings.TrimSpace(cfg.QuoteAsset))
	c := &Controller{
		cfg:      cfg,
		dial:     p.Dial,
		events:   p.Events,
		journal:  p.Journal,
		tunables: p.Tunables,
		status:   p.Status,
		clientID: p.ClientOrderID,
		sleep:    p.Sleep,
		now:      p.Now,
	}
	if c.events == nil {
		c.events = eventlog.NewRecorder(cfg.Symbol, 0)
	}
	if c.status == nil {
		c.status = NewTracker(cfg.Symbol)
	}
	if c.sleep == nil {
		c.sleep = scheduler.Sleep
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.status.update(func(s *Status) { s.Tunables = cfg.Tunables })
	return c, nil
}

// Status exposes the tracker for read-only consumers.
func (c *Controller) Status() *Tracker {
	return c.status
}

// Settings returns the settings the loop currently uses.
func (c *Controller) Settings() Settings {
	return c.cfg
}

func (c *Controller) current() exchange.Session {
	box := c.session.Load()
	if box == nil {
		return nil
	}
	return box.Session
}

// swap installs next and closes the session it replaces.
func (c *Controller) swap(next exchange.Session) {
	old := c.session.Swap(&sessionBox{Session: next})
	gen := c.generation.Add(1)
	c.status.update(func(s *Status) {
		s.Connected = true
		s.Generation = int(gen)
	})
	if old != nil && old.Session != nil {
		if err := old.Close(); err != nil {
			logger.Warnf("[trader] closing replaced session failed: %v", err)
		}
	}
}

// Run connects, then cycles until ctx is cancelled. A failed cycle is
// recorded, followed by a reconnection (unless market data was simply
// missing) and the cooldown; the loop itself never gives up.
func (c *Controller) Run(ctx context.Context) error {
	c.record(ctx, eventlog.KindStartup, "agent starting", map[string]any{
		"symbol":   c.cfg.Symbol,
		"interval": c.cfg.Interval,
		"fast":     c.cfg.Indicator.FastPeriod,
		"slow":     c.cfg.Indicator.SlowPeriod,
		"leverage": c.cfg.Leverage,
	})
	defer c.record(ctx, eventlog.KindShutdown, "agent stopped", nil)

	if err := c.connect(ctx); err != nil {
		return err
	}
	defer func() {
		if sess := c.current(); sess != nil {
			_ = sess.Close()
		}
	}()

	for {
		c.applyTunables(ctx)
		_, err := c.RunCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := c.pollWait()
		if err != nil {
			wait = c.cfg.Cooldown
			c.handleCycleError(ctx, err)
		}
		if !c.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

// pollWait is the pause after a healthy cycle.
func (c *Controller) pollWait() time.Duration {
	if !c.cfg.AlignToClose {
		return c.cfg.PollInterval
	}
	a, _ := scheduler.NewAlignment(c.cfg.Interval, c.cfg.AlignOffset)
	_, _, wait := a.Next(c.now())
	return wait
}

// connect dials until a session is established or ctx ends.
func (c *Controller) connect(ctx context.Context) error {
	for {
		sess, err := c.dial(ctx)
		if err == nil {
			c.swap(sess)
			c.assertLeverage(ctx, sess)
			logger.Infof("[trader] session established symbol=%s generation=%d", c.cfg.Symbol, c.generation.Load())
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.record(ctx, eventlog.KindReconnectFailed, "initial connection failed", errFields(err, nil))
		if !c.sleep(ctx, c.cfg.Cooldown) {
			return ctx.Err()
		}
	}
}

func (c *Controller) handleCycleError(ctx context.Context, err error) {
	kind, _ := exchange.KindOf(err)
	c.status.update(func(s *Status) {
		s.Failures++
		s.LastError = err.Error()
	})
	c.record(ctx, eventlog.KindCycleError, "cycle failed", errFields(err, map[string]any{"kind": kind.String()}))
	if kind == exchange.KindDataUnavailable {
		return
	}
	_ = c.Reconnect(ctx)
}

// Reconnect replaces the session with a freshly dialed one and reasserts
// leverage. On dial failure the current session is kept.
func (c *Controller) Reconnect(ctx context.Context) error {
	sess, err := c.dial(ctx)
	if err != nil {
		c.record(ctx, eventlog.KindReconnectFailed, "reconnect failed, keeping current session", errFields(err, nil))
		return err
	}
	c.swap(sess)
	c.status.update(func(s *Status) { s.Reconnects++ })
	c.record(ctx, eventlog.KindReconnect, "session rebuilt", map[string]any{"generation": c.generation.Load()})
	c.assertLeverage(ctx, sess)
	return nil
}

func (c *Controller) assertLeverage(ctx context.Context, sess exchange.Session) {
	if err := sess.SetLeverage(ctx, c.cfg.Symbol, c.cfg.Leverage); err != nil {
		kind, _ := exchange.KindOf(err)
		c.status.update(func(s *Status) { s.Degraded = true })
		c.record(ctx, eventlog.KindLeverageFailed, "leverage not applied", errFields(err, map[string]any{
			"leverage": c.cfg.Leverage,
			"kind":     kind.String(),
		}))
		return
	}
	c.record(ctx, eventlog.KindLeverage, "leverage set", map[string]any{"leverage": c.cfg.Leverage})
}

func (c *Controller) applyTunables(ctx context.Context) {
	if c.tunables == nil {
		return
	}
	for {
		select {
		case t, ok := <-c.tunables:
			if !ok {
				c.tunables = nil
				return
			}
			if err := t.Validate(); err != nil {
				c.record(ctx, eventlog.KindConfigReload, "rejected tunables", errFields(err, nil))
				continue
			}
			prev := c.cfg.Tunables
			c.cfg.Tunables = t
			c.status.update(func(s *Status) { s.Tunables = t })
			c.record(ctx, eventlog.KindConfigReload, "tunables applied", map[string]any{
				"previous": prev,
				"current":  t,
			})
		default:
			return
		}
	}
}

func (c *Controller) record(ctx context.Context, kind, message string, fields map[string]any) {
	_ = c.events.Record(ctx, eventlog.Event{
		Time:    c.now(),
		Kind:    kind,
		Symbol:  c.cfg.Symbol,
		Message: message,
		Fields:  fields,
	})
}

func (c *Controller) journalOrder(ctx context.Context, entry eventlog.OrderEntry) {
	if c.journal == nil {
		return
	}
	entry.Time = c.now()
	entry.Symbol = c.cfg.Symbol
	if err := c.journal.RecordOrder(ctx, entry); err != nil {
		logger.Warnf("[trader] order journal write failed: %v", err)
	}
}

func (c *Controller) nextClientID() string {
	if c.clientID == nil {
		return ""
	}
	return c.clientID()
}

func errFields(err error, fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}
	if err != nil {
		fields["error"] = err.Error()
		var gwErr *exchange.Error
		if errors.As(err, &gwErr) && gwErr.Code != 0 {
			fields["code"] = gwErr.Code
		}
	}
	return fields
}

// isFatal reports errors that invalidate the session.
func isFatal(err error) bool {
	return exchange.IsKind(err, exchange.KindFatalSession)
}
