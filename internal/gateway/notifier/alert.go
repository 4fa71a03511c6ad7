package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"trailbot/internal/eventlog"
	"trailbot/internal/logger"
)

const (
	defaultAlertQueue = 64
	drainTimeout      = 10 * time.Second
)

var criticalKinds = map[string]string{
	eventlog.KindStartup:          "🟢",
	eventlog.KindShutdown:         "⚪",
	eventlog.KindEntryFailed:      "🔴",
	eventlog.KindProtectionFailed: "🚨",
	eventlog.KindStopCancelFailed: "🟠",
	eventlog.KindLeverageFailed:   "🟠",
	eventlog.KindReconnectFailed:  "🔴",
	eventlog.KindCycleError:       "🟠",
}

var tradeKinds = map[string]string{
	eventlog.KindEntry:            "📈",
	eventlog.KindProtectionPlaced: "🛡",
	eventlog.KindStopCancelled:    "✂️",
	eventlog.KindReconnect:        "🔄",
}

// AlertSink forwards selected events to a notifier from a background
// worker. Record never blocks; events are dropped when the queue is full.
type AlertSink struct {
	notifier TextNotifier
	kinds    map[string]string
	queue    chan eventlog.Event
	dropped  atomic.Int64
	sent     atomic.Int64
}

func NewAlertSink(n TextNotifier, includeTrades bool, queueSize int) *AlertSink {
	if queueSize <= 0 {
		queueSize = defaultAlertQueue
	}
	kinds := make(map[string]string, len(criticalKinds)+len(tradeKinds))
	for k, v := range criticalKinds {
		kinds[k] = v
	}
	if includeTrades {
		for k, v := range tradeKinds {
			kinds[k] = v
		}
	}
	return &AlertSink{notifier: n, kinds: kinds, queue: make(chan eventlog.Event, queueSize)}
}

func (s *AlertSink) Record(_ context.Context, evt eventlog.Event) error {
	if _, ok := s.kinds[evt.Kind]; !ok {
		return nil
	}
	select {
	case s.queue <- evt:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Run sends queued alerts until ctx ends, then drains what is left within
// a bounded grace period.
func (s *AlertSink) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-s.queue:
			s.send(ctx, evt)
		case <-ctx.Done():
			s.drain()
			return nil
		}
	}
}

func (s *AlertSink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case evt := <-s.queue:
			s.send(ctx, evt)
		default:
			return
		}
	}
}

func (s *AlertSink) send(ctx context.Context, evt eventlog.Event) {
	msg := RenderEvent(evt, s.kinds[evt.Kind])
	if err := s.notifier.SendText(ctx, msg.RenderMarkdown()); err != nil {
		logger.Warnf("[notifier] alert %s not delivered: %v", evt.Kind, err)
		return
	}
	s.sent.Add(1)
}

func (s *AlertSink) Sent() int64    { return s.sent.Load() }
func (s *AlertSink) Dropped() int64 { return s.dropped.Load() }

// RenderEvent turns an audit event into a chat message.
func RenderEvent(evt eventlog.Event, icon string) StructuredMessage {
	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, evt.Fields[k]))
	}
	return StructuredMessage{
		Icon:      icon,
		Title:     fmt.Sprintf("%s %s", evt.Symbol, evt.Kind),
		Sections:  []MessageSection{{Title: evt.Message, Lines: lines}},
		Timestamp: evt.Time,
	}
}
