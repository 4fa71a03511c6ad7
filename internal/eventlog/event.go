// Package eventlog records the agent's audit trail. Every decision, order
// and failure becomes one Event fanned out to the configured sinks.
package eventlog

import (
	"context"
	"encoding/json"
	"time"
)

// Event kinds written by the trading loop.
const (
	KindStartup           = "startup"
	KindShutdown          = "shutdown"
	KindCycle             = "cycle"
	KindSignal            = "signal"
	KindNoSignal          = "no_signal"
	KindDataUnavailable   = "data_unavailable"
	KindSizing            = "sizing"
	KindNotActionable     = "not_actionable"
	KindEntry             = "entry"
	KindEntryFailed       = "entry_failed"
	KindProtectionPlaced  = "protection_placed"
	KindProtectionRetry   = "protection_retry"
	KindProtectionFailed  = "protection_failed"
	KindProtectionPresent = "protection_present"
	KindStopCancelled     = "stop_cancelled"
	KindStopCancelFailed  = "stop_cancel_failed"
	KindLeverage          = "leverage"
	KindLeverageFailed    = "leverage_failed"
	KindCycleError        = "cycle_error"
	KindReconnect         = "reconnect"
	KindReconnectFailed   = "reconnect_failed"
	KindConfigReload      = "config_reload"
)

// Event is one audit record. Fields must be JSON-encodable.
type Event struct {
	Time    time.Time      `json:"time"`
	Kind    string         `json:"kind"`
	Symbol  string         `json:"symbol,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// FieldsJSON encodes Fields, returning "{}" when empty or unencodable.
func (e Event) FieldsJSON() []byte {
	if len(e.Fields) == 0 {
		return []byte("{}")
	}
	raw, err := json.Marshal(e.Fields)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

// Failed reports whether the event carries an error field.
func (e Event) Failed() bool {
	_, ok := e.Fields["error"]
	return ok
}

// Sink is a durable, append-only destination for events.
type Sink interface {
	Record(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, evt Event) error

func (f SinkFunc) Record(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
