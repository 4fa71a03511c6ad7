package eventlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"trailbot/internal/logger"
)

const defaultWriteTimeout = 2 * time.Second

// Recorder fans an event out to every sink and mirrors it to the logger.
// Each sink write is bounded by the write timeout; a failing sink never
// prevents the others from receiving the event.
type Recorder struct {
	sinks   []Sink
	timeout time.Duration
	symbol  string
	now     func() time.Time
}

func NewRecorder(symbol string, timeout time.Duration, sinks ...Sink) *Recorder {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Recorder{
		sinks:   kept,
		timeout: timeout,
		symbol:  strings.ToUpper(strings.TrimSpace(symbol)),
		now:     time.Now,
	}
}

func (r *Recorder) Record(ctx context.Context, evt Event) error {
	if evt.Time.IsZero() {
		evt.Time = r.now()
	}
	if evt.Symbol == "" {
		evt.Symbol = r.symbol
	}
	logger.Event(evt.Kind, evt.Message, evt.Fields)

	var errs []error
	for _, s := range r.sinks {
		// audit writes must land even while the loop is shutting down
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		if err := s.Record(wctx, evt); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if err := errors.Join(errs...); err != nil {
		logger.Errorf("[eventlog] write %s failed: %v", evt.Kind, err)
		return err
	}
	return nil
}

// Emit records a new event and only logs sink failures.
func (r *Recorder) Emit(ctx context.Context, kind, message string, fields map[string]any) {
	_ = r.Record(ctx, Event{Kind: kind, Message: message, Fields: fields})
}
