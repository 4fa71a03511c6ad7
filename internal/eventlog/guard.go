package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trailbot/internal/pkg/circuit"
)

// ErrSinkSuspended is returned while a guarded sink's breaker is open.
var ErrSinkSuspended = errors.New("eventlog: sink suspended after repeated failures")

// GuardedSink stops calling a sink that keeps failing, so a stuck disk or
// database does not cost every event its full write timeout.
type GuardedSink struct {
	name    string
	sink    Sink
	breaker *circuit.Breaker
}

func NewGuardedSink(name string, sink Sink, threshold int, cooldown time.Duration) *GuardedSink {
	return &GuardedSink{
		name:    name,
		sink:    sink,
		breaker: circuit.New("eventlog."+name, threshold, cooldown),
	}
}

func (g *GuardedSink) Record(ctx context.Context, evt Event) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%s: %w", g.name, ErrSinkSuspended)
	}
	if err := g.sink.Record(ctx, evt); err != nil {
		g.breaker.RecordFailure()
		return fmt.Errorf("%s: %w", g.name, err)
	}
	g.breaker.RecordSuccess()
	return nil
}

func (g *GuardedSink) State() circuit.State {
	return g.breaker.State()
}

// Breaker exposes the breaker for clock injection in tests.
func (g *GuardedSink) Breaker() *circuit.Breaker {
	return g.breaker
}
