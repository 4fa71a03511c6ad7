package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies gateway failures by how the trading loop reacts to them.
type Kind int

const (
	// KindTransient covers rate limits, timeouts and temporary order rejects.
	KindTransient Kind = iota
	// KindConfiguration covers bad symbols, rejected leverage and invalid parameters.
	KindConfiguration
	// KindFatalSession means the session can no longer be used and must be rebuilt.
	KindFatalSession
	// KindDataUnavailable means market data could not be fetched.
	KindDataUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConfiguration:
		return "configuration"
	case KindFatalSession:
		return "fatal_session"
	case KindDataUnavailable:
		return "data_unavailable"
	default:
		return "unknown"
	}
}

var ErrFiltersUnavailable = errors.New("exchange: symbol filters unavailable")

// Error is a classified gateway failure.
type Error struct {
	Kind Kind
	Op   string
	Code int64
	Err  error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code=%d): %v", e.Op, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification of err. Unclassified network and
// timeout errors count as transient; anything else is reported with ok=false.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return KindTransient, false
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient, true
	}
	return KindTransient, false
}

// IsKind reports whether err is classified as k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
