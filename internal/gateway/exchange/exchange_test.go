package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

func TestOrderHelpers(t *testing.T) {
	orders := []OpenOrder{
		{OrderID: 1, Type: OrderTypeStopMarket},
		{OrderID: 2, Type: "trailing_stop_market"},
		{OrderID: 3, Type: OrderTypeMarket},
	}
	assert.True(t, HasTrailingStop(orders))
	assert.False(t, HasTrailingStop(orders[:1]))
	stops := FindByType(orders, OrderTypeStopMarket)
	assert.Len(t, stops, 1)
	assert.Equal(t, int64(1), stops[0].OrderID)
	assert.True(t, OrderTypeStopMarket.IsFixedStop())
	assert.False(t, OrderTypeTrailingStop.IsFixedStop())
}

func TestPositionAndAck(t *testing.T) {
	p := Position{Amount: -5}
	assert.True(t, p.IsOpen())
	assert.Equal(t, 5.0, p.AbsAmount())
	assert.False(t, Position{}.IsOpen())

	assert.Equal(t, 2.0, OrderAck{OrigQuantity: 3, ExecutedQuantity: 2}.FilledQuantity())
	assert.Equal(t, 3.0, OrderAck{OrigQuantity: 3}.FilledQuantity())
}

func TestKindOf(t *testing.T) {
	fatal := &Error{Kind: KindFatalSession, Op: "list orders", Code: -2015, Err: errors.New("invalid key")}
	wrapped := fmt.Errorf("cycle: %w", fatal)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindFatalSession, kind)
	assert.True(t, IsKind(wrapped, KindFatalSession))
	assert.Contains(t, fatal.Error(), "code=-2015")

	kind, ok = KindOf(context.DeadlineExceeded)
	assert.True(t, ok)
	assert.Equal(t, KindTransient, kind)

	_, ok = KindOf(errors.New("boom"))
	assert.False(t, ok)
	assert.False(t, IsKind(nil, KindTransient))
	assert.Equal(t, "data_unavailable", KindDataUnavailable.String())
}
