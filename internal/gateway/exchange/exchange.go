// Package exchange defines the narrow contracts the trading loop consumes.
// Implementations live under internal/gateway (binance); tests use fakes.
package exchange

import (
	"context"

	"trailbot/internal/market"
	"trailbot/internal/sizing"
)

// MarketDataFeed supplies recent candles, oldest first.
type MarketDataFeed interface {
	Candles(ctx context.Context, symbol, interval string, limit int) (market.Candles, error)
}

// PositionGateway reports account state. OpenPosition returns nil when flat.
type PositionGateway interface {
	OpenPosition(ctx context.Context, symbol string) (*Position, error)
	AvailableBalance(ctx context.Context, asset string) (float64, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

type OrderGateway interface {
	SubmitMarketOrder(ctx context.Context, req MarketOrder) (OrderAck, error)
	SubmitTrailingStop(ctx context.Context, req TrailingStopOrder) (OrderAck, error)
	ListOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
}

// SymbolMetadata returns lot filters or ErrFiltersUnavailable.
type SymbolMetadata interface {
	Filters(ctx context.Context, symbol string) (sizing.Filters, error)
}

// Session bundles every gateway behind one exchange connection. A session is
// never repaired in place: on failure the owner dials a new one and closes the old.
type Session interface {
	MarketDataFeed
	PositionGateway
	OrderGateway
	SymbolMetadata
	Close() error
}

// Dialer builds a fresh Session.
type Dialer func(ctx context.Context) (Session, error)
