package store

import (
	"context"
	"time"

	"trailbot/internal/store/model"
)

// EventRepository persists the append-only audit trail.
type EventRepository interface {
	AppendEvent(ctx context.Context, evt *model.EventModel) error
	ListEvents(ctx context.Context, since time.Time, kind string, limit int) ([]model.EventModel, error)
}

// OrderRepository persists the order journal.
type OrderRepository interface {
	AppendOrder(ctx context.Context, order *model.OrderModel) error
	ListOrders(ctx context.Context, limit int) ([]model.OrderModel, error)
}

// Store is the entry point for database access.
type Store interface {
	EventRepository
	OrderRepository
	// Close closes the store connection.
	Close() error
}
