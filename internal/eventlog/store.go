package eventlog

import (
	"context"
	"time"

	"trailbot/internal/store"
	"trailbot/internal/store/model"
)

// OrderEntry is one acknowledged submission or cancellation.
type OrderEntry struct {
	Time          time.Time
	Action        model.OrderAction
	Symbol        string
	OrderID       int64
	ClientOrderID string
	Side          string
	Type          string
	Status        string
	Quantity      float64
	Price         float64
	CallbackRate  float64
	Attempt       int
}

// OrderJournal keeps the history of orders the agent sent.
type OrderJournal interface {
	RecordOrder(ctx context.Context, entry OrderEntry) error
}

// StoreSink persists events and orders through a store.Store.
type StoreSink struct {
	store store.Store
}

func NewStoreSink(st store.Store) *StoreSink {
	return &StoreSink{store: st}
}

func (s *StoreSink) Record(ctx context.Context, evt Event) error {
	m := &model.EventModel{
		Kind:    evt.Kind,
		Symbol:  evt.Symbol,
		Message: evt.Message,
		Fields:  evt.FieldsJSON(),
	}
	if !evt.Time.IsZero() {
		m.CreatedAtUnix = evt.Time.UnixMilli()
	}
	return s.store.AppendEvent(ctx, m)
}

func (s *StoreSink) RecordOrder(ctx context.Context, entry OrderEntry) error {
	m := &model.OrderModel{
		Action:        entry.Action,
		Symbol:        entry.Symbol,
		OrderID:       entry.OrderID,
		ClientOrderID: entry.ClientOrderID,
		Side:          entry.Side,
		Type:          entry.Type,
		Status:        entry.Status,
		Quantity:      entry.Quantity,
		Price:         entry.Price,
		CallbackRate:  entry.CallbackRate,
		Attempt:       entry.Attempt,
	}
	if !entry.Time.IsZero() {
		m.CreatedAtUnix = entry.Time.UnixMilli()
	}
	return s.store.AppendOrder(ctx, m)
}

// Recent loads stored events newest first, decoded back into Events.
func (s *StoreSink) Recent(ctx context.Context, kind string, limit int) ([]Event, error) {
	models, err := s.store.ListEvents(ctx, time.Time{}, kind, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(models))
	for _, m := range models {
		out = append(out, FromModel(m))
	}
	return out, nil
}

// FromModel converts a stored row into an Event.
func FromModel(m model.EventModel) Event {
	return Event{
		Time:    time.UnixMilli(m.CreatedAtUnix).UTC(),
		Kind:    m.Kind,
		Symbol:  m.Symbol,
		Message: m.Message,
		Fields:  DecodeFields(m.Fields),
	}
}
