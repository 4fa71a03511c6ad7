package model

import "gorm.io/datatypes"

// EventModel maps to 'event_log' table.
type EventModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Kind          string         `gorm:"column:kind;index"`
	Symbol        string         `gorm:"column:symbol;index"`
	Message       string         `gorm:"column:message"`
	Fields        datatypes.JSON `gorm:"column:fields;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (EventModel) TableName() string { return "event_log" }

type OrderAction string

const (
	OrderActionEntry        OrderAction = "entry"
	OrderActionTrailingStop OrderAction = "trailing_stop"
	OrderActionCancel       OrderAction = "cancel"
)

// OrderModel maps to 'order_journal' table. One row per acknowledged
// submission or cancellation; rows are never updated.
type OrderModel struct {
	ID            int64       `gorm:"column:id;primaryKey"`
	Action        OrderAction `gorm:"column:action;index"`
	Symbol        string      `gorm:"column:symbol;index"`
	OrderID       int64       `gorm:"column:order_id;index"`
	ClientOrderID string      `gorm:"column:client_order_id"`
	Side          string      `gorm:"column:side"`
	Type          string      `gorm:"column:type"`
	Status        string      `gorm:"column:status"`
	Quantity      float64     `gorm:"column:quantity"`
	Price         float64     `gorm:"column:price"`
	CallbackRate  float64     `gorm:"column:callback_rate"`
	Attempt       int         `gorm:"column:attempt"`
	CreatedAtUnix int64       `gorm:"column:created_at;index"`
}

func (OrderModel) TableName() string { return "order_journal" }
