package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderUpdated       = "ORDER_UPDATED"
	EventTypeOrderDeleted       = "ORDER_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID   int64   `json:"order_id"`
	Status    Status  `json:"status"`
	ItemCount int     `json:"item_count"`
	Products  []int64 `json:"products"`
}

// OrderStatusChangedEvent published when an order moves to a different status
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	FromStatus Status `json:"from_status"`
	ToStatus   Status `json:"to_status"`
	Legal      bool   `json:"legal"`
	Version    int64  `json:"version"`
}

// OrderUpdatedEvent published when items or SLA of an order change
type OrderUpdatedEvent struct {
	BaseEvent
	OrderID      int64 `json:"order_id"`
	ItemsChanged bool  `json:"items_changed"`
	SlaChanged   bool  `json:"sla_changed"`
	Version      int64 `json:"version"`
}

// OrderDeletedEvent published when an order is removed
type OrderDeletedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}
