package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"furniture-orders/internal/apperrors"
	"furniture-orders/internal/models"

	"github.com/jmoiron/sqlx/types"
)

const orderColumns = "order_id, status, items, status_history, status_sla, version, created_at, updated_at"

type orderRow struct {
	OrderID       int64              `db:"order_id"`
	Status        string             `db:"status"`
	Items         types.JSONText     `db:"items"`
	StatusHistory types.JSONText     `db:"status_history"`
	StatusSla     types.NullJSONText `db:"status_sla"`
	Version       int64              `db:"version"`
	CreatedAt     time.Time          `db:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at"`
}

func (r *orderRow) toModel() (models.Order, error) {
	order := models.Order{
		OrderID:   r.OrderID,
		Status:    models.Status(r.Status),
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := r.Items.Unmarshal(&order.Items); err != nil {
		return order, fmt.Errorf("failed to decode items of order %d: %w", r.OrderID, err)
	}
	if err := r.StatusHistory.Unmarshal(&order.StatusHistory); err != nil {
		return order, fmt.Errorf("failed to decode status history of order %d: %w", r.OrderID, err)
	}
	if r.StatusSla.Valid {
		var sla models.StatusSla
		if err := r.StatusSla.Unmarshal(&sla); err != nil {
			return order, fmt.Errorf("failed to decode SLA of order %d: %w", r.OrderID, err)
		}
		order.StatusSla = sla.Normalize()
	}
	if order.Items == nil {
		order.Items = []models.LineItem{}
	}
	if order.StatusHistory == nil {
		order.StatusHistory = []models.StatusHistoryEntry{}
	}
	return order, nil
}

// encodeOrder produces the JSONB column values of an order
func encodeOrder(order *models.Order) (items, history types.JSONText, sla types.NullJSONText, err error) {
	lineItems := order.Items
	if lineItems == nil {
		lineItems = []models.LineItem{}
	}
	if items, err = json.Marshal(lineItems); err != nil {
		return nil, nil, sla, fmt.Errorf("failed to encode items: %w", err)
	}
	if history, err = json.Marshal(order.StatusHistory); err != nil {
		return nil, nil, sla, fmt.Errorf("failed to encode status history: %w", err)
	}
	if normalized := order.StatusSla.Normalize(); normalized != nil {
		raw, err := json.Marshal(normalized)
		if err != nil {
			return nil, nil, sla, fmt.Errorf("failed to encode SLA: %w", err)
		}
		sla = types.NullJSONText{JSONText: raw, Valid: true}
	}
	return items, history, sla, nil
}

func orderNotFound(orderID int64) error {
	return &apperrors.NotFoundError{
		Resource: "Order",
		ID:       fmt.Sprint(orderID),
		Message:  "Order not found",
	}
}

// CreateOrder inserts a new order. A taken orderId is reported as a validation error.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	items, history, sla, err := encodeOrder(order)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (order_id, status, items, status_history, status_sla, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(ctx, query,
		order.OrderID, order.Status, items, history, sla, order.Version, order.CreatedAt, order.UpdatedAt)
	if isUniqueViolation(err) {
		return apperrors.Validation("orderId", "duplicate order id")
	}
	return err
}

// GetOrder retrieves an order by its business id
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, "SELECT "+orderColumns+" FROM orders WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, orderNotFound(orderID)
	}
	if err != nil {
		return nil, err
	}

	order, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves every order
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+orderColumns+" FROM orders ORDER BY order_id"); err != nil {
		return nil, err
	}
	return ordersFromRows(rows)
}

// ListOrdersByStatus retrieves orders currently in status
func (s *Store) ListOrdersByStatus(ctx context.Context, status models.Status) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 ORDER BY order_id", status)
	if err != nil {
		return nil, err
	}
	return ordersFromRows(rows)
}

func ordersFromRows(rows []orderRow) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateOrder persists the mutable fields of order and bumps its version.
//
// When expectedVersion is set the write only happens if the stored version
// still matches; otherwise the last write wins. On success order.Version and
// order.UpdatedAt reflect the stored row.
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order, expectedVersion *int64) error {
	items, history, sla, err := encodeOrder(order)
	if err != nil {
		return err
	}

	var expected interface{}
	if expectedVersion != nil {
		expected = *expectedVersion
	}

	query := `
		UPDATE orders
		SET status = $1, items = $2, status_history = $3, status_sla = $4,
			version = version + 1, updated_at = $5
		WHERE order_id = $6 AND ($7::BIGINT IS NULL OR version = $7)
		RETURNING version`

	err = s.db.GetContext(ctx, &order.Version, query,
		order.Status, items, history, sla, order.UpdatedAt, order.OrderID, expected)
	if err != sql.ErrNoRows {
		return err
	}

	exists, err := s.OrderExists(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if !exists {
		return orderNotFound(order.OrderID)
	}
	return &apperrors.ConflictError{
		Message: fmt.Sprintf("Order %d was modified concurrently (expected version %d)", order.OrderID, *expectedVersion),
	}
}

// DeleteOrder removes an order
func (s *Store) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE order_id = $1", orderID)
	if err != nil {
		return err
	}
	return expectAffected(res, orderNotFound(orderID))
}

// OrderExists checks whether an order id is taken
func (s *Store) OrderExists(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM orders WHERE order_id = $1)", orderID)
	return exists, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var event models.ProcessedEvent
	err := s.db.GetContext(ctx, &event,
		"SELECT event_id, event_type, processed_at FROM processed_events WHERE event_id = $1", eventID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
