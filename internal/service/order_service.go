package service

import (
	"context"
	"fmt"
	"time"

	"furniture-orders/internal/apperrors"
	"furniture-orders/internal/lifecycle"
	"furniture-orders/internal/models"
	"furniture-orders/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderRepository persists orders
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListOrdersByStatus(ctx context.Context, status models.Status) ([]models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order, expectedVersion *int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

// IdempotencyStore remembers which order a create request produced
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (int64, bool, error)
	SetIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// EventPublisher announces order changes
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderUpdated(ctx context.Context, event *models.OrderUpdatedEvent) error
	PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error
}

const createLockTTL = 30 * time.Second

// OrderService handles order business logic
type OrderService struct {
	orders         OrderRepository
	catalog        CatalogStore
	sla            SlaProvider
	idempotency    IdempotencyStore
	eventPublisher EventPublisher
	policy         lifecycle.Policy
	idempotencyTTL time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// NewOrderService creates a new order service. idempotency and
// eventPublisher may be nil.
func NewOrderService(
	orders OrderRepository,
	catalog CatalogStore,
	sla SlaProvider,
	idempotency IdempotencyStore,
	eventPublisher EventPublisher,
	policy lifecycle.Policy,
	idempotencyTTL time.Duration,
) *OrderService {
	return &OrderService{
		orders:         orders,
		catalog:        catalog,
		sla:            sla,
		idempotency:    idempotency,
		eventPublisher: eventPublisher,
		policy:         policy,
		idempotencyTTL: idempotencyTTL,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	OrderID        int64             `json:"orderId"`
	Items          []models.LineItem `json:"items"`
	StatusSla      *models.StatusSla `json:"statusSla,omitempty"`
	IdempotencyKey string            `json:"-"`
}

// UpdateOrderRequest carries the fields to merge into an order. Absent fields
// are left untouched; a statusSla of {} clears the per-order thresholds.
type UpdateOrderRequest struct {
	Status          *models.Status     `json:"status,omitempty"`
	Items           *[]models.LineItem `json:"items,omitempty"`
	StatusSla       *models.StatusSla  `json:"statusSla,omitempty"`
	ExpectedVersion *int64             `json:"expectedVersion,omitempty"`
}

// CreateOrder validates the items and stores a new order in status New
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.IdempotencyKey != "" && s.idempotency != nil {
		existing, err := s.replay(ctx, req.IdempotencyKey)
		if err != nil || existing != nil {
			return existing, err
		}

		lockKey := "order-create:" + req.IdempotencyKey
		acquired, err := s.idempotency.AcquireLock(ctx, lockKey, createLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire idempotency lock: %w", err)
		}
		if !acquired {
			return nil, &apperrors.ConflictError{Message: "A request with this Idempotency-Key is already in progress"}
		}
		defer s.releaseLock(ctx, lockKey)

		// the request holding the lock before us may have finished in between
		existing, err = s.replay(ctx, req.IdempotencyKey)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	if req.OrderID <= 0 {
		util.OrdersRejectedTotal.WithLabelValues("invalid_order_id").Inc()
		return nil, apperrors.Validation("orderId", "orderId must be a positive integer")
	}
	if err := validateSla(req.StatusSla); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("invalid_sla").Inc()
		return nil, err
	}

	items, err := s.validateItems(ctx, req.Items)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	order := lifecycle.NewOrder(req.OrderID, items, req.StatusSla, s.now())

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if apperrors.IsValidation(err) {
			util.OrdersRejectedTotal.WithLabelValues("duplicate_order_id").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.OrderID),
		zap.Int("items", len(order.Items)))

	if req.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.SetIdempotencyKey(ctx, req.IdempotencyKey, order.OrderID, s.idempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	productIDs := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	s.publish(ctx, "OrderCreated", func(p EventPublisher) error {
		return p.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCreated, order.CreatedAt),
			OrderID:   order.OrderID,
			Status:    order.Status,
			ItemCount: len(order.Items),
			Products:  productIDs,
		})
	})

	return order, nil
}

// releaseLock frees the create lock even when the client has gone away
func (s *OrderService) releaseLock(ctx context.Context, lockKey string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.idempotency.ReleaseLock(ctx, lockKey); err != nil {
		s.logger.Warn("Failed to release idempotency lock", zap.Error(err))
	}
}

// replay returns the order an earlier request with the same key created
func (s *OrderService) replay(ctx context.Context, key string) (*models.Order, error) {
	orderID, found, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if !found {
		return nil, nil
	}

	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", orderID))

	order, err := s.orders.GetOrder(ctx, orderID)
	if apperrors.IsNotFound(err) {
		// deleted since; treat the key as fresh
		return nil, nil
	}
	return order, err
}

// GetOrder retrieves a populated order
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	views, err := s.buildViews(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListOrders retrieves every order, populated
func (s *OrderService) ListOrders(ctx context.Context) ([]OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, orders)
}

// ListOrdersByStatus retrieves the orders currently in status
func (s *OrderService) ListOrdersByStatus(ctx context.Context, status string) ([]OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrdersByStatus")
	defer span.End()

	st := models.Status(status)
	if !st.IsValid() {
		return nil, apperrors.Validation("status", "Invalid status")
	}

	orders, err := s.orders.ListOrdersByStatus(ctx, st)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, orders)
}

// GetStatusHistory returns the status ledger of an order
func (s *OrderService) GetStatusHistory(ctx context.Context, orderID int64) (*StatusHistoryResponse, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusHistoryResponse{OrderID: order.OrderID, StatusHistory: order.StatusHistory}, nil
}

// GetTransitions returns the statuses an order may legally move to next
func (s *OrderService) GetTransitions(ctx context.Context, orderID int64) (*TransitionsResponse, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &TransitionsResponse{
		OrderID:           order.OrderID,
		Status:            order.Status,
		AllowedNextStates: lifecycle.AllowedNextStates(order.Status),
	}, nil
}

// UpdateOrder merges the given fields into an order and saves it.
// Replacement items go through the same validation as on create.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, req *UpdateOrderRequest) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status

	if req.Status != nil {
		if !req.Status.IsValid() {
			util.OrdersRejectedTotal.WithLabelValues("invalid_status").Inc()
			return nil, apperrors.Validation("status", "Invalid status")
		}
		if !s.policy.Allows(from, *req.Status) {
			util.OrdersRejectedTotal.WithLabelValues("illegal_transition").Inc()
			return nil, &apperrors.InvalidTransitionError{From: from, To: *req.Status}
		}
	}

	itemsChanged := false
	if req.Items != nil {
		items, err := s.validateItems(ctx, *req.Items)
		if err != nil {
			util.OrdersRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
			return nil, err
		}
		order.Items = items
		itemsChanged = true
	}

	slaChanged := false
	if req.StatusSla != nil {
		if err := validateSla(req.StatusSla); err != nil {
			util.OrdersRejectedTotal.WithLabelValues("invalid_sla").Inc()
			return nil, err
		}
		order.StatusSla = req.StatusSla.Normalize()
		slaChanged = true
	}

	now := s.now()
	order.UpdatedAt = now
	statusChanged := false
	if req.Status != nil {
		statusChanged = lifecycle.ApplyStatus(order, *req.Status, now)
	}

	if err := s.orders.UpdateOrder(ctx, order, req.ExpectedVersion); err != nil {
		if apperrors.IsConflict(err) {
			util.OrderVersionConflictsTotal.Inc()
		}
		return nil, err
	}

	if statusChanged {
		legal := lifecycle.CanTransition(from, order.Status)
		util.OrderStatusChangesTotal.WithLabelValues(string(from), string(order.Status)).Inc()
		s.logger.Info("Order status changed",
			zap.Int64("order_id", order.OrderID),
			zap.String("from", string(from)),
			zap.String("to", string(order.Status)),
			zap.Bool("legal", legal))

		s.publish(ctx, "OrderStatusChanged", func(p EventPublisher) error {
			return p.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
				BaseEvent:  newBaseEvent(models.EventTypeOrderStatusChanged, now),
				OrderID:    order.OrderID,
				FromStatus: from,
				ToStatus:   order.Status,
				Legal:      legal,
				Version:    order.Version,
			})
		})
	}
	if itemsChanged || slaChanged {
		s.publish(ctx, "OrderUpdated", func(p EventPublisher) error {
			return p.PublishOrderUpdated(ctx, &models.OrderUpdatedEvent{
				BaseEvent:    newBaseEvent(models.EventTypeOrderUpdated, now),
				OrderID:      order.OrderID,
				ItemsChanged: itemsChanged,
				SlaChanged:   slaChanged,
				Version:      order.Version,
			})
		})
	}

	views, err := s.buildViews(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ApplyStatus moves an order to status, recording it in the ledger
func (s *OrderService) ApplyStatus(ctx context.Context, orderID int64, status models.Status, expectedVersion *int64) (*OrderView, error) {
	return s.UpdateOrder(ctx, orderID, &UpdateOrderRequest{
		Status:          &status,
		ExpectedVersion: expectedVersion,
	})
}

// DeleteOrder removes an order unconditionally
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	if err := s.orders.DeleteOrder(ctx, orderID); err != nil {
		return err
	}

	util.OrdersDeletedTotal.Inc()
	s.logger.Info("Order deleted", zap.Int64("order_id", orderID))

	s.publish(ctx, "OrderDeleted", func(p EventPublisher) error {
		return p.PublishOrderDeleted(ctx, &models.OrderDeletedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderDeleted, s.now()),
			OrderID:   orderID,
		})
	})
	return nil
}

// Dashboard counts orders per status and aging tier
func (s *OrderService) Dashboard(ctx context.Context) (*lifecycle.Summary, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Dashboard")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	global, err := s.sla.Defaults(ctx)
	if err != nil {
		return nil, err
	}

	summary := lifecycle.Summarize(orders, global, s.now())

	for sev, n := range summary.BySeverity {
		util.OrdersBySeverity.WithLabelValues(string(sev)).Set(float64(n))
	}
	util.OrdersOverdue.Set(float64(summary.Overdue))

	return &summary, nil
}

// publish sends an event, logging failures; the write it describes already happened
func (s *OrderService) publish(ctx context.Context, name string, send func(EventPublisher) error) {
	if s.eventPublisher == nil {
		return
	}
	if err := send(s.eventPublisher); err != nil {
		util.LoggerFromContext(ctx).Error("Failed to publish event",
			zap.String("event", name),
			zap.Error(err))
	}
}

func newBaseEvent(eventType string, at time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: at,
	}
}

func rejectReason(err error) string {
	switch {
	case apperrors.IsNotFound(err):
		return "product_not_found"
	case apperrors.IsValidation(err):
		return "invalid_items"
	default:
		return "catalog_error"
	}
}
