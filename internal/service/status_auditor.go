package service

import (
	"context"
	"fmt"

	"furniture-orders/internal/lifecycle"
	"furniture-orders/internal/models"
	"furniture-orders/internal/util"

	"go.uber.org/zap"
)

// ProcessedEventStore records which events were already handled
type ProcessedEventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// StatusAuditor consumes order events and flags status changes that left the
// transition graph. In permissive mode these are accepted by the API, so the
// auditor is where they become visible.
type StatusAuditor struct {
	store  ProcessedEventStore
	logger *zap.Logger
}

// NewStatusAuditor creates a new status auditor
func NewStatusAuditor(store ProcessedEventStore) *StatusAuditor {
	return &StatusAuditor{
		store:  store,
		logger: util.GetLogger(),
	}
}

// once runs handle unless eventID was already processed, then records it
func (a *StatusAuditor) once(ctx context.Context, base models.BaseEvent, handle func()) error {
	processed, err := a.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		a.logger.Debug("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	handle()
	util.EventsConsumedTotal.WithLabelValues(base.EventType).Inc()

	if err := a.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		a.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

// HandleOrderStatusChanged audits a status change
func (a *StatusAuditor) HandleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "StatusAuditor.HandleOrderStatusChanged")
	defer span.End()

	return a.once(ctx, event.BaseEvent, func() {
		// re-check against the graph; the producer may run an older rule set
		if lifecycle.CanTransition(event.FromStatus, event.ToStatus) {
			return
		}
		util.IllegalTransitionsTotal.WithLabelValues(string(event.FromStatus), string(event.ToStatus)).Inc()
		a.logger.Warn("Order status changed outside the transition graph",
			zap.Int64("order_id", event.OrderID),
			zap.String("from", string(event.FromStatus)),
			zap.String("to", string(event.ToStatus)),
			zap.Int64("version", event.Version))
	})
}

// HandleOrderCreated records a creation
func (a *StatusAuditor) HandleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return a.once(ctx, event.BaseEvent, func() {
		a.logger.Debug("Order created event",
			zap.Int64("order_id", event.OrderID),
			zap.Int("items", event.ItemCount))
	})
}

// HandleOrderDeleted records a deletion
func (a *StatusAuditor) HandleOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error {
	return a.once(ctx, event.BaseEvent, func() {
		a.logger.Info("Order deleted event", zap.Int64("order_id", event.OrderID))
	})
}
