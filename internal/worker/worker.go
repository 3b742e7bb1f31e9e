package worker

import (
	"context"

	"furniture-orders/internal/broker"
	"furniture-orders/internal/service"
	"furniture-orders/internal/util"

	"go.uber.org/zap"
)

// OrderEventWorker feeds order events to the status auditor
type OrderEventWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderEventWorker creates a new order event worker
func NewOrderEventWorker(consumer *broker.Consumer, auditor *service.StatusAuditor) *OrderEventWorker {
	return &OrderEventWorker{
		consumer:     consumer,
		eventHandler: newEventHandler(auditor),
		logger:       util.GetLogger(),
	}
}

func newEventHandler(auditor *service.StatusAuditor) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderCreated(auditor.HandleOrderCreated)
	eventHandler.OnOrderStatusChanged(auditor.HandleOrderStatusChanged)
	eventHandler.OnOrderDeleted(auditor.HandleOrderDeleted)

	return eventHandler
}

// Start consumes until ctx is cancelled
func (w *OrderEventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order event worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderEventWorker) Stop() error {
	w.logger.Info("Stopping order event worker")
	return w.consumer.Close()
}
