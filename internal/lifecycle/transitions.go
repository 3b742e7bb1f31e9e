// Package lifecycle holds the order status rules: the transition graph, the
// status-history ledger and the SLA aging evaluator. Everything here is pure;
// callers pass the current time in.
package lifecycle

import (
	"time"

	"furniture-orders/internal/models"
)

// transitions is the legal status graph. Backward edges are corrections.
var transitions = map[models.Status][]models.Status{
	models.StatusNew:           {models.StatusManufacturing},
	models.StatusManufacturing: {models.StatusNew, models.StatusDone},
	models.StatusDone:          {models.StatusManufacturing, models.StatusFinished},
	models.StatusFinished:      {models.StatusDone},
}

// Policy decides whether status changes outside the graph are accepted
type Policy int

const (
	// Permissive accepts any declared status, matching the historical server behavior.
	Permissive Policy = iota
	// Strict only accepts edges of the transition graph.
	Strict
)

// AllowedNextStates returns the statuses reachable from current in one step
func AllowedNextStates(current models.Status) []models.Status {
	next := transitions[current]
	out := make([]models.Status, len(next))
	copy(out, next)
	return out
}

// CanTransition checks if from -> to is an edge of the graph
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Allows reports whether the policy accepts from -> to.
// Re-applying the current status is always accepted since it is a no-op.
func (p Policy) Allows(from, to models.Status) bool {
	if from == to {
		return true
	}
	if p == Strict {
		return CanTransition(from, to)
	}
	return true
}

// NewOrder builds a freshly created order in status New with its first ledger entry
func NewOrder(orderID int64, items []models.LineItem, sla *models.StatusSla, now time.Time) *models.Order {
	return &models.Order{
		OrderID: orderID,
		Items:   items,
		Status:  models.StatusNew,
		StatusHistory: []models.StatusHistoryEntry{
			{Status: models.StatusNew, Timestamp: now},
		},
		StatusSla: sla.Normalize(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
