package lifecycle

import (
	"time"

	"furniture-orders/internal/models"
)

// ApplyStatus moves order to next and records it in the status history.
//
// Setting the current status again is a no-op. The ledger only grows when its
// last entry differs from next, so it never holds two consecutive entries
// with the same status. Timestamps never go backwards: a clock earlier than
// the last entry is clamped to that entry's time.
//
// It returns true when the order's status changed.
func ApplyStatus(order *models.Order, next models.Status, now time.Time) bool {
	if order.Status == next {
		return false
	}

	order.Status = next
	order.UpdatedAt = now

	last, ok := order.LastHistoryEntry()
	if ok && last.Status == next {
		return true
	}
	if ok && now.Before(last.Timestamp) {
		now = last.Timestamp
	}

	order.StatusHistory = append(order.StatusHistory, models.StatusHistoryEntry{
		Status:    next,
		Timestamp: now,
	})
	return true
}

// LastEnteredAt returns the time the order most recently entered its current status
func LastEnteredAt(order *models.Order) (time.Time, bool) {
	for i := len(order.StatusHistory) - 1; i >= 0; i-- {
		if order.StatusHistory[i].Status == order.Status {
			return order.StatusHistory[i].Timestamp, true
		}
	}
	return time.Time{}, false
}
