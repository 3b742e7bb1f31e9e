package lifecycle

import (
	"time"

	"furniture-orders/internal/models"
)

const day = 24 * time.Hour

// AgeDays is the number of whole days elapsed since t, rounded down
func AgeDays(t, now time.Time) int {
	elapsed := now.Sub(t)
	days := int(elapsed / day)
	if elapsed < 0 && elapsed%day != 0 {
		days--
	}
	return days
}

// SeverityFor classifies ageDays against resolved thresholds.
//
// Rules are checked red, orange, green in that order and an unset threshold
// skips its rule. Green and orange are not contiguous: an age in
// [greenDays, orangeDays) has no tier.
func SeverityFor(ageDays int, th models.SlaThresholds) models.Severity {
	if th.RedDays != nil && ageDays >= *th.RedDays {
		return models.SeverityRed
	}
	if th.OrangeDays != nil && ageDays >= *th.OrangeDays {
		return models.SeverityOrange
	}
	if th.GreenDays != nil && ageDays < *th.GreenDays {
		return models.SeverityGreen
	}
	return models.SeverityNone
}

// Severity computes the aging tier of an order in its current status.
// An order whose history never recorded the current status has no tier.
func Severity(order *models.Order, global *models.StatusSla, now time.Time) models.Severity {
	entered, ok := LastEnteredAt(order)
	if !ok {
		return models.SeverityNone
	}
	th := ResolveThresholds(order.Status, order.StatusSla, global)
	return SeverityFor(AgeDays(entered, now), th)
}

// IsOverdue reports whether the order has breached its red threshold
func IsOverdue(order *models.Order, global *models.StatusSla, now time.Time) bool {
	return Severity(order, global, now) == models.SeverityRed
}

// Summary aggregates orders for the dashboard
type Summary struct {
	Total      int                     `json:"total"`
	Overdue    int                     `json:"overdue"`
	ByStatus   map[models.Status]int   `json:"byStatus"`
	BySeverity map[models.Severity]int `json:"bySeverity"`
}

// Summarize counts orders per status and per severity tier
func Summarize(orders []models.Order, global *models.StatusSla, now time.Time) Summary {
	s := Summary{
		ByStatus:   make(map[models.Status]int, len(models.Statuses)),
		BySeverity: make(map[models.Severity]int, 4),
	}
	for _, status := range models.Statuses {
		s.ByStatus[status] = 0
	}
	for _, sev := range []models.Severity{models.SeverityNone, models.SeverityGreen, models.SeverityOrange, models.SeverityRed} {
		s.BySeverity[sev] = 0
	}

	for i := range orders {
		sev := Severity(&orders[i], global, now)
		s.Total++
		s.ByStatus[orders[i].Status]++
		s.BySeverity[sev]++
		if sev == models.SeverityRed {
			s.Overdue++
		}
	}
	return s
}
