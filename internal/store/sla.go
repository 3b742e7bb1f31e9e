package store

import (
	"context"
	"fmt"

	"furniture-orders/internal/models"
)

type slaRow struct {
	Status     string `db:"status"`
	GreenDays  *int   `db:"green_days"`
	OrangeDays *int   `db:"orange_days"`
	RedDays    *int   `db:"red_days"`
}

// GetSlaDefaults loads the global thresholds. It returns nil when none are stored.
func (s *Store) GetSlaDefaults(ctx context.Context) (*models.StatusSla, error) {
	var rows []slaRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, green_days, orange_days, red_days FROM sla_defaults")
	if err != nil {
		return nil, err
	}

	sla := &models.StatusSla{}
	for _, r := range rows {
		sla.Set(models.Status(r.Status), &models.SlaThresholds{
			GreenDays:  r.GreenDays,
			OrangeDays: r.OrangeDays,
			RedDays:    r.RedDays,
		})
	}
	return sla.Normalize(), nil
}

// SaveSlaDefaults replaces the global thresholds
func (s *Store) SaveSlaDefaults(ctx context.Context, sla *models.StatusSla) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sla_defaults"); err != nil {
		return err
	}

	normalized := sla.Normalize()
	for _, status := range models.SlaStatuses {
		th := normalized.For(status)
		if th == nil {
			continue
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO sla_defaults (status, green_days, orange_days, red_days) VALUES ($1, $2, $3, $4)",
			status, th.GreenDays, th.OrangeDays, th.RedDays)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// HasSlaDefaults reports whether any global threshold row exists
func (s *Store) HasSlaDefaults(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM sla_defaults)")
	return exists, err
}
