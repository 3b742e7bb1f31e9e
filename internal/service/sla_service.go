package service

import (
	"context"
	"fmt"
	"time"

	"furniture-orders/internal/models"
	"furniture-orders/internal/util"

	"go.uber.org/zap"
)

// SlaStore persists the global SLA thresholds
type SlaStore interface {
	GetSlaDefaults(ctx context.Context) (*models.StatusSla, error)
	SaveSlaDefaults(ctx context.Context, sla *models.StatusSla) error
	HasSlaDefaults(ctx context.Context) (bool, error)
}

// SlaCache keeps a copy of the global thresholds close to the evaluator
type SlaCache interface {
	GetSlaDefaults(ctx context.Context) (*models.StatusSla, bool, error)
	SetSlaDefaults(ctx context.Context, sla *models.StatusSla, ttl time.Duration) error
	InvalidateSlaDefaults(ctx context.Context) error
}

// SlaProvider resolves the global thresholds used when an order has none
type SlaProvider interface {
	Defaults(ctx context.Context) (*models.StatusSla, error)
}

// SlaService manages the global SLA defaults
type SlaService struct {
	store  SlaStore
	cache  SlaCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewSlaService creates a new SLA service. cache may be nil.
func NewSlaService(store SlaStore, cache SlaCache, ttl time.Duration) *SlaService {
	return &SlaService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// Defaults returns the stored global thresholds, nil when none are configured.
// Cache failures are logged and fall through to the store.
func (s *SlaService) Defaults(ctx context.Context) (*models.StatusSla, error) {
	ctx, span := util.StartSpan(ctx, "SlaService.Defaults")
	defer span.End()

	if s.cache != nil {
		sla, found, err := s.cache.GetSlaDefaults(ctx)
		if err != nil {
			s.logger.Warn("SLA cache read failed", zap.Error(err))
		} else if found {
			util.SlaCacheLookupsTotal.WithLabelValues("hit").Inc()
			return sla, nil
		}
		util.SlaCacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	sla, err := s.store.GetSlaDefaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load SLA defaults: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetSlaDefaults(ctx, sla, s.ttl); err != nil {
			s.logger.Warn("SLA cache write failed", zap.Error(err))
		}
	}
	return sla, nil
}

// SetDefaults replaces the global thresholds
func (s *SlaService) SetDefaults(ctx context.Context, sla *models.StatusSla) (*models.StatusSla, error) {
	ctx, span := util.StartSpan(ctx, "SlaService.SetDefaults")
	defer span.End()

	if err := validateSla(sla); err != nil {
		return nil, err
	}

	normalized := sla.Normalize()
	if err := s.store.SaveSlaDefaults(ctx, normalized); err != nil {
		return nil, fmt.Errorf("failed to save SLA defaults: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSlaDefaults(ctx); err != nil {
			s.logger.Warn("SLA cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("SLA defaults updated")
	return normalized, nil
}

// Seed stores sla as the global defaults unless some are already stored
func (s *SlaService) Seed(ctx context.Context, sla *models.StatusSla) error {
	if sla.Normalize() == nil {
		return nil
	}

	exists, err := s.store.HasSlaDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to check SLA defaults: %w", err)
	}
	if exists {
		s.logger.Info("SLA defaults already stored, skipping seed")
		return nil
	}

	if _, err := s.SetDefaults(ctx, sla); err != nil {
		return err
	}
	s.logger.Info("SLA defaults seeded from file")
	return nil
}
