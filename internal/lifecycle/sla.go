package lifecycle

import "furniture-orders/internal/models"

// FallbackSla are the thresholds used when neither the order nor the global
// defaults configure a field.
var FallbackSla = models.StatusSla{
	New:           &models.SlaThresholds{GreenDays: models.Days(1), OrangeDays: models.Days(3), RedDays: models.Days(7)},
	Manufacturing: &models.SlaThresholds{GreenDays: models.Days(1), OrangeDays: models.Days(45), RedDays: models.Days(50)},
	Done:          &models.SlaThresholds{GreenDays: models.Days(1), OrangeDays: models.Days(10), RedDays: models.Days(15)},
}

// ResolveThresholds picks each field independently: the per-order value wins,
// then the global default, then the fallback constant.
func ResolveThresholds(status models.Status, perOrder, global *models.StatusSla) models.SlaThresholds {
	return overlay(perOrder.For(status), global.For(status), FallbackSla.For(status))
}

// EffectiveSla resolves every aging status, for display next to an order
func EffectiveSla(perOrder, global *models.StatusSla) models.StatusSla {
	var out models.StatusSla
	for _, status := range models.SlaStatuses {
		th := ResolveThresholds(status, perOrder, global)
		out.Set(status, &th)
	}
	return out
}

func overlay(layers ...*models.SlaThresholds) models.SlaThresholds {
	var out models.SlaThresholds
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if out.GreenDays == nil {
			out.GreenDays = copyInt(layer.GreenDays)
		}
		if out.OrangeDays == nil {
			out.OrangeDays = copyInt(layer.OrangeDays)
		}
		if out.RedDays == nil {
			out.RedDays = copyInt(layer.RedDays)
		}
	}
	return out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
