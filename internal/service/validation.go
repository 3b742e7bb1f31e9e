package service

import (
	"context"
	"strings"

	"furniture-orders/internal/apperrors"
	"furniture-orders/internal/models"
	"furniture-orders/internal/util"
)

// validateItems checks every line item against the catalog and returns the
// items rewritten to reference the product's storage id.
//
// It stops at the first failing item: a missing product is a NotFoundError,
// a selection outside the product's allowed options is a ValidationError.
func (s *OrderService) validateItems(ctx context.Context, items []models.LineItem) ([]models.LineItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.validateItems")
	defer span.End()

	if len(items) == 0 {
		return nil, apperrors.Validation("items", "An order needs at least one item")
	}

	validated := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 {
			return nil, apperrors.Validation("productId", "productId must be a positive integer")
		}

		product, err := s.catalog.GetProductByProductID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		selections := item.Selections.Normalize()
		for _, c := range models.Categories {
			if bad := selections.Difference(product.AllowedOptions, c); len(bad) > 0 {
				return nil, apperrors.Validation(string(c), "Invalid %s IDs for product %d: %s",
					c, item.ProductID, strings.Join(bad, ","))
			}
		}

		supplierID := item.SupplierID
		if supplierID == "" {
			supplierID = product.SupplierID
		}

		validated = append(validated, models.LineItem{
			ProductRef: product.ID,
			ProductID:  product.ProductID,
			SupplierID: supplierID,
			Selections: selections,
		})
	}

	return validated, nil
}

// validateSla rejects negative day counts. Nil and partially filled tables are fine.
func validateSla(sla *models.StatusSla) error {
	for _, status := range models.SlaStatuses {
		th := sla.For(status)
		if th == nil {
			continue
		}
		for field, v := range map[string]*int{
			"greenDays":  th.GreenDays,
			"orangeDays": th.OrangeDays,
			"redDays":    th.RedDays,
		} {
			if v != nil && *v < 0 {
				return apperrors.Validation("statusSla", "statusSla.%s.%s must not be negative", status, field)
			}
		}
	}
	return nil
}
