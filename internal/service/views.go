package service

import (
	"context"
	"time"

	"furniture-orders/internal/lifecycle"
	"furniture-orders/internal/models"
)

// LineItemView is a line item with its catalog references resolved.
// References that no longer resolve are left nil or skipped.
type LineItemView struct {
	Product   *models.Product  `json:"product"`
	ProductID int64            `json:"productId"`
	Supplier  *models.Supplier `json:"supplier"`
	Fabrics   []models.Option  `json:"fabrics"`
	Eshra     []models.Option  `json:"eshra"`
	Paintings []models.Option  `json:"paintings"`
	Marble    []models.Option  `json:"marble"`
	Glass     []models.Option  `json:"glass"`
}

func (v *LineItemView) setOptions(c models.Category, opts []models.Option) {
	switch c {
	case models.CategoryFabrics:
		v.Fabrics = opts
	case models.CategoryEshra:
		v.Eshra = opts
	case models.CategoryPaintings:
		v.Paintings = opts
	case models.CategoryMarble:
		v.Marble = opts
	case models.CategoryGlass:
		v.Glass = opts
	}
}

// OrderView is an order as returned to clients: populated items plus its aging state
type OrderView struct {
	OrderID           int64                       `json:"orderId"`
	Items             []LineItemView              `json:"items"`
	Status            models.Status               `json:"status"`
	StatusHistory     []models.StatusHistoryEntry `json:"statusHistory"`
	StatusSla         *models.StatusSla           `json:"statusSla,omitempty"`
	EffectiveSla      models.StatusSla            `json:"effectiveSla"`
	Severity          models.Severity             `json:"severity"`
	AgeDays           int                         `json:"ageDays"`
	Overdue           bool                        `json:"overdue"`
	AllowedNextStates []models.Status             `json:"allowedNextStates"`
	Version           int64                       `json:"version"`
	CreatedAt         time.Time                   `json:"createdAt"`
	UpdatedAt         time.Time                   `json:"updatedAt"`
}

// StatusHistoryResponse is the ledger of one order
type StatusHistoryResponse struct {
	OrderID       int64                       `json:"orderId"`
	StatusHistory []models.StatusHistoryEntry `json:"statusHistory"`
}

// TransitionsResponse lists the statuses an order may move to next
type TransitionsResponse struct {
	OrderID           int64           `json:"orderId"`
	Status            models.Status   `json:"status"`
	AllowedNextStates []models.Status `json:"allowedNextStates"`
}

// buildViews resolves catalog references for a batch of orders with one
// lookup per entity kind.
func (s *OrderService) buildViews(ctx context.Context, orders []models.Order) ([]OrderView, error) {
	var productRefs, supplierIDs, optionIDs []string
	for i := range orders {
		for _, item := range orders[i].Items {
			if item.ProductRef != "" {
				productRefs = append(productRefs, item.ProductRef)
			}
			if item.SupplierID != "" {
				supplierIDs = append(supplierIDs, item.SupplierID)
			}
			optionIDs = append(optionIDs, item.Selections.IDs()...)
		}
	}

	products, err := s.catalog.GetProductsByIDs(ctx, dedupe(productRefs))
	if err != nil {
		return nil, err
	}
	suppliers, err := s.catalog.GetSuppliersByIDs(ctx, dedupe(supplierIDs))
	if err != nil {
		return nil, err
	}
	options, err := s.catalog.GetOptionsByIDs(ctx, dedupe(optionIDs))
	if err != nil {
		return nil, err
	}

	productByID := make(map[string]*models.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}
	supplierByID := make(map[string]*models.Supplier, len(suppliers))
	for i := range suppliers {
		supplierByID[suppliers[i].ID] = &suppliers[i]
	}
	optionByID := make(map[string]models.Option, len(options))
	for _, o := range options {
		optionByID[o.ID] = o
	}

	global, err := s.sla.Defaults(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		order := &orders[i]

		items := make([]LineItemView, 0, len(order.Items))
		for _, item := range order.Items {
			v := LineItemView{
				Product:   productByID[item.ProductRef],
				ProductID: item.ProductID,
				Supplier:  supplierByID[item.SupplierID],
			}
			for _, c := range models.Categories {
				opts := []models.Option{}
				for _, id := range item.Selections.Get(c) {
					if o, ok := optionByID[id]; ok && o.Category == c {
						opts = append(opts, o)
					}
				}
				v.setOptions(c, opts)
			}
			items = append(items, v)
		}

		view := OrderView{
			OrderID:           order.OrderID,
			Items:             items,
			Status:            order.Status,
			StatusHistory:     order.StatusHistory,
			StatusSla:         order.StatusSla,
			EffectiveSla:      lifecycle.EffectiveSla(order.StatusSla, global),
			Severity:          lifecycle.Severity(order, global, now),
			AllowedNextStates: lifecycle.AllowedNextStates(order.Status),
			Version:           order.Version,
			CreatedAt:         order.CreatedAt,
			UpdatedAt:         order.UpdatedAt,
		}
		if entered, ok := lifecycle.LastEnteredAt(order); ok {
			view.AgeDays = lifecycle.AgeDays(entered, now)
		}
		view.Overdue = view.Severity == models.SeverityRed
		views = append(views, view)
	}

	return views, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
