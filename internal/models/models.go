package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Category is a customization option kind
type Category string

const (
	CategoryFabrics   Category = "fabrics"
	CategoryEshra     Category = "eshra"
	CategoryPaintings Category = "paintings"
	CategoryMarble    Category = "marble"
	CategoryGlass     Category = "glass"
)

// Categories lists every customization category in display order
var Categories = []Category{
	CategoryFabrics,
	CategoryEshra,
	CategoryPaintings,
	CategoryMarble,
	CategoryGlass,
}

// IsValid reports whether c is one of the known categories
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Singular names one option of the category, e.g. "fabric"
func (c Category) Singular() string {
	switch c {
	case CategoryFabrics:
		return "fabric"
	case CategoryPaintings:
		return "painting"
	default:
		return string(c)
	}
}

// Title is the capitalized singular name, e.g. "Fabric"
func (c Category) Title() string {
	name := c.Singular()
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Option is a single customization choice within a category
type Option struct {
	ID        string    `db:"id" json:"id"`
	Category  Category  `db:"category" json:"category"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Supplier manufactures products
type Supplier struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Number    string    `db:"number" json:"number"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Selections maps a category to a set of option ids
type Selections map[Category][]string

// Get returns the ids selected for c, never nil
func (s Selections) Get(c Category) []string {
	if s == nil || s[c] == nil {
		return []string{}
	}
	return s[c]
}

// IDs returns every id across all categories
func (s Selections) IDs() []string {
	var ids []string
	for _, c := range Categories {
		ids = append(ids, s[c]...)
	}
	return ids
}

// Normalize drops unknown categories and duplicate ids, keeping first-seen order
func (s Selections) Normalize() Selections {
	out := make(Selections, len(Categories))
	for _, c := range Categories {
		seen := make(map[string]struct{}, len(s[c]))
		ids := make([]string, 0, len(s[c]))
		for _, id := range s[c] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		out[c] = ids
	}
	return out
}

// Difference returns the ids in s[c] that are not in allowed[c]
func (s Selections) Difference(allowed Selections, c Category) []string {
	permitted := make(map[string]struct{}, len(allowed[c]))
	for _, id := range allowed[c] {
		permitted[id] = struct{}{}
	}

	var bad []string
	for _, id := range s[c] {
		if _, ok := permitted[id]; !ok {
			bad = append(bad, id)
		}
	}
	return bad
}

func (s Selections) writeFlat(out map[string]interface{}) {
	for _, c := range Categories {
		out[string(c)] = s.Get(c)
	}
}

func readFlat(data []byte) (Selections, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	sel := make(Selections, len(Categories))
	for _, c := range Categories {
		msg, ok := raw[string(c)]
		if !ok || string(msg) == "null" {
			continue
		}
		var ids []string
		if err := json.Unmarshal(msg, &ids); err != nil {
			return nil, err
		}
		sel[c] = ids
	}
	return sel.Normalize(), nil
}

// Product is a catalog entry with its allowed customizations
type Product struct {
	ID             string     `db:"id" json:"id"`
	ProductID      int64      `db:"product_id" json:"productId"`
	Name           string     `db:"name" json:"name"`
	Description    string     `db:"description" json:"description"`
	SupplierID     string     `db:"supplier_id" json:"supplierId"`
	Images         string     `db:"images" json:"images"`
	AllowedOptions Selections `db:"-" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

type productFields Product

// MarshalJSON flattens the allowed options into one array per category
func (p Product) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"id":          p.ID,
		"productId":   p.ProductID,
		"name":        p.Name,
		"description": p.Description,
		"supplierId":  p.SupplierID,
		"images":      p.Images,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
	p.AllowedOptions.writeFlat(out)
	return json.Marshal(out)
}

// UnmarshalJSON reads per-category arrays into AllowedOptions
func (p *Product) UnmarshalJSON(data []byte) error {
	var fields productFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	sel, err := readFlat(data)
	if err != nil {
		return err
	}
	*p = Product(fields)
	p.AllowedOptions = sel
	return nil
}

// LineItem is one product plus its chosen customizations
type LineItem struct {
	ProductRef string     `json:"-"`
	ProductID  int64      `json:"-"`
	SupplierID string     `json:"-"`
	Selections Selections `json:"-"`
}

type lineItemFields struct {
	ProductRef string `json:"product"`
	ProductID  int64  `json:"productId"`
	SupplierID string `json:"supplierId"`
}

// MarshalJSON flattens the selections into one array per category
func (li LineItem) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"product":    li.ProductRef,
		"productId":  li.ProductID,
		"supplierId": li.SupplierID,
	}
	li.Selections.writeFlat(out)
	return json.Marshal(out)
}

// UnmarshalJSON reads per-category arrays into Selections
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var fields lineItemFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	sel, err := readFlat(data)
	if err != nil {
		return err
	}
	*li = LineItem{
		ProductRef: fields.ProductRef,
		ProductID:  fields.ProductID,
		SupplierID: fields.SupplierID,
		Selections: sel,
	}
	return nil
}

// StatusHistoryEntry records when an order entered a status
type StatusHistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Order is the central aggregate
type Order struct {
	OrderID       int64                `json:"orderId"`
	Items         []LineItem           `json:"items"`
	Status        Status               `json:"status"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory"`
	StatusSla     *StatusSla           `json:"statusSla,omitempty"`
	Version       int64                `json:"version"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// LastHistoryEntry returns the newest ledger entry, if any
func (o *Order) LastHistoryEntry() (StatusHistoryEntry, bool) {
	if len(o.StatusHistory) == 0 {
		return StatusHistoryEntry{}, false
	}
	return o.StatusHistory[len(o.StatusHistory)-1], true
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
