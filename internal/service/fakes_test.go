package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"furniture-orders/internal/apperrors"
	"furniture-orders/internal/models"
)

// memStore is an in-memory stand-in for the Postgres store
type memStore struct {
	mu        sync.Mutex
	orders    map[int64]models.Order
	products  map[int64]models.Product
	suppliers map[string]models.Supplier
	options   map[string]models.Option
	sla       *models.StatusSla
	processed map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		orders:    map[int64]models.Order{},
		products:  map[int64]models.Product{},
		suppliers: map[string]models.Supplier{},
		options:   map[string]models.Option{},
		processed: map[string]string{},
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.LineItem(nil), o.Items...)
	o.StatusHistory = append([]models.StatusHistoryEntry(nil), o.StatusHistory...)
	o.StatusSla = o.StatusSla.Normalize()
	return o
}

func (m *memStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.OrderID]; ok {
		return apperrors.Validation("orderId", "duplicate order id")
	}
	m.orders[order.OrderID] = cloneOrder(*order)
	return nil
}

func (m *memStore) GetOrder(_ context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "Order", Message: "Order not found"}
	}
	c := cloneOrder(o)
	return &c, nil
}

func (m *memStore) sortedOrders(keep func(models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

func (m *memStore) ListOrders(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedOrders(func(models.Order) bool { return true }), nil
}

func (m *memStore) ListOrdersByStatus(_ context.Context, status models.Status) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedOrders(func(o models.Order) bool { return o.Status == status }), nil
}

func (m *memStore) UpdateOrder(_ context.Context, order *models.Order, expectedVersion *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.OrderID]
	if !ok {
		return &apperrors.NotFoundError{Resource: "Order", Message: "Order not found"}
	}
	if expectedVersion != nil && stored.Version != *expectedVersion {
		return &apperrors.ConflictError{Message: "version mismatch"}
	}
	order.Version = stored.Version + 1
	m.orders[order.OrderID] = cloneOrder(*order)
	return nil
}

func (m *memStore) DeleteOrder(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderID]; !ok {
		return &apperrors.NotFoundError{Resource: "Order", Message: "Order not found"}
	}
	delete(m.orders, orderID)
	return nil
}

func (m *memStore) CreateOption(_ context.Context, opt *models.Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.options {
		if o.Category == opt.Category && o.Name == opt.Name {
			return apperrors.Validation("name", "%s %q already exists", opt.Category, opt.Name)
		}
	}
	opt.CreatedAt = time.Now()
	m.options[opt.ID] = *opt
	return nil
}

func (m *memStore) ListOptions(_ context.Context, category models.Category) ([]models.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Option{}
	for _, o := range m.options {
		if o.Category == category {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) DeleteOption(_ context.Context, category models.Category, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.options[id]
	if !ok || o.Category != category {
		return &apperrors.NotFoundError{Resource: string(category), ID: id, Message: category.Title() + " not found"}
	}
	delete(m.options, id)
	return nil
}

func (m *memStore) GetOptionsByIDs(_ context.Context, ids []string) ([]models.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Option{}
	for _, id := range ids {
		if o, ok := m.options[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) CountOptions(_ context.Context, category models.Category, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if o, ok := m.options[id]; ok && o.Category == category {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateSupplier(_ context.Context, sup *models.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sup.CreatedAt = time.Now()
	m.suppliers[sup.ID] = *sup
	return nil
}

func (m *memStore) ListSuppliers(_ context.Context) ([]models.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Supplier{}
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) UpdateSupplier(_ context.Context, sup *models.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.suppliers[sup.ID]
	if !ok {
		return &apperrors.NotFoundError{Resource: "Supplier", ID: sup.ID, Message: "Supplier not found"}
	}
	sup.CreatedAt = stored.CreatedAt
	m.suppliers[sup.ID] = *sup
	return nil
}

func (m *memStore) DeleteSupplier(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[id]; !ok {
		return &apperrors.NotFoundError{Resource: "Supplier", ID: id, Message: "Supplier not found"}
	}
	delete(m.suppliers, id)
	return nil
}

func (m *memStore) SupplierExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.suppliers[id]
	return ok, nil
}

func (m *memStore) GetSuppliersByIDs(_ context.Context, ids []string) ([]models.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Supplier{}
	for _, id := range ids {
		if s, ok := m.suppliers[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ProductID]; ok {
		return apperrors.Validation("productId", "Product ID already exists.")
	}
	m.products[p.ProductID] = *p
	return nil
}

func (m *memStore) GetProductByProductID(_ context.Context, productID int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, &apperrors.NotFoundError{
			Resource: "Product",
			ID:       fmt.Sprint(productID),
			Message:  fmt.Sprintf("Product %d not found", productID),
		}
	}
	return &p, nil
}

func (m *memStore) GetProductsByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []models.Product{}
	for _, p := range m.products {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListProducts(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *memStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ProductID]; !ok {
		return apperrors.NotFound("Product", p.ProductID)
	}
	m.products[p.ProductID] = *p
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		return apperrors.NotFound("Product", productID)
	}
	delete(m.products, productID)
	return nil
}

func (m *memStore) GetSlaDefaults(_ context.Context) (*models.StatusSla, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sla.Normalize(), nil
}

func (m *memStore) SaveSlaDefaults(_ context.Context, sla *models.StatusSla) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sla = sla.Normalize()
	return nil
}

func (m *memStore) HasSlaDefaults(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sla != nil, nil
}

func (m *memStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *memStore) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = eventType
	return nil
}

// memCache stands in for Redis
type memCache struct {
	mu      sync.Mutex
	sla     *models.StatusSla
	slaSet  bool
	keys    map[string]int64
	locks   map[string]bool
	gets    int
	setErr  error
	lockErr error
}

func newMemCache() *memCache {
	return &memCache{keys: map[string]int64{}, locks: map[string]bool{}}
}

func (c *memCache) GetSlaDefaults(_ context.Context) (*models.StatusSla, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.sla.Normalize(), c.slaSet, nil
}

func (c *memCache) SetSlaDefaults(_ context.Context, sla *models.StatusSla, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sla, c.slaSet = sla.Normalize(), true
	return nil
}

func (c *memCache) InvalidateSlaDefaults(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sla, c.slaSet = nil, false
	return nil
}

func (c *memCache) GetIdempotencyKey(_ context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.keys[key]
	return id, ok, nil
}

func (c *memCache) SetIdempotencyKey(_ context.Context, key string, orderID int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = orderID
	return nil
}

func (c *memCache) AcquireLock(_ context.Context, lockKey string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lockErr != nil {
		return false, c.lockErr
	}
	if c.locks[lockKey] {
		return false, nil
	}
	c.locks[lockKey] = true
	return true, nil
}

func (c *memCache) ReleaseLock(ctx context.Context, lockKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, lockKey)
	return nil
}

// interleavedCache misses on the first key lookup after running beforeMiss,
// which lets another request finish in between
type interleavedCache struct {
	*memCache
	beforeMiss func()
}

func (c *interleavedCache) GetIdempotencyKey(ctx context.Context, key string) (int64, bool, error) {
	if hook := c.beforeMiss; hook != nil {
		c.beforeMiss = nil
		hook()
		return 0, false, nil
	}
	return c.memCache.GetIdempotencyKey(ctx, key)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu      sync.Mutex
	created []*models.OrderCreatedEvent
	changed []*models.OrderStatusChangedEvent
	updated []*models.OrderUpdatedEvent
	deleted []*models.OrderDeletedEvent
	err     error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, e *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderUpdated(_ context.Context, e *models.OrderUpdatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderDeleted(_ context.Context, e *models.OrderDeletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, e)
	return p.err
}
