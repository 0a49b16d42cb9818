package memory

import (
	"context"

	"github.com/xenking/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in memory.
type OrderRepository struct {
	d *docs[order.Order]
}

// NewOrderRepository returns an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{d: newDocs[order.Order]()}
}

// Create stores a copy of o and assigns its id and timestamps.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	now := r.d.now()
	o.ID = r.d.newID()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.d.byID[o.ID] = &entry[order.Order]{doc: o.Clone(), seq: nextSeq(), createdAt: now}
	return nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(_ context.Context) ([]order.Order, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	entries := r.d.newest()
	out := make([]order.Order, len(entries))
	for i, e := range entries {
		out[i] = e.doc.Clone()
	}
	return out, nil
}

// GetByID returns a copy of the order or order.ErrNotFound.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	e, ok := r.d.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o := e.doc.Clone()
	return &o, nil
}

// Update replaces the stored order, keeping its creation time.
func (r *OrderRepository) Update(_ context.Context, o *order.Order) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	e, ok := r.d.byID[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	o.CreatedAt = e.createdAt
	o.UpdatedAt = r.d.now()
	e.doc = o.Clone()
	return nil
}

// Delete removes the order or returns order.ErrNotFound.
func (r *OrderRepository) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.byID[id]; !ok {
		return order.ErrNotFound
	}
	delete(r.d.byID, id)
	return nil
}
