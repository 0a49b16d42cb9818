package memory

import (
	"context"

	"github.com/xenking/storefront/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository in memory.
type ProductRepository struct {
	d *docs[product.Product]
}

// NewProductRepository returns an empty ProductRepository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{d: newDocs[product.Product]()}
}

// Create stores a copy of p and assigns its id and timestamps.
func (r *ProductRepository) Create(_ context.Context, p *product.Product) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	now := r.d.now()
	p.ID = r.d.newID()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.d.byID[p.ID] = &entry[product.Product]{doc: cloneProduct(*p), seq: nextSeq(), createdAt: now}
	return nil
}

// List returns all products, newest first.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	entries := r.d.newest()
	out := make([]product.Product, len(entries))
	for i, e := range entries {
		out[i] = cloneProduct(e.doc)
	}
	return out, nil
}

// GetByID returns a copy of the product or product.ErrNotFound.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	e, ok := r.d.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p := cloneProduct(e.doc)
	return &p, nil
}

// Update replaces the stored product, keeping its creation time.
func (r *ProductRepository) Update(_ context.Context, p *product.Product) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	e, ok := r.d.byID[p.ID]
	if !ok {
		return product.ErrNotFound
	}
	p.CreatedAt = e.createdAt
	p.UpdatedAt = r.d.now()
	e.doc = cloneProduct(*p)
	return nil
}

// Delete removes the product or returns product.ErrNotFound.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.byID[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.d.byID, id)
	return nil
}

func cloneProduct(p product.Product) product.Product {
	p.Tags = append([]product.Tag(nil), p.Tags...)
	return p
}
