package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/wire"
)

const (
	insertProductSQL = `INSERT INTO products (id, doc) VALUES ($1, $2)
		RETURNING created_at, updated_at`

	listProductsSQL = `SELECT id, doc, created_at, updated_at
		FROM products ORDER BY created_at DESC, id`

	getProductByIDSQL = `SELECT id, doc, created_at, updated_at
		FROM products WHERE id = $1`

	updateProductSQL = `UPDATE products SET doc = $2, updated_at = now()
		WHERE id = $1 RETURNING created_at, updated_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts p under a new id and fills in the stored timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	p.ID = uuid.New().String()
	if err := r.pool.QueryRow(ctx, insertProductSQL, p.ID, productDoc(p)).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return errors.Wrapf(err, "insert product %q", p.ID)
	}
	return nil
}

// List returns all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// Update overwrites the stored document of p.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL, p.ID, productDoc(p)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	return nil
}

// Delete removes the product with the given id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func productDoc(p *product.Product) []byte {
	var e jx.Encoder
	wire.EncodeProduct(&e, p)
	return e.Bytes()
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p   product.Product
		id  string
		doc []byte
	)
	if err := row.Scan(&id, &doc, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	created, updated := p.CreatedAt, p.UpdatedAt
	if err := wire.DecodeProduct(jx.DecodeBytes(doc), &p); err != nil {
		return p, errors.Wrapf(err, "decode product %q", id)
	}
	// Row columns are authoritative over the copies inside the document.
	p.ID, p.CreatedAt, p.UpdatedAt = id, created, updated
	return p, nil
}
