package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/wire"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, doc, status, total_amount) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	listOrdersSQL = `SELECT id, doc, created_at, updated_at
		FROM orders ORDER BY created_at DESC, id`

	getOrderByIDSQL = `SELECT id, doc, created_at, updated_at
		FROM orders WHERE id = $1`

	updateOrderSQL = `UPDATE orders SET doc = $2, status = $3, total_amount = $4, updated_at = now()
		WHERE id = $1 RETURNING created_at, updated_at`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Status
// and total are mirrored into columns for reporting queries.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts o under a new id and fills in the stored timestamps.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	o.ID = uuid.New().String()
	err := r.pool.QueryRow(ctx, insertOrderSQL, o.ID, orderDoc(o), string(o.Status), o.TotalAmount).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// Update overwrites the stored document of o. The last writer wins.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	err := r.pool.QueryRow(ctx, updateOrderSQL, o.ID, orderDoc(o), string(o.Status), o.TotalAmount).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	return nil
}

// Delete removes the order with the given id.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func orderDoc(o *order.Order) []byte {
	var e jx.Encoder
	wire.EncodeOrder(&e, o)
	return e.Bytes()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o   order.Order
		id  string
		doc []byte
	)
	if err := row.Scan(&id, &doc, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return o, err
	}
	created, updated := o.CreatedAt, o.UpdatedAt
	if err := wire.DecodeOrder(jx.DecodeBytes(doc), &o); err != nil {
		return o, errors.Wrapf(err, "decode order %q", id)
	}
	o.ID, o.CreatedAt, o.UpdatedAt = id, created, updated
	return o, nil
}
