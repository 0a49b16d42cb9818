// Package dashboard aggregates the admin overview figures.
package dashboard

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// Summary is the admin dashboard overview.
type Summary struct {
	Orders      int
	OpenOrders  int
	Revenue     decimal.Decimal
	Outstanding decimal.Decimal
	Products    int
	UnitsStock  int
	Customers   int
}

// ProductLister is the read side of the catalog used by the dashboard.
type ProductLister interface {
	List(ctx context.Context) ([]product.Product, error)
}

// Service computes the dashboard Summary.
type Service struct {
	orders   customer.OrderLister
	products ProductLister
}

// NewService creates a dashboard Service.
func NewService(orders customer.OrderLister, products ProductLister) *Service {
	return &Service{orders: orders, products: products}
}

// Summary reads orders and products concurrently and aggregates them.
// Revenue excludes cancelled and refunded orders; Outstanding sums the
// unpaid balance of the same set.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var (
		orders   []order.Order
		products []product.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if orders, err = s.orders.List(gctx); err != nil {
			return errors.Wrap(err, "list orders")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if products, err = s.products.List(gctx); err != nil {
			return errors.Wrap(err, "list products")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.External("store", err)
	}

	sum := &Summary{
		Orders:      len(orders),
		Revenue:     decimal.Zero,
		Outstanding: decimal.Zero,
		Products:    len(products),
		Customers:   len(customer.Project(orders)),
	}
	for i := range orders {
		o := &orders[i]
		if o.Status.Open() {
			sum.OpenOrders++
		}
		if o.Status == order.StatusCancelled || o.Status == order.StatusRefunded {
			continue
		}
		sum.Revenue = sum.Revenue.Add(o.TotalAmount)
		sum.Outstanding = sum.Outstanding.Add(o.Remaining())
	}
	for _, p := range products {
		sum.UnitsStock += p.Stock
	}
	return sum, nil
}
