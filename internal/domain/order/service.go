package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/events"
)

// CheckoutRequest is a customer checkout.
type CheckoutRequest struct {
	Customer      CustomerInfo  `field:"customerInfo"`
	Items         []LineRequest `field:"items" validate:"min=1,dive"`
	PaymentMethod PaymentMethod `field:"paymentMethod" validate:"enum"`
	VoucherCode   string        `field:"voucherCode" validate:"max=64"`
	Notes         string        `field:"notes" validate:"max=2000"`
}

// AdminOrderRequest is an order entered by staff. Unlike checkout it sets
// shipping, status and the amount already paid explicitly. A nil
// DiscountAmount falls back to the voucher table.
type AdminOrderRequest struct {
	Customer       CustomerInfo     `field:"customerInfo"`
	Items          []LineRequest    `field:"items" validate:"min=1,dive"`
	PaymentMethod  PaymentMethod    `field:"paymentMethod" validate:"enum"`
	Status         Status           `field:"status" validate:"omitempty,enum"`
	ShippingFee    decimal.Decimal  `field:"shippingFee"`
	DiscountAmount *decimal.Decimal `field:"discountAmount"`
	AmountPaid     decimal.Decimal  `field:"amountPaid"`
	VoucherCode    string           `field:"voucherCode" validate:"max=64"`
	Notes          string           `field:"notes" validate:"max=2000"`
}

// Filter narrows the admin order listing. Zero values match everything.
type Filter struct {
	// Query matches the order id, customer name or phone number.
	Query  string
	Status Status
}

// Match reports whether o satisfies the filter.
func (f Filter) Match(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(o.ID), q) ||
		strings.Contains(strings.ToLower(o.Customer.Name), q) ||
		strings.Contains(o.Customer.PhoneNumber, q)
}

// ServiceConfig tunes the order Service.
type ServiceConfig struct {
	// StrictTransitions rejects status changes outside CanTransition.
	StrictTransitions bool
	Publisher         events.Publisher
	Meter             metric.Meter
}

// Service implements checkout and the admin order operations.
type Service struct {
	engine   *Engine
	orders   Repository
	products ProductLookup
	events   events.Publisher
	strict   bool
	writes   metric.Int64Counter
}

// NewService creates an order Service.
func NewService(engine *Engine, orders Repository, cfg ServiceConfig) (*Service, error) {
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	if cfg.Meter == nil {
		cfg.Meter = noop.NewMeterProvider().Meter("")
	}
	writes, err := cfg.Meter.Int64Counter("storefront.order.writes",
		metric.WithDescription("Order writes by operation and channel"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return &Service{
		engine:   engine,
		orders:   orders,
		products: engine.products,
		events:   cfg.Publisher,
		strict:   cfg.StrictTransitions,
		writes:   writes,
	}, nil
}

// CreateOrder places a customer checkout and returns the new order id.
//
// Shipping is the flat checkout fee, the discount comes from the voucher
// table and the initial status is inferred from the payment method.
func (s *Service) CreateOrder(ctx context.Context, req CheckoutRequest) (string, error) {
	req.Customer = req.Customer.trimmed()
	if err := apperr.ValidateStruct(req); err != nil {
		return "", err
	}
	totals, err := s.engine.ComputeNewOrderTotals(ctx, TotalsRequest{
		Items:       req.Items,
		VoucherCode: req.VoucherCode,
	})
	if err != nil {
		return "", err
	}

	o := &Order{
		Customer:      req.Customer,
		PaymentMethod: req.PaymentMethod,
		VoucherCode:   strings.TrimSpace(req.VoucherCode),
		Notes:         req.Notes,
		Status:        InferStatus(req.PaymentMethod),
		AmountPaid:    decimal.Zero,
	}
	totals.assign(o)
	if err := s.orders.Create(ctx, o); err != nil {
		return "", apperr.External("order store", errors.Wrap(err, "create order"))
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("payment_method", string(o.PaymentMethod)),
		zap.Stringer("total", o.TotalAmount),
		zap.Bool("voucher_applied", totals.VoucherApplied),
	)
	s.record(ctx, "create", "checkout")
	s.notify(ctx, events.ActionCreated, o.ID)
	return o.ID, nil
}

// CreateAdminOrder stores an order entered by staff and returns its id.
func (s *Service) CreateAdminOrder(ctx context.Context, req AdminOrderRequest) (string, error) {
	req.Customer = req.Customer.trimmed()
	if err := validateAdmin(req); err != nil {
		return "", err
	}
	shipping := req.ShippingFee
	totals, err := s.engine.ComputeNewOrderTotals(ctx, TotalsRequest{
		Items:          req.Items,
		VoucherCode:    req.VoucherCode,
		ShippingFee:    &shipping,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		return "", err
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	o := &Order{
		Customer:      req.Customer,
		PaymentMethod: req.PaymentMethod,
		VoucherCode:   strings.TrimSpace(req.VoucherCode),
		Notes:         req.Notes,
		Status:        status,
		AmountPaid:    req.AmountPaid.Round(2),
	}
	totals.assign(o)
	if err := s.orders.Create(ctx, o); err != nil {
		return "", apperr.External("order store", errors.Wrap(err, "create order"))
	}

	s.record(ctx, "create", "admin")
	s.notify(ctx, events.ActionCreated, o.ID)
	return o.ID, nil
}

// UpdateAdminOrder applies patch to a stored order and recomputes its
// totals. Replacement items take their snapshot from the live catalog, or
// from the line already on the order when the product has been deleted
// since. Stock is not checked on edit.
func (s *Service) UpdateAdminOrder(ctx context.Context, id string, patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if patch.Items != nil {
		items, err := s.resolveItems(ctx, current, patch.Items)
		if err != nil {
			return err
		}
		patch.Items = items
	}
	if s.strict && patch.Status != nil && !CanTransition(current.Status, *patch.Status) {
		return apperr.Invalid("status",
			fmt.Sprintf("cannot move order from %s to %s", current.Status, *patch.Status))
	}

	next, err := RecomputeOnEdit(*current, patch)
	if err != nil {
		return err
	}
	if err := s.orders.Update(ctx, &next); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &apperr.NotFoundError{Kind: "order", ID: id}
		}
		return apperr.External("order store", errors.Wrap(err, "update order"))
	}

	if current.Status != next.Status {
		zctx.From(ctx).Info("Order status changed",
			zap.String("order_id", id),
			zap.String("from", string(current.Status)),
			zap.String("to", string(next.Status)),
		)
	}
	s.record(ctx, "update", "admin")
	s.notify(ctx, events.ActionUpdated, id)
	return nil
}

// DeleteAdminOrder removes an order.
func (s *Service) DeleteAdminOrder(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &apperr.NotFoundError{Kind: "order", ID: id}
		}
		return apperr.External("order store", errors.Wrap(err, "delete order"))
	}
	s.record(ctx, "delete", "admin")
	s.notify(ctx, events.ActionDeleted, id)
	return nil
}

// GetOrder returns one order or a NotFoundError.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &apperr.NotFoundError{Kind: "order", ID: id}
		}
		return nil, apperr.External("order store", errors.Wrap(err, "get order"))
	}
	return o, nil
}

// GetAdminOrders lists the orders matching f, newest first.
func (s *Service) GetAdminOrders(ctx context.Context, f Filter) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, apperr.External("order store", errors.Wrap(err, "list orders"))
	}
	out := orders[:0]
	for i := range orders {
		if f.Match(&orders[i]) {
			out = append(out, orders[i])
		}
	}
	return out, nil
}

func (s *Service) resolveItems(ctx context.Context, current *Order, items []Item) ([]Item, error) {
	previous := make(map[string]Item, len(current.Items))
	for _, it := range current.Items {
		previous[it.ProductID] = it
	}

	out := make([]Item, len(items))
	for i, it := range items {
		id := strings.TrimSpace(it.ProductID)
		p, err := s.products.GetByID(ctx, id)
		switch {
		case err == nil:
			out[i] = snapshot(p, it.Price, it.Quantity)
		case errors.Is(err, product.ErrNotFound):
			prev, ok := previous[id]
			if !ok {
				return nil, &apperr.NotFoundError{Kind: "product", ID: id}
			}
			prev.Price = it.Price
			prev.Quantity = it.Quantity
			prev.Tags = append([]product.Tag(nil), prev.Tags...)
			out[i] = prev
		default:
			return nil, apperr.External("catalog store", errors.Wrapf(err, "get product %s", id))
		}
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, op, channel string) {
	s.writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("channel", channel),
	))
}

func (s *Service) notify(ctx context.Context, action events.Action, id string) {
	e := events.Event{Entity: events.EntityOrder, Action: action, ID: id}
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Publish order change",
			zap.String("routing_key", e.RoutingKey()),
			zap.String("order_id", id),
			zap.Error(err),
		)
	}
}

func (t *Totals) assign(o *Order) {
	o.Items = t.Items
	o.Subtotal = t.Subtotal
	o.ShippingFee = t.ShippingFee
	o.DiscountAmount = t.DiscountAmount
	o.TotalAmount = t.TotalAmount
}

func validateAdmin(req AdminOrderRequest) error {
	verr := &apperr.ValidationError{}
	if err := apperr.ValidateStruct(req); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}
	nonNegative(verr, "shippingFee", "shipping fee", &req.ShippingFee)
	nonNegative(verr, "discountAmount", "discount", req.DiscountAmount)
	nonNegative(verr, "amountPaid", "amount paid", &req.AmountPaid)
	return verr.OrNil()
}
