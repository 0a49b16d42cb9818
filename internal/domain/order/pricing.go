package order

import (
	"context"
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

// DefaultShippingFee is the flat fee charged on customer checkouts.
var DefaultShippingFee = decimal.NewFromInt(20000)

// MaxAmount is the exclusive upper bound of any stored amount, the range of
// a NUMERIC(14, 2) column.
var MaxAmount = decimal.New(1, 12)

// ProductLookup is the slice of the catalog the pricing engine reads.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// LineRequest is one requested order line. A nil Price charges the current
// catalog price.
type LineRequest struct {
	ProductID string           `field:"id" validate:"required"`
	Quantity  int              `field:"quantity" validate:"min=1"`
	Price     *decimal.Decimal `field:"price"`
}

// TotalsRequest is the input of ComputeNewOrderTotals. ShippingFee and
// DiscountAmount override the flat fee and the voucher table when set.
type TotalsRequest struct {
	Items          []LineRequest
	VoucherCode    string
	ShippingFee    *decimal.Decimal
	DiscountAmount *decimal.Decimal
}

// Totals is the priced result of a new order.
type Totals struct {
	Items          []Item
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	// VoucherApplied is set when the voucher code matched the table.
	VoucherApplied bool
}

// Engine prices new orders against the catalog and the voucher table.
type Engine struct {
	products    ProductLookup
	vouchers    coupon.Validator
	shippingFee decimal.Decimal
}

// NewEngine creates a pricing Engine. A non-positive shippingFee falls
// back to DefaultShippingFee.
func NewEngine(products ProductLookup, vouchers coupon.Validator, shippingFee decimal.Decimal) *Engine {
	if !shippingFee.IsPositive() {
		shippingFee = DefaultShippingFee
	}
	return &Engine{products: products, vouchers: vouchers, shippingFee: shippingFee}
}

// ShippingFee returns the flat checkout fee.
func (e *Engine) ShippingFee() decimal.Decimal { return e.shippingFee }

// ComputeNewOrderTotals resolves every line against the catalog, checks
// stock, snapshots the products and derives subtotal, discount, shipping
// and total.
//
// Quantities of repeated lines for the same product are summed before the
// stock check. Nothing is written and stock is not reserved.
func (e *Engine) ComputeNewOrderTotals(ctx context.Context, req TotalsRequest) (*Totals, error) {
	if err := validateLines(req.Items); err != nil {
		return nil, err
	}

	requested := make(map[string]int, len(req.Items))
	for _, line := range req.Items {
		id := strings.TrimSpace(line.ProductID)
		requested[id] = addQuantity(requested[id], line.Quantity)
	}

	fetched := make(map[string]*product.Product, len(requested))
	items := make([]Item, 0, len(req.Items))
	for _, line := range req.Items {
		id := strings.TrimSpace(line.ProductID)
		p, ok := fetched[id]
		if !ok {
			var err error
			p, err = e.products.GetByID(ctx, id)
			switch {
			case errors.Is(err, product.ErrNotFound):
				return nil, &apperr.NotFoundError{Kind: "product", ID: id}
			case err != nil:
				return nil, apperr.External("catalog store", errors.Wrapf(err, "get product %s", id))
			}
			if want := requested[id]; p.Stock < want {
				return nil, &apperr.InsufficientStockError{
					ProductID: id,
					Name:      p.Name,
					Requested: want,
					Available: p.Stock,
				}
			}
			fetched[id] = p
		}

		price := p.Price
		if line.Price != nil {
			price = *line.Price
		}
		items = append(items, snapshot(p, price, line.Quantity))
	}

	t := &Totals{
		Items:       items,
		Subtotal:    Subtotal(items),
		ShippingFee: e.shippingFee,
	}
	if req.ShippingFee != nil {
		t.ShippingFee = req.ShippingFee.Round(2)
	}
	if req.DiscountAmount != nil {
		t.DiscountAmount = req.DiscountAmount.Round(2)
	} else {
		d, ok := e.vouchers.Discount(req.VoucherCode, t.Subtotal)
		t.DiscountAmount = d.Amount
		t.VoucherApplied = ok
	}
	t.TotalAmount = Total(t.Subtotal, t.ShippingFee, t.DiscountAmount)
	if err := checkTotal(t.TotalAmount); err != nil {
		return nil, err
	}
	return t, nil
}

// Subtotal sums the line totals, rounded to two places.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum.Round(2)
}

// Total is the only place a total is derived: subtotal − discount + shipping.
func Total(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(shipping)
}

// RecomputeOnEdit applies patch to current and re-derives subtotal and
// total from the resulting items, shipping and discount. It has no side
// effects; current is left untouched.
//
// Items in patch must already carry their snapshot fields.
func RecomputeOnEdit(current Order, patch Patch) (Order, error) {
	if err := patch.Validate(); err != nil {
		return Order{}, err
	}

	next := current.Clone()
	patch.apply(&next)

	next.Subtotal = Subtotal(next.Items)
	next.TotalAmount = Total(next.Subtotal, next.ShippingFee, next.DiscountAmount)
	if err := checkTotal(next.TotalAmount); err != nil {
		return Order{}, err
	}
	return next, nil
}

func checkTotal(total decimal.Decimal) error {
	switch {
	case total.IsNegative():
		return apperr.Invalid("discountAmount", "discount must not exceed subtotal plus shipping")
	case total.GreaterThanOrEqual(MaxAmount):
		return apperr.Invalid("items", "order total is too large")
	}
	return nil
}

// addQuantity sums line quantities, saturating at math.MaxInt so that an
// oversized request still fails the stock check.
func addQuantity(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

func validateLines(lines []LineRequest) error {
	verr := &apperr.ValidationError{}
	if len(lines) == 0 {
		verr.Add("items", "order must contain at least one item")
		return verr
	}
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			verr.Add(itemField(i, "id"), "item product id is required")
		}
		if line.Quantity < 1 {
			verr.Add(itemField(i, "quantity"), "item quantity must be at least 1")
		}
		if line.Price != nil && line.Price.IsNegative() {
			verr.Add(itemField(i, "price"), "item price must not be negative")
		}
	}
	return verr.OrNil()
}

func snapshot(p *product.Product, price decimal.Decimal, qty int) Item {
	return Item{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Tags:        append([]product.Tag(nil), p.Tags...),
		Price:       price,
		Quantity:    qty,
	}
}
