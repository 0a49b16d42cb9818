package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// ErrNotFound is returned by repositories when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	// PaymentDP is a down payment: part now, the balance later.
	PaymentDP       PaymentMethod = "DP"
	PaymentCOD      PaymentMethod = "COD"
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{PaymentDP, PaymentCOD, PaymentCash, PaymentTransfer}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentDP, PaymentCOD, PaymentCash, PaymentTransfer:
		return true
	}
	return false
}

// CustomerInfo is the contact data embedded in every order. The phone
// number is the natural identity of a customer.
type CustomerInfo struct {
	Name        string `field:"name" validate:"required"`
	PhoneNumber string `field:"phoneNumber" validate:"required"`
	Address     string `field:"address" validate:"required"`
}

func (c CustomerInfo) trimmed() CustomerInfo {
	return CustomerInfo{
		Name:        strings.TrimSpace(c.Name),
		PhoneNumber: strings.TrimSpace(c.PhoneNumber),
		Address:     strings.TrimSpace(c.Address),
	}
}

// Item is a snapshot of a catalog product taken when it was added to the
// order, together with the unit price charged and the quantity.
type Item struct {
	ProductID   string
	Name        string
	Description string
	ImageURL    string
	Category    product.Category
	Tags        []product.Tag
	Price       decimal.Decimal
	Quantity    int
}

// LineTotal returns Price × Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a customer order with its derived monetary fields.
type Order struct {
	ID             string
	Customer       CustomerInfo
	Items          []Item
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  PaymentMethod
	VoucherCode    string
	Notes          string
	Status         Status
	AmountPaid     decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Remaining is the unpaid balance, never negative. It is derived on read
// and never stored.
func (o *Order) Remaining() decimal.Decimal {
	rest := o.TotalAmount.Sub(o.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		it.Tags = append([]product.Tag(nil), it.Tags...)
		items[i] = it
	}
	o.Items = items
	return o
}

// Repository is the order store port. Implementations assign the id and
// both timestamps on Create, refresh UpdatedAt on Update, and return
// ErrNotFound for a missing id. List returns newest first.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
}
