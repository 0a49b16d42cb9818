package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// CustomerPatch changes individual customer fields; nil keeps.
type CustomerPatch struct {
	Name        *string
	PhoneNumber *string
	Address     *string
}

// Patch is a partial admin edit of an order. Nil fields keep their current
// value; a non-nil Items slice replaces every line.
type Patch struct {
	Customer       *CustomerPatch
	Items          []Item
	PaymentMethod  *PaymentMethod
	Status         *Status
	ShippingFee    *decimal.Decimal
	DiscountAmount *decimal.Decimal
	AmountPaid     *decimal.Decimal
	Notes          *string
}

// Validate checks every field the patch sets.
func (p Patch) Validate() error {
	verr := &apperr.ValidationError{}
	if c := p.Customer; c != nil {
		requireText(verr, "customerInfo.name", "customer name", c.Name)
		requireText(verr, "customerInfo.phoneNumber", "customer phone number", c.PhoneNumber)
		requireText(verr, "customerInfo.address", "customer address", c.Address)
	}
	if p.Items != nil {
		if len(p.Items) == 0 {
			verr.Add("items", "order must contain at least one item")
		}
		for i, it := range p.Items {
			if strings.TrimSpace(it.ProductID) == "" {
				verr.Add(itemField(i, "id"), "item product id is required")
			}
			if it.Quantity < 1 {
				verr.Add(itemField(i, "quantity"), "item quantity must be at least 1")
			}
			if it.Price.IsNegative() {
				verr.Add(itemField(i, "price"), "item price must not be negative")
			}
		}
	}
	if p.PaymentMethod != nil && !p.PaymentMethod.Valid() {
		verr.Add("paymentMethod", fmt.Sprintf("unknown payment method %q", *p.PaymentMethod))
	}
	if p.Status != nil && !p.Status.Valid() {
		verr.Add("status", fmt.Sprintf("unknown status %q", *p.Status))
	}
	nonNegative(verr, "shippingFee", "shipping fee", p.ShippingFee)
	nonNegative(verr, "discountAmount", "discount", p.DiscountAmount)
	nonNegative(verr, "amountPaid", "amount paid", p.AmountPaid)
	return verr.OrNil()
}

func (p Patch) apply(o *Order) {
	if c := p.Customer; c != nil {
		if c.Name != nil {
			o.Customer.Name = strings.TrimSpace(*c.Name)
		}
		if c.PhoneNumber != nil {
			o.Customer.PhoneNumber = strings.TrimSpace(*c.PhoneNumber)
		}
		if c.Address != nil {
			o.Customer.Address = strings.TrimSpace(*c.Address)
		}
	}
	if p.Items != nil {
		o.Items = make([]Item, len(p.Items))
		copy(o.Items, p.Items)
	}
	if p.PaymentMethod != nil {
		o.PaymentMethod = *p.PaymentMethod
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.ShippingFee != nil {
		o.ShippingFee = p.ShippingFee.Round(2)
	}
	if p.DiscountAmount != nil {
		o.DiscountAmount = p.DiscountAmount.Round(2)
	}
	if p.AmountPaid != nil {
		o.AmountPaid = p.AmountPaid.Round(2)
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
}

func requireText(verr *apperr.ValidationError, field, label string, v *string) {
	if v != nil && strings.TrimSpace(*v) == "" {
		verr.Add(field, label+" is required")
	}
}

func nonNegative(verr *apperr.ValidationError, field, label string, v *decimal.Decimal) {
	if v != nil && v.IsNegative() {
		verr.Add(field, label+" must not be negative")
	}
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
