// Package coupon resolves voucher codes to order discounts.
package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported voucher discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Rule defines one recognized voucher.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	Description  string
}

// Discount holds the computed discount amount and a human-readable description.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Apply calculates the discount of rule on subtotal, rounded to two places
// and never negative nor above the subtotal.
func Apply(rule Rule, subtotal decimal.Decimal) (Discount, error) {
	var amount decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
	case DiscountFixed:
		amount = decimal.Min(rule.Value, subtotal)
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return Discount{
		Code:        rule.Code,
		Amount:      amount.Round(2),
		Description: rule.Description,
	}, nil
}
