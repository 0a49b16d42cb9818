package coupon

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Validator resolves a voucher code against a subtotal. An unrecognized or
// empty code yields a zero discount and ok=false; it is not an error.
type Validator interface {
	Discount(code string, subtotal decimal.Decimal) (d Discount, ok bool)
}

// DefaultRules is the closed voucher table accepted at checkout.
var DefaultRules = []Rule{
	{
		Code:         "SALE10",
		DiscountType: DiscountPercentage,
		Value:        decimal.NewFromInt(10),
		Description:  "10% off the order subtotal",
	},
}

// Table is a Validator over a fixed, case-insensitive set of rules.
type Table struct {
	rules map[string]Rule
}

var _ Validator = (*Table)(nil)

// NewTable indexes rules by upper-cased code. A later rule with the same
// code replaces an earlier one.
func NewTable(rules ...Rule) *Table {
	t := &Table{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		t.rules[normalize(r.Code)] = r
	}
	return t
}

// Discount implements Validator.
func (t *Table) Discount(code string, subtotal decimal.Decimal) (Discount, bool) {
	code = normalize(code)
	if code == "" {
		return Discount{Amount: decimal.Zero}, false
	}
	rule, ok := t.rules[code]
	if !ok {
		return Discount{Amount: decimal.Zero}, false
	}
	d, err := Apply(rule, subtotal)
	if err != nil {
		return Discount{Amount: decimal.Zero}, false
	}
	return d, true
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
