// Package wire is the JSON codec of the storefront documents. The same
// shapes are stored as JSONB documents and served over HTTP.
package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

// Money writes d as a JSON number.
func Money(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

// ErrAmountOutOfRange is returned by DecodeMoney for amounts that cannot be
// stored.
var ErrAmountOutOfRange = errors.New("amount out of range")

const (
	maxMoneyLen   = 32
	maxMoneyScale = 8
)

// DecodeMoney reads a JSON number or a numeric string. Amounts must be
// below order.MaxAmount in magnitude with at most 8 decimal places.
func DecodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	default:
		return decimal.Zero, errors.Errorf("expected number, got %s", d.Next())
	}
	if len(raw) > maxMoneyLen {
		return decimal.Zero, errors.Wrapf(ErrAmountOutOfRange, "%d characters", len(raw))
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse amount %q", raw)
	}
	// The exponent is bounded before any arithmetic on v.
	if exp := v.Exponent(); exp < -maxMoneyScale || exp >= maxMoneyLen {
		return decimal.Zero, errors.Wrapf(ErrAmountOutOfRange, "%q", raw)
	}
	if v.Abs().GreaterThanOrEqual(order.MaxAmount) {
		return decimal.Zero, errors.Wrapf(ErrAmountOutOfRange, "%q", raw)
	}
	return v, nil
}

// Time writes t as an RFC 3339 string in UTC. Zero times are written as null.
func Time(e *jx.Encoder, t time.Time) {
	if t.IsZero() {
		e.Null()
		return
	}
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

// DecodeTime reads an RFC 3339 string or null.
func DecodeTime(d *jx.Decoder) (time.Time, error) {
	if d.Next() == jx.Null {
		return time.Time{}, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}
	return t, nil
}

// Int reads a JSON integer.
func Int(d *jx.Decoder) (int, error) {
	v, err := d.Int64()
	return int(v), err
}

// Strings reads an array of strings.
func Strings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func fieldErr(key []byte, err error) error {
	if err != nil {
		return errors.Wrapf(err, "decode %s", key)
	}
	return nil
}
