package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/upsell"
	"github.com/xenking/storefront/internal/wire"
)

// Request decoders skip unknown fields. In patches a missing or null field
// keeps the stored value.

func optString(d *jx.Decoder) (*string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func optMoney(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := wire.DecodeMoney(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func keyErr(key []byte, err error) error {
	if err != nil {
		return errors.Wrapf(err, "decode %s", key)
	}
	return nil
}

func decodeLine(d *jx.Decoder, l *order.LineRequest) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id", "productId":
			l.ProductID, err = d.Str()
		case "quantity":
			l.Quantity, err = wire.Int(d)
		case "price":
			l.Price, err = optMoney(d)
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}

func decodeLines(d *jx.Decoder) ([]order.LineRequest, error) {
	lines := []order.LineRequest{}
	err := d.Arr(func(d *jx.Decoder) error {
		var l order.LineRequest
		if err := decodeLine(d, &l); err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	return lines, err
}

func decodeCheckout(d *jx.Decoder, req *order.CheckoutRequest) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "customerInfo":
			err = wire.DecodeCustomer(d, &req.Customer)
		case "items":
			req.Items, err = decodeLines(d)
		case "paymentMethod":
			var s string
			s, err = d.Str()
			req.PaymentMethod = order.PaymentMethod(s)
		case "voucherCode":
			req.VoucherCode, err = d.Str()
		case "notes":
			req.Notes, err = d.Str()
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}

func decodeAdminOrder(d *jx.Decoder, req *order.AdminOrderRequest) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "customerInfo":
			err = wire.DecodeCustomer(d, &req.Customer)
		case "items":
			req.Items, err = decodeLines(d)
		case "paymentMethod":
			var s string
			s, err = d.Str()
			req.PaymentMethod = order.PaymentMethod(s)
		case "status":
			var s string
			s, err = d.Str()
			req.Status = order.Status(s)
		case "shippingFee":
			req.ShippingFee, err = wire.DecodeMoney(d)
		case "discountAmount":
			req.DiscountAmount, err = optMoney(d)
		case "amountPaid":
			req.AmountPaid, err = wire.DecodeMoney(d)
		case "voucherCode":
			req.VoucherCode, err = d.Str()
		case "notes":
			req.Notes, err = d.Str()
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}

func decodeCustomerPatch(d *jx.Decoder, p *order.CustomerPatch) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			p.Name, err = optString(d)
		case "phoneNumber":
			p.PhoneNumber, err = optString(d)
		case "address":
			p.Address, err = optString(d)
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}

func decodeOrderPatch(d *jx.Decoder, p *order.Patch) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch string(key) {
		case "customerInfo":
			p.Customer = &order.CustomerPatch{}
			err = decodeCustomerPatch(d, p.Customer)
		case "items":
			p.Items = []order.Item{}
			err = d.Arr(func(d *jx.Decoder) error {
				var it order.Item
				if err := wire.DecodeItem(d, &it); err != nil {
					return err
				}
				p.Items = append(p.Items, it)
				return nil
			})
		case "paymentMethod":
			var s string
			s, err = d.Str()
			m := order.PaymentMethod(s)
			p.PaymentMethod = &m
		case "status":
			var s string
			s, err = d.Str()
			st := order.Status(s)
			p.Status = &st
		case "shippingFee":
			p.ShippingFee, err = optMoney(d)
		case "discountAmount":
			p.DiscountAmount, err = optMoney(d)
		case "amountPaid":
			p.AmountPaid, err = optMoney(d)
		case "notes":
			p.Notes, err = optString(d)
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}

func decodeTags(d *jx.Decoder) ([]product.Tag, error) {
	raw, err := wire.Strings(d)
	if err != nil {
		return nil, err
	}
	tags := make([]product.Tag, len(raw))
	for i, t := range raw {
		tags[i] = product.Tag(t)
	}
	return tags, nil
}

func decodeProductInput(d *jx.Decoder, in *product.Input) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			in.Name, err = d.Str()
		case "description":
			in.Description, err = d.Str()
		case "price":
			in.Price, err = wire.DecodeMoney(d)
		case "stock":
			in.Stock, err = wire.Int(d)
		case "category":
			var s string
			s, err = d.Str()
			in.Category = product.Category(s)
		case "tags":
			in.Tags, err = decodeTags(d)
		case "imageUrl":
			in.ImageURL, err = d.Str()
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}

func decodeProductPatch(d *jx.Decoder, p *product.Patch) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch string(key) {
		case "name":
			p.Name, err = optString(d)
		case "description":
			p.Description, err = optString(d)
		case "price":
			p.Price, err = optMoney(d)
		case "stock":
			var n int
			n, err = wire.Int(d)
			p.Stock = &n
		case "category":
			var s string
			s, err = d.Str()
			c := product.Category(s)
			p.Category = &c
		case "tags":
			p.Tags, err = decodeTags(d)
		case "imageUrl":
			p.ImageURL, err = optString(d)
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}

func decodeUpsell(d *jx.Decoder, req *upsell.Request) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "orderHistory":
			req.OrderHistory, err = d.Str()
		case "currentCart":
			req.CurrentCart, err = d.Str()
		default:
			return d.Skip()
		}
		return keyErr(key, err)
	})
}
