package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// EncodeOrder writes o as a JSON object.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	OrderFields(e, o)
	e.ObjEnd()
}

// OrderFields writes the fields of o into an already open object, so that
// callers can append derived fields.
func OrderFields(e *jx.Encoder, o *order.Order) {
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customerInfo")
	EncodeCustomer(e, o.Customer)
	e.FieldStart("items")
	e.ArrStart()
	for i := range o.Items {
		EncodeItem(e, &o.Items[i])
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	Money(e, o.Subtotal)
	e.FieldStart("shippingFee")
	Money(e, o.ShippingFee)
	e.FieldStart("discountAmount")
	Money(e, o.DiscountAmount)
	e.FieldStart("totalAmount")
	Money(e, o.TotalAmount)
	e.FieldStart("paymentMethod")
	e.Str(string(o.PaymentMethod))
	e.FieldStart("voucherCode")
	e.Str(o.VoucherCode)
	e.FieldStart("notes")
	e.Str(o.Notes)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("amountPaid")
	Money(e, o.AmountPaid)
	e.FieldStart("createdAt")
	Time(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	Time(e, o.UpdatedAt)
}

// EncodeCustomer writes c as a JSON object.
func EncodeCustomer(e *jx.Encoder, c order.CustomerInfo) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("phoneNumber")
	e.Str(c.PhoneNumber)
	e.FieldStart("address")
	e.Str(c.Address)
	e.ObjEnd()
}

// EncodeItem writes an order line snapshot.
func EncodeItem(e *jx.Encoder, it *order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ProductID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("imageUrl")
	e.Str(it.ImageURL)
	e.FieldStart("category")
	e.Str(string(it.Category))
	e.FieldStart("tags")
	e.ArrStart()
	for _, t := range it.Tags {
		e.Str(string(t))
	}
	e.ArrEnd()
	e.FieldStart("price")
	Money(e, it.Price)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.ObjEnd()
}

// DecodeOrder reads a JSON object into o. Unknown fields are skipped.
func DecodeOrder(d *jx.Decoder, o *order.Order) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			o.ID, err = d.Str()
		case "customerInfo":
			err = DecodeCustomer(d, &o.Customer)
		case "items":
			o.Items = []order.Item{}
			err = d.Arr(func(d *jx.Decoder) error {
				var it order.Item
				if err := DecodeItem(d, &it); err != nil {
					return err
				}
				o.Items = append(o.Items, it)
				return nil
			})
		case "subtotal":
			o.Subtotal, err = DecodeMoney(d)
		case "shippingFee":
			o.ShippingFee, err = DecodeMoney(d)
		case "discountAmount":
			o.DiscountAmount, err = DecodeMoney(d)
		case "totalAmount":
			o.TotalAmount, err = DecodeMoney(d)
		case "paymentMethod":
			var s string
			s, err = d.Str()
			o.PaymentMethod = order.PaymentMethod(s)
		case "voucherCode":
			o.VoucherCode, err = d.Str()
		case "notes":
			o.Notes, err = d.Str()
		case "status":
			var s string
			s, err = d.Str()
			o.Status = order.Status(s)
		case "amountPaid":
			o.AmountPaid, err = DecodeMoney(d)
		case "createdAt":
			o.CreatedAt, err = DecodeTime(d)
		case "updatedAt":
			o.UpdatedAt, err = DecodeTime(d)
		default:
			return d.Skip()
		}
		return fieldErr(key, err)
	})
}

// DecodeCustomer reads a customer object into c.
func DecodeCustomer(d *jx.Decoder, c *order.CustomerInfo) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			c.Name, err = d.Str()
		case "phoneNumber":
			c.PhoneNumber, err = d.Str()
		case "address":
			c.Address, err = d.Str()
		default:
			return d.Skip()
		}
		return fieldErr(key, err)
	})
}

// DecodeItem reads an order line snapshot.
func DecodeItem(d *jx.Decoder, it *order.Item) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id", "productId":
			it.ProductID, err = d.Str()
		case "name":
			it.Name, err = d.Str()
		case "description":
			it.Description, err = d.Str()
		case "imageUrl":
			it.ImageURL, err = d.Str()
		case "category":
			var s string
			s, err = d.Str()
			it.Category = product.Category(s)
		case "tags":
			var tags []string
			tags, err = Strings(d)
			it.Tags = make([]product.Tag, len(tags))
			for i, t := range tags {
				it.Tags[i] = product.Tag(t)
			}
		case "price":
			it.Price, err = DecodeMoney(d)
		case "quantity":
			it.Quantity, err = Int(d)
		default:
			return d.Skip()
		}
		return fieldErr(key, err)
	})
}
