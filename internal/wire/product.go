package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

// EncodeProduct writes p as a JSON object.
func EncodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	Money(e, p.Price)
	e.FieldStart("imageUrl")
	e.Str(p.ImageURL)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("tags")
	e.ArrStart()
	for _, t := range p.Tags {
		e.Str(string(t))
	}
	e.ArrEnd()
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("createdAt")
	Time(e, p.CreatedAt)
	e.FieldStart("updatedAt")
	Time(e, p.UpdatedAt)
	e.ObjEnd()
}

// DecodeProduct reads a JSON object into p. Unknown fields are skipped.
func DecodeProduct(d *jx.Decoder, p *product.Product) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = DecodeMoney(d)
		case "imageUrl":
			p.ImageURL, err = d.Str()
		case "category":
			var s string
			s, err = d.Str()
			p.Category = product.Category(s)
		case "tags":
			var tags []string
			tags, err = Strings(d)
			p.Tags = make([]product.Tag, len(tags))
			for i, t := range tags {
				p.Tags[i] = product.Tag(t)
			}
		case "stock":
			p.Stock, err = Int(d)
		case "createdAt":
			p.CreatedAt, err = DecodeTime(d)
		case "updatedAt":
			p.UpdatedAt, err = DecodeTime(d)
		default:
			return d.Skip()
		}
		return fieldErr(key, err)
	})
}
